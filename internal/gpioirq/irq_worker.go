// Package gpioirq moves interrupt-pin edges off the ISR path. Pin handlers
// only capture the level and do a non-blocking send; a worker goroutine
// debounces, filters by edge and hands events to the consumer, which can
// then call blocking code such as bmp384.Device.IRQHandler.
package gpioirq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// IRQPin is an input pin that can call a handler on an edge. The handler
// may run in interrupt context.
type IRQPin interface {
	Get() bool
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// Event is delivered from the worker to the consumer.
type Event struct {
	ID    string
	Level bool // after inversion
	Edge  Edge
	TS    time.Time
}

type Worker struct {
	// Written by the pin handler; must never block it.
	isrQ chan isrEvent
	// Consumed by the owner of the sensors.
	outQ    chan Event
	stopped chan struct{}

	mu     sync.RWMutex
	inputs map[string]*watch

	isrDrops uint32
	outDrops uint32
}

type isrEvent struct {
	id    string
	level bool
}

type watch struct {
	pin       IRQPin
	edge      Edge
	debounce  time.Duration
	invert    bool
	lastLevel bool
	lastEvent time.Time
}

func New(isrBuf, outBuf int) *Worker {
	if isrBuf <= 0 {
		isrBuf = 64
	}
	if outBuf <= 0 {
		outBuf = 64
	}
	return &Worker{
		isrQ:    make(chan isrEvent, isrBuf),
		outQ:    make(chan Event, outBuf),
		stopped: make(chan struct{}),
		inputs:  map[string]*watch{},
	}
}

// Start runs the worker until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-w.isrQ:
				w.handle(ev)
			}
		}
	}()
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.stopped }

func (w *Worker) Events() <-chan Event { return w.outQ }

// Register arms pin for edge under id and returns a cancel func that
// disarms it. EdgeNone registers nothing.
func (w *Worker) Register(id string, pin IRQPin, edge Edge, debounce time.Duration, invert bool) (func(), error) {
	if edge == EdgeNone {
		return func() {}, nil
	}
	init := pin.Get()
	if invert {
		init = !init
	}
	wh := &watch{
		pin:       pin,
		edge:      edge,
		debounce:  debounce,
		invert:    invert,
		lastLevel: init,
	}

	handler := func() {
		select {
		case w.isrQ <- isrEvent{id: id, level: pin.Get()}:
		default:
			atomic.AddUint32(&w.isrDrops, 1)
		}
	}
	if err := pin.SetIRQ(edge, handler); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.inputs[id] = wh
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		if cur, ok := w.inputs[id]; ok {
			_ = cur.pin.ClearIRQ()
			delete(w.inputs, id)
		}
		w.mu.Unlock()
	}, nil
}

func (w *Worker) handle(ev isrEvent) {
	w.mu.RLock()
	wh := w.inputs[ev.id]
	w.mu.RUnlock()
	if wh == nil {
		return
	}
	level := ev.level
	if wh.invert {
		level = !level
	}
	now := time.Now()

	if !wh.lastEvent.IsZero() && now.Sub(wh.lastEvent) < wh.debounce {
		return
	}

	var e Edge
	switch wh.edge {
	case EdgeBoth:
		switch {
		case !wh.lastLevel && level:
			e = EdgeRising
		case wh.lastLevel && !level:
			e = EdgeFalling
		}
	default:
		// single-edge pins only fire on the configured edge
		e = wh.edge
	}

	if e != EdgeNone {
		select {
		case w.outQ <- Event{ID: ev.id, Level: level, Edge: e, TS: now}:
		default:
			atomic.AddUint32(&w.outDrops, 1)
		}
	}
	wh.lastLevel = level
	wh.lastEvent = now
}

// Drops reports events lost on the handler queue and on the output queue.
func (w *Worker) Drops() (isr, out uint32) {
	return atomic.LoadUint32(&w.isrDrops), atomic.LoadUint32(&w.outDrops)
}
