// Package rpiobus drives the BMP384 over the Raspberry Pi SPI0 block and
// watches its interrupt line through /dev/gpiomem, using go-rpio.
// Only one SPI device can be active at a time; rpio state is global.
package rpiobus

import (
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
	"bmp384-go/internal/gpioirq"
)

var (
	_ bmp384.SPI     = (*SPI)(nil)
	_ gpioirq.IRQPin = (*Pin)(nil)
)

var errNotOpen = &errcode.E{C: errcode.NotInitialized, Op: "rpiobus", Msg: "spi not open"}

// SPI uses SPI0 with the given chip select (0 or 1).
type SPI struct {
	ChipSelect uint8
	SpeedHz    int

	open     bool
	buf      [1 + 513]byte
	exchange func([]byte)
}

func NewSPI(cs uint8, speedHz int) *SPI {
	if speedHz <= 0 {
		speedHz = 5_000_000
	}
	return &SPI{ChipSelect: cs, SpeedHz: speedHz}
}

func (s *SPI) Open() error {
	if err := rpio.Open(); err != nil {
		return err
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		_ = rpio.Close()
		return err
	}
	rpio.SpiChipSelect(s.ChipSelect)
	rpio.SpiSpeed(s.SpeedHz)
	rpio.SpiMode(0, 0)
	s.exchange = rpio.SpiExchange
	s.open = true
	return nil
}

func (s *SPI) Close() error {
	if !s.open {
		return nil
	}
	rpio.SpiEnd(rpio.Spi0)
	s.open = false
	return rpio.Close()
}

func (s *SPI) Read(reg uint8, buf []byte) error {
	if !s.open {
		return errNotOpen
	}
	n := 1 + len(buf)
	if n > len(s.buf) {
		return &errcode.E{C: errcode.InvalidParams, Op: "rpiobus", Msg: "read too long"}
	}
	s.buf[0] = reg
	clear(s.buf[1:n])
	s.exchange(s.buf[:n])
	copy(buf, s.buf[1:n])
	return nil
}

func (s *SPI) Write(reg uint8, buf []byte) error {
	if !s.open {
		return errNotOpen
	}
	n := 1 + len(buf)
	if n > len(s.buf) {
		return &errcode.E{C: errcode.InvalidParams, Op: "rpiobus", Msg: "write too long"}
	}
	s.buf[0] = reg
	copy(s.buf[1:n], buf)
	s.exchange(s.buf[:n])
	return nil
}

// edgePin is the part of rpio.Pin the interrupt watcher uses.
type edgePin interface {
	Input()
	Read() rpio.State
	Detect(edge rpio.Edge)
	EdgeDetected() bool
}

// Pin polls the BCM edge-detect latch. rpio must be open (SPI.Open does it).
type Pin struct {
	Poll time.Duration

	pin  edgePin
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewPin(bcm uint8) *Pin {
	return &Pin{Poll: time.Millisecond, pin: rpio.Pin(bcm)}
}

func (p *Pin) Get() bool { return p.pin.Read() == rpio.High }

func (p *Pin) SetIRQ(edge gpioirq.Edge, handler func()) error {
	var e rpio.Edge
	switch edge {
	case gpioirq.EdgeRising:
		e = rpio.RiseEdge
	case gpioirq.EdgeFalling:
		e = rpio.FallEdge
	case gpioirq.EdgeBoth:
		e = rpio.AnyEdge
	default:
		e = rpio.NoEdge
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return &errcode.E{C: errcode.Failed, Op: "rpiobus", Msg: "irq already set"}
	}
	p.pin.Input()
	p.pin.Detect(e)
	p.stop, p.done = make(chan struct{}), make(chan struct{})
	go p.loop(handler, p.stop, p.done)
	return nil
}

func (p *Pin) loop(handler func(), stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(p.Poll)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if p.pin.EdgeDetected() {
				handler()
			}
		}
	}
}

func (p *Pin) ClearIRQ() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	p.pin.Detect(rpio.NoEdge)
	return nil
}
