package baro

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bmp384-go/bus"
	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
	"bmp384-go/internal/gpioirq"
	"bmp384-go/services/config"
)

const (
	fifoSize  = 512
	maxFrames = 2 * fifoSize / 7
)

// Service owns an initialised Device and runs it in Mode until its context
// ends. All driver calls happen on the Run goroutine.
type Service struct {
	Name     string
	Dev      *bmp384.Device
	Mode     Mode
	Settings config.Settings

	// Pin is the INT line; required for ModeInterrupt and ModeFIFO.
	Pin gpioirq.IRQPin
	Log *zap.SugaredLogger

	conn    *bus.Connection
	pending []bmp384.IntStatus
	fifo    [fifoSize]byte
	frames  [maxFrames]bmp384.Frame
}

func (s *Service) interrupts() bool { return s.Mode == ModeInterrupt || s.Mode == ModeFIFO }

// Run configures the chip and serves until ctx is done, then puts the chip
// to sleep. It returns an error only if the service could not start.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	if s.Name == "" {
		s.Name = "bmp384"
	}
	if s.Log == nil {
		s.Log = zap.NewNop().Sugar()
	}
	s.conn = conn

	if err := Setup(s.Dev, s.Settings, s.Mode); err != nil {
		s.publishState("error", err)
		return err
	}

	var events <-chan gpioirq.Event
	if s.interrupts() {
		if s.Pin == nil {
			err := &errcode.E{C: errcode.InvalidParams, Op: "baro", Msg: "interrupt pin required for mode " + s.Mode.String()}
			s.publishState("error", err)
			return err
		}
		if err := s.Dev.SetCallback(s.collect); err != nil {
			return err
		}
		w := gpioirq.New(16, 16)
		w.Start(ctx)
		edge := gpioirq.EdgeRising
		if s.Settings.InterruptActiveLevel == bmp384.InterruptActiveLow {
			edge = gpioirq.EdgeFalling
		}
		cancel, err := w.Register(s.Name, s.Pin, edge, 0, false)
		if err != nil {
			s.publishState("error", err)
			return err
		}
		defer cancel()
		events = w.Events()
	}

	var ticker *time.Ticker
	var tick <-chan time.Time
	if !s.interrupts() {
		ticker = time.NewTicker(s.Settings.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	cfgSub := conn.Subscribe(config.TopicBaro)
	ctrlSub := conn.Subscribe(TopicRead(s.Name))
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(ctrlSub)

	s.Log.Infow("baro running", "name", s.Name, "mode", s.Mode.String())
	s.publishState("running", nil)

	for {
		select {
		case <-ctx.Done():
			if err := s.Dev.SetMode(bmp384.ModeSleep); err != nil {
				s.Log.Warnw("sleep on stop failed", "err", err)
			}
			s.publishState("stopped", nil)
			return nil

		case <-tick:
			s.sample()

		case <-events:
			s.serviceIRQ()

		case m := <-ctrlSub.Channel():
			r, err := ReadOnce(s.Dev)
			if err != nil {
				conn.Reply(m, err, false)
				continue
			}
			conn.Reply(m, r, false)

		case m := <-cfgSub.Channel():
			st, ok := m.Payload.(config.Settings)
			if !ok || st == s.Settings {
				continue
			}
			if err := Setup(s.Dev, st, s.Mode); err != nil {
				s.Log.Warnw("apply settings failed", "err", err)
				s.publishState("degraded", err)
				continue
			}
			if ticker != nil && st.Interval != s.Settings.Interval {
				ticker.Reset(st.Interval)
			}
			s.Settings = st
			s.Log.Infow("settings applied", "odr", st.ODR, "filter", st.Filter)
			s.publishState("running", nil)
		}
	}
}

func (s *Service) collect(st bmp384.IntStatus) { s.pending = append(s.pending, st) }

func (s *Service) serviceIRQ() {
	s.pending = s.pending[:0]
	if err := s.Dev.IRQHandler(); err != nil {
		s.Log.Warnw("irq handler failed", "err", err)
		return
	}
	drained := false
	for _, st := range s.pending {
		switch st {
		case bmp384.IntDataReady:
			s.sample()
		case bmp384.IntFIFOWatermark, bmp384.IntFIFOFull:
			if !drained {
				s.drainFIFO()
				drained = true
			}
		}
	}
}

func (s *Service) sample() {
	r, err := ReadOnce(s.Dev)
	if err != nil {
		s.Log.Warnw("read failed", "err", err)
		s.publishState("degraded", err)
		return
	}
	s.Log.Debugw("reading", "temperature", r.Temperature.String(), "pressure", r.Pressure.String())
	s.conn.Publish(s.conn.NewMessage(TopicReading(s.Name), r, true))
}

func (s *Service) drainFIFO() {
	n, err := s.Dev.ReadFIFO(s.fifo[:])
	if err != nil {
		s.Log.Warnw("fifo read failed", "err", err)
		s.publishState("degraded", err)
		return
	}
	if n == 0 {
		return
	}
	k, err := s.Dev.ParseFIFO(s.fifo[:n], s.frames[:])
	if err != nil {
		s.Log.Warnw("fifo parse failed", "err", err)
		return
	}
	frames := append([]bmp384.Frame(nil), s.frames[:k]...)
	s.Log.Debugw("fifo drained", "bytes", n, "frames", k)
	s.conn.Publish(s.conn.NewMessage(TopicFIFO(s.Name), frames, false))
	if r, ok := FromFrames(frames); ok {
		s.conn.Publish(s.conn.NewMessage(TopicReading(s.Name), r, true))
	}
}

func (s *Service) publishState(status string, err error) {
	st := State{Status: status, Mode: s.Mode.String()}
	if err != nil {
		st.Err = err.Error()
	}
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(TopicState(s.Name), st, true))
	}
}
