package baro

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"

	"bmp384-go/bus"
	"bmp384-go/drivers/bmp384"
	"bmp384-go/drivers/bmp384/bmp384test"
	"bmp384-go/errcode"
	"bmp384-go/internal/gpioirq"
	"bmp384-go/services/config"
)

var _ gpioirq.IRQPin = (*fakePin)(nil)

type fakePin struct {
	mu      sync.Mutex
	level   bool
	handler func()
	edge    gpioirq.Edge
}

func (p *fakePin) Get() bool { p.mu.Lock(); defer p.mu.Unlock(); return p.level }
func (p *fakePin) SetIRQ(e gpioirq.Edge, h func()) error {
	p.mu.Lock()
	p.edge, p.handler = e, h
	p.mu.Unlock()
	return nil
}
func (p *fakePin) ClearIRQ() error {
	p.mu.Lock()
	p.handler = nil
	p.mu.Unlock()
	return nil
}
func (p *fakePin) armed() (bool, gpioirq.Edge) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler != nil, p.edge
}
func (p *fakePin) pulse() {
	p.mu.Lock()
	p.level = !p.level
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h()
	}
}

const (
	regFIFOConfig1 = 0x17
	regFIFOConfig2 = 0x18
	regIntCtrl     = 0x19
	regOSR         = 0x1C
	regODR         = 0x1D
	regConfig      = 0x1F
)

func newDevice(t *testing.T) (*bmp384.Device, *bmp384test.Chip) {
	t.Helper()
	chip := bmp384test.New()
	chip.SetRaw(8394784, 6000000)
	d := bmp384.New(bmp384.Config{I2C: chip.I2C(), Delay: func(time.Duration) {}})
	if err := d.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return d, chip
}

func testSettings() config.Settings {
	s := config.Default()
	s.Interval = 5 * time.Millisecond
	return s
}

func celsius(r Reading) float64 {
	return float64(r.Temperature-physic.ZeroCelsius) / float64(physic.Kelvin)
}

func pascal(r Reading) float64 { return float64(r.Pressure) / float64(physic.Pascal) }

func checkSample(t *testing.T, r Reading) {
	t.Helper()
	if math.Abs(celsius(r)-24.13) > 1e-6 || math.Abs(pascal(r)-102245.89) > 1e-6 {
		t.Fatalf("reading %.4f C %.4f Pa", celsius(r), pascal(r))
	}
	if r.TempRaw != 8394784 || r.PressRaw != 6000000 {
		t.Fatalf("raw %d %d", r.TempRaw, r.PressRaw)
	}
	if err := Plausible(r); err != nil {
		t.Fatal(err)
	}
}

func waitMessage(t *testing.T, sub *bus.Subscription) *bus.Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(time.Second):
		t.Fatalf("no message on %v", sub.Topic())
		return nil
	}
}

func waitState(t *testing.T, sub *bus.Subscription, status string) State {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if st := m.Payload.(State); st.Status == status {
				return st
			}
		case <-deadline:
			t.Fatalf("state %q not reached", status)
		}
	}
}

type harness struct {
	svc    *Service
	conn   *bus.Connection
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, svc *Service) *harness {
	t.Helper()
	b := bus.NewBus(16)
	h := &harness{svc: svc, conn: b.NewConnection("test"), done: make(chan error, 1)}
	state := h.conn.Subscribe(TopicState("bmp384"))
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- svc.Run(ctx, b.NewConnection("baro")) }()
	waitState(t, state, "running")
	h.conn.Unsubscribe(state)
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeRead, ModeShot, ModeInterrupt, ModeFIFO} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("%v: %v %v", m, got, err)
		}
	}
	if _, err := ParseMode("burst"); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err = %v", err)
	}
}

func TestSetupWritesExampleDefaults(t *testing.T) {
	cases := []struct {
		mode    Mode
		pwr     byte
		intCtrl byte
		fifo1   byte
	}{
		{ModeRead, 0x33, 0x02, 0x00},
		{ModeShot, 0x03, 0x02, 0x00},
		{ModeInterrupt, 0x33, 0x42, 0x00},
		{ModeFIFO, 0x33, 0x1A, 0x1D},
	}
	for _, tc := range cases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			d, chip := newDevice(t)
			if err := Setup(d, config.Default(), tc.mode); err != nil {
				t.Fatal(err)
			}
			regs := map[uint8]byte{
				bmp384test.RegPwrCtrl: tc.pwr,
				regIntCtrl:            tc.intCtrl,
				regFIFOConfig1:        tc.fifo1,
				regOSR:                0x0D,
				regODR:                0x04,
				regConfig:             0x08,
			}
			for reg, want := range regs {
				if got := chip.Reg(reg); got != want {
					t.Fatalf("reg %#02x = %#02x, want %#02x", reg, got, want)
				}
			}
			if tc.mode == ModeFIFO {
				if chip.Reg(regFIFOConfig2) != 0x08 || chip.Reg(0x15) != 0x00 || chip.Reg(0x16) != 0x01 {
					t.Fatalf("fifo config %#02x wtm %#02x%02x", chip.Reg(regFIFOConfig2), chip.Reg(0x16), chip.Reg(0x15))
				}
			}
		})
	}
}

func TestSetupReportsFailingStep(t *testing.T) {
	d, chip := newDevice(t)
	chip.WriteErr = func(reg uint8) error {
		if reg == regODR {
			return bmp384test.ErrInjected
		}
		return nil
	}
	err := Setup(d, config.Default(), ModeRead)
	if !errors.Is(err, bmp384.ErrIO) || !errors.Is(err, bmp384test.ErrInjected) {
		t.Fatalf("err = %v", err)
	}
	var e *errcode.E
	if !errors.As(err, &e) || e.Op != "baro setup odr" {
		t.Fatalf("op = %+v", e)
	}

	if err := Setup(bmp384.New(bmp384.Config{}), config.Default(), ModeRead); errcode.Status(err) != 3 {
		t.Fatalf("uninitialised status %d", errcode.Status(err))
	}
}

func TestFromFrames(t *testing.T) {
	frames := []bmp384.Frame{
		{Type: bmp384.FrameSensorTime, Raw: 10},
		{Type: bmp384.FrameTemperature, Raw: 1, Data: 20},
		{Type: bmp384.FramePressure, Raw: 2, Data: 90000},
		{Type: bmp384.FrameTemperature, Raw: 8394784, Data: 24.13},
		{Type: bmp384.FramePressure, Raw: 6000000, Data: 102245.89},
	}
	r, ok := FromFrames(frames)
	if !ok {
		t.Fatal("no reading")
	}
	checkSample(t, r)
	if _, ok := FromFrames(frames[:2]); ok {
		t.Fatal("reading without pressure")
	}
}

func TestReadModePublishes(t *testing.T) {
	d, _ := newDevice(t)
	h := start(t, &Service{Dev: d, Mode: ModeRead, Settings: testSettings()})
	sub := h.conn.Subscribe(TopicReading("bmp384"))
	m := waitMessage(t, sub)
	checkSample(t, m.Payload.(Reading))
	if !m.Retained {
		t.Fatal("reading not retained")
	}
}

func TestShotModeForcesConversion(t *testing.T) {
	d, chip := newDevice(t)
	h := start(t, &Service{Dev: d, Mode: ModeShot, Settings: testSettings()})
	chip.ResetLog()
	sub := h.conn.Subscribe(TopicReading("bmp384"))
	// Skip a retained reading that may predate ResetLog.
	waitMessage(t, sub)
	checkSample(t, waitMessage(t, sub).Payload.(Reading))

	forced := false
	for _, w := range chip.Writes() {
		if w.Reg == bmp384test.RegPwrCtrl && w.Data[0]&0x30 == 0x10 {
			forced = true
		}
	}
	if !forced {
		t.Fatalf("no forced conversion in %v", chip.Writes())
	}
}

func TestInterruptModeReadsOnDataReady(t *testing.T) {
	d, chip := newDevice(t)
	pin := &fakePin{}
	h := start(t, &Service{Dev: d, Mode: ModeInterrupt, Settings: testSettings(), Pin: pin})
	if armed, edge := pin.armed(); !armed || edge != gpioirq.EdgeRising {
		t.Fatalf("pin armed=%v edge=%v", armed, edge)
	}
	sub := h.conn.Subscribe(TopicReading("bmp384"))

	chip.RaiseInterrupt(0x08)
	pin.pulse()
	checkSample(t, waitMessage(t, sub).Payload.(Reading))
	if chip.Reg(bmp384test.RegIntStatus) != 0 {
		t.Fatal("interrupt status not consumed")
	}
}

func TestFIFOModeDrainsOnWatermark(t *testing.T) {
	d, chip := newDevice(t)
	pin := &fakePin{}
	h := start(t, &Service{Dev: d, Mode: ModeFIFO, Settings: testSettings(), Pin: pin})
	frames := h.conn.Subscribe(TopicFIFO("bmp384"))
	readings := h.conn.Subscribe(TopicReading("bmp384"))

	chip.PushFIFO(
		0x94, 0x20, 0x18, 0x80, 0x80, 0x8D, 0x5B,
		0xA0, 0x01, 0x02, 0x00,
	)
	chip.RaiseInterrupt(0x03)
	pin.pulse()

	got := waitMessage(t, frames).Payload.([]bmp384.Frame)
	if len(got) != 3 || got[0].Type != bmp384.FrameTemperature || got[1].Type != bmp384.FramePressure ||
		got[2].Type != bmp384.FrameSensorTime || got[2].Raw != 0x0201 {
		t.Fatalf("frames %+v", got)
	}
	checkSample(t, waitMessage(t, readings).Payload.(Reading))
	select {
	case m := <-frames.Channel():
		t.Fatalf("second drain published %+v", m.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestInterruptModeNeedsPin(t *testing.T) {
	d, _ := newDevice(t)
	svc := &Service{Dev: d, Mode: ModeFIFO, Settings: testSettings()}
	err := svc.Run(context.Background(), bus.NewBus(4).NewConnection("baro"))
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err = %v", err)
	}
}

func TestReadRequest(t *testing.T) {
	d, _ := newDevice(t)
	pin := &fakePin{}
	h := start(t, &Service{Dev: d, Mode: ModeInterrupt, Settings: testSettings(), Pin: pin})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m, err := h.conn.RequestWait(ctx, h.conn.NewMessage(TopicRead("bmp384"), nil, false))
	if err != nil {
		t.Fatal(err)
	}
	checkSample(t, m.Payload.(Reading))
}

func TestSettingsUpdateReconfigures(t *testing.T) {
	d, chip := newDevice(t)
	h := start(t, &Service{Dev: d, Mode: ModeRead, Settings: testSettings()})

	st := testSettings()
	st.ODR = bmp384.ODR25Hz
	st.Filter = bmp384.FilterCoeff3
	h.conn.Publish(h.conn.NewMessage(config.TopicBaro, st, true))

	deadline := time.Now().Add(time.Second)
	for chip.Reg(regODR) != 0x03 || chip.Reg(regConfig) != 0x04 {
		if time.Now().After(deadline) {
			t.Fatalf("odr %#02x config %#02x", chip.Reg(regODR), chip.Reg(regConfig))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStopSleepsChip(t *testing.T) {
	d, chip := newDevice(t)
	b := bus.NewBus(8)
	obs := b.NewConnection("obs")
	state := obs.Subscribe(TopicState("bmp384"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	svc := &Service{Dev: d, Mode: ModeRead, Settings: testSettings()}
	go func() { done <- svc.Run(ctx, b.NewConnection("baro")) }()
	waitState(t, state, "running")

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if st := waitState(t, state, "stopped"); st.Mode != "read" {
		t.Fatalf("state %+v", st)
	}
	if chip.Reg(bmp384test.RegPwrCtrl)&0x30 != 0 {
		t.Fatalf("pwr_ctrl %#02x", chip.Reg(bmp384test.RegPwrCtrl))
	}
}

func TestRegisterTest(t *testing.T) {
	d, chip := newDevice(t)
	if err := RegisterTest(d, nil); err != nil {
		t.Fatal(err)
	}
	if n := len(chip.Commands); n == 0 || chip.Commands[n-1] != 0xB6 {
		t.Fatalf("commands %x", chip.Commands)
	}
}

// stuckI2C drops writes of the 3-wire bit in IF_CONF.
type stuckI2C struct{ *bmp384test.I2C }

func (s stuckI2C) Write(addr, reg uint8, buf []byte) error {
	if reg == 0x1A {
		buf = []byte{buf[0] &^ 0x01}
	}
	return s.I2C.Write(addr, reg, buf)
}

func TestRegisterTestMismatch(t *testing.T) {
	chip := bmp384test.New()
	d := bmp384.New(bmp384.Config{I2C: stuckI2C{chip.I2C()}, Delay: func(time.Duration) {}})
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	err := RegisterTest(d, nil)
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("err = %v", err)
	}
	if errcode.Status(err) != 1 {
		t.Fatalf("status %d", errcode.Status(err))
	}
}

func TestPlausible(t *testing.T) {
	r := newReading(0, 90, 0, 101325)
	if err := Plausible(r); err == nil {
		t.Fatal("90 C accepted")
	}
	r = newReading(0, 20, 0, 20000)
	if err := Plausible(r); err == nil {
		t.Fatal("200 hPa accepted")
	}
}
