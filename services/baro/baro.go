// Package baro runs a BMP384 in one of the board example modes and
// publishes its readings on the bus.
package baro

import (
	"math"
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"

	"bmp384-go/bus"
	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
	"bmp384-go/services/config"
)

// Mode selects how samples are produced.
type Mode uint8

const (
	// ModeRead polls the data registers in normal mode.
	ModeRead Mode = iota
	// ModeShot leaves the chip asleep and runs a forced conversion per read.
	ModeShot
	// ModeInterrupt reads on every data-ready interrupt.
	ModeInterrupt
	// ModeFIFO drains the FIFO on watermark and full interrupts.
	ModeFIFO
)

var modeNames = [...]string{"read", "shot", "int", "fifo"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(s, n) {
			return Mode(i), nil
		}
	}
	return 0, &errcode.E{C: errcode.InvalidParams, Op: "baro", Msg: "unknown mode " + s}
}

// Reading is one compensated sample.
type Reading struct {
	physic.Env
	TempRaw  uint32
	PressRaw uint32
	At       time.Time
}

func newReading(tRaw uint32, c float64, pRaw uint32, pa float64) Reading {
	var r Reading
	r.Temperature = physic.ZeroCelsius + physic.Temperature(math.Round(c*float64(physic.Kelvin)))
	r.Pressure = physic.Pressure(math.Round(pa * float64(physic.Pascal)))
	r.TempRaw, r.PressRaw = tRaw, pRaw
	r.At = time.Now()
	return r
}

// State is published retained on the service's state topic.
type State struct {
	Status string
	Mode   string
	Err    string
}

// Topics used by a service instance named name.
func TopicReading(name string) bus.Topic { return bus.T("baro", name, "reading") }
func TopicFIFO(name string) bus.Topic    { return bus.T("baro", name, "fifo") }
func TopicState(name string) bus.Topic   { return bus.T("baro", name, "state") }
func TopicRead(name string) bus.Topic    { return bus.T("baro", name, "read") }

type step struct {
	op string
	fn func() error
}

// Setup writes s to dev for mode and finally sets the power mode: sleep for
// ModeShot, normal otherwise. dev must be initialised.
func Setup(dev *bmp384.Device, s config.Settings, mode Mode) error {
	fifo := mode == ModeFIFO
	steps := []step{
		{"spi wire", func() error { return dev.SetSPIWire(s.SPIWire) }},
		{"watchdog", func() error { return dev.SetI2CWatchdogTimer(s.Watchdog) }},
		{"watchdog period", func() error { return dev.SetI2CWatchdogPeriod(s.WatchdogPeriod) }},
		{"fifo off", func() error { return dev.SetFIFO(false) }},
		{"interrupt pin type", func() error { return dev.SetInterruptPinType(s.InterruptPinType) }},
		{"interrupt level", func() error { return dev.SetInterruptActiveLevel(s.InterruptActiveLevel) }},
		{"interrupt latch", func() error { return dev.SetLatchInterrupt(false) }},
		{"interrupt watermark", func() error { return dev.SetInterruptFIFOWatermark(fifo) }},
		{"interrupt full", func() error { return dev.SetInterruptFIFOFull(fifo) }},
		{"interrupt data ready", func() error { return dev.SetInterruptDataReady(mode == ModeInterrupt) }},
		{"pressure", func() error { return dev.SetPressure(true) }},
		{"temperature", func() error { return dev.SetTemperature(true) }},
		{"pressure oversampling", func() error { return dev.SetPressureOversampling(s.PressureOversampling) }},
		{"temperature oversampling", func() error { return dev.SetTemperatureOversampling(s.TemperatureOversampling) }},
		{"odr", func() error { return dev.SetODR(s.ODR) }},
		{"filter", func() error { return dev.SetFilterCoefficient(s.Filter) }},
	}
	if fifo {
		steps = append(steps,
			step{"fifo watermark", func() error { return dev.SetFIFOWatermark(s.FIFOWatermark) }},
			step{"fifo stop on full", func() error { return dev.SetFIFOStopOnFull(false) }},
			step{"fifo sensor time", func() error { return dev.SetFIFOSensorTime(true) }},
			step{"fifo pressure", func() error { return dev.SetFIFOPressure(true) }},
			step{"fifo temperature", func() error { return dev.SetFIFOTemperature(true) }},
			step{"fifo subsampling", func() error { return dev.SetFIFOSubsampling(s.FIFOSubsampling) }},
			step{"fifo source", func() error { return dev.SetFIFODataSource(s.FIFODataSource) }},
			step{"fifo on", func() error { return dev.SetFIFO(true) }},
		)
	}
	power := bmp384.ModeNormal
	if mode == ModeShot {
		power = bmp384.ModeSleep
	}
	steps = append(steps, step{"mode", func() error { return dev.SetMode(power) }})

	for _, st := range steps {
		if err := st.fn(); err != nil {
			return &errcode.E{C: errcode.Of(err), Op: "baro setup " + st.op, Err: err}
		}
	}
	return nil
}

// ReadOnce takes one sample. In sleep mode the driver runs a forced
// conversion first.
func ReadOnce(dev *bmp384.Device) (Reading, error) {
	tRaw, c, pRaw, pa, err := dev.ReadTemperaturePressure()
	if err != nil {
		return Reading{}, err
	}
	return newReading(tRaw, c, pRaw, pa), nil
}

// FromFrames builds a reading from the last temperature and pressure frames.
func FromFrames(frames []bmp384.Frame) (Reading, bool) {
	var t, p *bmp384.Frame
	for i := range frames {
		switch frames[i].Type {
		case bmp384.FrameTemperature:
			t = &frames[i]
		case bmp384.FramePressure:
			p = &frames[i]
		}
	}
	if t == nil || p == nil {
		return Reading{}, false
	}
	return newReading(t.Raw, t.Data, p.Raw, p.Data), true
}
