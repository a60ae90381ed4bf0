//go:build rp2040 || rp2350

package tinygobus

import (
	"machine"

	"bmp384-go/internal/gpioirq"
)

var _ gpioirq.IRQPin = (*Pin)(nil)

// DefaultI2C0 configures i2c0 at 400 kHz on the board-default pins and
// returns it wrapped for the bmp384 driver.
func DefaultI2C0() (*I2C, error) {
	b := machine.I2C0
	if err := b.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		return nil, err
	}
	return NewI2C(b), nil
}

// Pin is an RP2 GPIO used as the sensor's INT input.
type Pin struct {
	p machine.Pin
}

// NewPin configures GPn as a plain input.
func NewPin(n int) *Pin {
	p := machine.Pin(n)
	p.Configure(machine.PinConfig{Mode: machine.PinInput})
	return &Pin{p: p}
}

func (r *Pin) Get() bool { return r.p.Get() }

// SetIRQ uses the RP2 PinChange interrupt; handler runs in interrupt context.
func (r *Pin) SetIRQ(edge gpioirq.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e gpioirq.Edge) machine.PinChange {
	switch e {
	case gpioirq.EdgeRising:
		return machine.PinRising
	case gpioirq.EdgeFalling:
		return machine.PinFalling
	case gpioirq.EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}
