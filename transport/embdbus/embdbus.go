// Package embdbus adapts an embd I²C bus to the bmp384 I2C transport.
package embdbus

import (
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"

	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
)

var _ bmp384.I2C = (*I2C)(nil)

var errNotOpen = &errcode.E{C: errcode.NotInitialized, Op: "embdbus", Msg: "bus not open"}

// I2C opens /dev/i2c-<Line> through embd on Open.
type I2C struct {
	Line byte

	// NewBus defaults to embd.NewI2CBus.
	NewBus func(line byte) embd.I2CBus

	bus embd.I2CBus
}

func NewI2C(line byte) *I2C { return &I2C{Line: line} }

func (b *I2C) Open() error {
	newBus := b.NewBus
	if newBus == nil {
		if err := embd.InitI2C(); err != nil {
			return err
		}
		newBus = embd.NewI2CBus
	}
	b.bus = newBus(b.Line)
	return nil
}

func (b *I2C) Close() error {
	if b.bus == nil {
		return nil
	}
	err := b.bus.Close()
	b.bus = nil
	return err
}

func (b *I2C) Read(addr, reg uint8, buf []byte) error {
	if b.bus == nil {
		return errNotOpen
	}
	return b.bus.ReadFromReg(addr, reg, buf)
}

func (b *I2C) Write(addr, reg uint8, buf []byte) error {
	if b.bus == nil {
		return errNotOpen
	}
	return b.bus.WriteToReg(addr, reg, buf)
}
