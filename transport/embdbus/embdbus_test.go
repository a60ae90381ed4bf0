package embdbus

import (
	"errors"
	"testing"
	"time"

	"github.com/kidoman/embd"

	"bmp384-go/drivers/bmp384"
	"bmp384-go/drivers/bmp384/bmp384test"
)

// fakeBus implements the register half of embd.I2CBus on a fake chip.
// Unused methods panic through the nil embedded interface.
type fakeBus struct {
	embd.I2CBus
	port   *bmp384test.I2C
	closed bool
}

func (f *fakeBus) ReadFromReg(addr, reg byte, value []byte) error {
	return f.port.Read(addr, reg, value)
}

func (f *fakeBus) WriteToReg(addr, reg byte, value []byte) error {
	return f.port.Write(addr, reg, value)
}

func (f *fakeBus) Close() error { f.closed = true; return nil }

func TestDriverOverEmbd(t *testing.T) {
	chip := bmp384test.New()
	fb := &fakeBus{port: chip.I2C()}
	var line byte = 0xFF
	b := &I2C{Line: 1, NewBus: func(l byte) embd.I2CBus { line = l; return fb }}

	d := bmp384.New(bmp384.Config{I2C: b, Delay: func(time.Duration) {}})
	if err := d.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if line != 1 {
		t.Fatalf("opened line %d", line)
	}
	chip.SetReg(bmp384test.RegPwrCtrl, 0x33)
	chip.SetRaw(8394784, 6000000)
	_, c, err := d.ReadTemperature()
	if err != nil || c != 24.13 {
		t.Fatalf("temperature = %v, %v", c, err)
	}
	if err := d.Deinit(); err != nil {
		t.Fatal(err)
	}
	if !fb.closed {
		t.Fatal("bus not closed")
	}
}

func TestNotOpen(t *testing.T) {
	b := NewI2C(1)
	if err := b.Read(0x76, 0, make([]byte, 1)); !errors.Is(err, errNotOpen) {
		t.Fatalf("err = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}
