// Package bmp384test provides an in-memory BMP384 register file that
// satisfies the bmp384 I2C and SPI transports, for tests.
package bmp384test

import (
	"errors"
	"sync"
)

// Register addresses the fake gives behaviour to.
const (
	RegChipID    = 0x00
	RegErr       = 0x02
	RegStatus    = 0x03
	RegData0     = 0x04
	RegSensorT0  = 0x0C
	RegEvent     = 0x10
	RegIntStatus = 0x11
	RegFIFOLen0  = 0x12
	RegFIFOLen1  = 0x13
	RegFIFOData  = 0x14
	RegPwrCtrl   = 0x1B
	RegNVM       = 0x31
	RegCmd       = 0x7E
)

// Sample calibration image and the values it decodes to are exercised by
// the driver tests: T1=27504 T2=19177 T3=-7 P1=-2389 P2=-3145 P3=34 P4=0
// P5=25212 P6=30305 P7=3 P8=-6 P9=16285 P10=15 P11=-60.
var Calibration = [21]byte{
	0x70, 0x6B, 0xE9, 0x4A, 0xF9, 0xAB, 0xF6, 0xB7, 0xF3, 0x22, 0x00,
	0x7C, 0x62, 0x61, 0x76, 0x03, 0xFA, 0x9D, 0x3F, 0x0F, 0xC4,
}

// ErrInjected is the default error returned by failure hooks.
var ErrInjected = errors.New("bmp384test: injected failure")

// Access is one recorded bus transaction.
type Access struct {
	Write bool
	Reg   uint8
	Data  []byte
}

// Chip emulates the register file. The zero value is not usable; use New.
type Chip struct {
	mu sync.Mutex

	regs [128]byte
	fifo []byte

	// Addr is the I²C address the chip answers on.
	Addr uint8

	// Failure hooks. A non-nil return fails the transaction before any
	// state changes.
	OpenErr  error
	CloseErr error
	ReadErr  func(reg uint8) error
	WriteErr func(reg uint8) error

	// HoldForced keeps a forced conversion pending instead of completing it
	// on the mode write.
	HoldForced bool

	Opens, Closes int
	Commands      []byte
	Log           []Access
}

// New returns a chip in its post-power-up state with the sample calibration,
// command decoder ready and both drdy bits set.
func New() *Chip {
	c := &Chip{Addr: 0x76}
	c.regs[RegChipID] = 0x50
	c.regs[RegStatus] = 0x70
	c.regs[RegEvent] = 0x01
	copy(c.regs[RegNVM:], Calibration[:])
	return c
}

// Reg returns a register value without side effects.
func (c *Chip) Reg(reg uint8) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[reg&0x7F]
}

// SetReg sets a register value without logging.
func (c *Chip) SetReg(reg uint8, v byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[reg&0x7F] = v
}

// SetRaw loads DATA_0..DATA_5 with 24-bit raw pressure and temperature.
func (c *Chip) SetRaw(temp, press uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	put24(c.regs[RegData0:], press)
	put24(c.regs[RegData0+3:], temp)
}

// PushFIFO appends bytes to the FIFO and updates FIFO_LENGTH.
func (c *Chip) PushFIFO(b ...byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fifo = append(c.fifo, b...)
	c.syncFIFOLen()
}

// RaiseInterrupt ORs bits into INT_STATUS.
func (c *Chip) RaiseInterrupt(bits byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[RegIntStatus] |= bits
}

// Writes returns the recorded writes.
func (c *Chip) Writes() []Access {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Access
	for _, a := range c.Log {
		if a.Write {
			out = append(out, a)
		}
	}
	return out
}

// ResetLog forgets recorded transactions and commands.
func (c *Chip) ResetLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Log = nil
	c.Commands = nil
}

func (c *Chip) open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.OpenErr != nil {
		return c.OpenErr
	}
	c.Opens++
	return nil
}

func (c *Chip) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CloseErr != nil {
		return c.CloseErr
	}
	c.Closes++
	return nil
}

func (c *Chip) read(reg uint8, buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReadErr != nil {
		if err := c.ReadErr(reg); err != nil {
			return err
		}
	}
	for i := range buf {
		r := int(reg) + i
		if reg == RegFIFOData {
			r = RegFIFOData
		}
		switch r {
		case RegFIFOData:
			if len(c.fifo) > 0 {
				buf[i] = c.fifo[0]
				c.fifo = c.fifo[1:]
			} else {
				buf[i] = 0x80
			}
		case RegIntStatus, RegEvent:
			buf[i] = c.regs[r]
			c.regs[r] = 0
		default:
			if r < len(c.regs) {
				buf[i] = c.regs[r]
			}
		}
	}
	if reg == RegFIFOData {
		c.syncFIFOLen()
	}
	c.Log = append(c.Log, Access{Reg: reg, Data: append([]byte(nil), buf...)})
	return nil
}

func (c *Chip) write(reg uint8, buf []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		if err := c.WriteErr(reg); err != nil {
			return err
		}
	}
	c.Log = append(c.Log, Access{Write: true, Reg: reg, Data: append([]byte(nil), buf...)})
	for i, v := range buf {
		r := int(reg) + i
		switch r {
		case RegCmd:
			c.command(v)
		case RegPwrCtrl:
			mode := (v >> 4) & 0x03
			if (mode == 1 || mode == 2) && !c.HoldForced {
				v &^= 0x30
			}
			c.regs[r] = v
		default:
			if r < len(c.regs) {
				c.regs[r] = v
			}
		}
	}
	return nil
}

func (c *Chip) command(cmd byte) {
	c.Commands = append(c.Commands, cmd)
	switch cmd {
	case 0xB6:
		c.regs[RegEvent] = 0x01
		c.fifo = nil
		c.syncFIFOLen()
	case 0xB0:
		c.fifo = nil
		c.syncFIFOLen()
	case 0x34:
	default:
		c.regs[RegErr] |= 0x02
	}
}

func (c *Chip) syncFIFOLen() {
	n := len(c.fifo)
	c.regs[RegFIFOLen0] = byte(n)
	c.regs[RegFIFOLen1] = byte(n>>8) & 0x01
}

func put24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// I2C returns an I²C view of the chip.
func (c *Chip) I2C() *I2C { return &I2C{c: c} }

// SPI returns an SPI view of the chip. Reads must carry the read bit and
// receive one dummy byte first.
func (c *Chip) SPI() *SPI { return &SPI{c: c} }

type I2C struct{ c *Chip }

func (p *I2C) Open() error  { return p.c.open() }
func (p *I2C) Close() error { return p.c.close() }

func (p *I2C) Read(addr, reg uint8, buf []byte) error {
	if addr != p.c.Addr {
		return errors.New("bmp384test: nack")
	}
	return p.c.read(reg, buf)
}

func (p *I2C) Write(addr, reg uint8, buf []byte) error {
	if addr != p.c.Addr {
		return errors.New("bmp384test: nack")
	}
	return p.c.write(reg, buf)
}

type SPI struct{ c *Chip }

func (p *SPI) Open() error  { return p.c.open() }
func (p *SPI) Close() error { return p.c.close() }

func (p *SPI) Read(reg uint8, buf []byte) error {
	if reg&0x80 == 0 || len(buf) == 0 {
		return errors.New("bmp384test: malformed spi read")
	}
	if err := p.c.read(reg&0x7F, buf[1:]); err != nil {
		return err
	}
	buf[0] = 0xFF
	return nil
}

func (p *SPI) Write(reg uint8, buf []byte) error {
	if reg&0x80 != 0 {
		return errors.New("bmp384test: malformed spi write")
	}
	return p.c.write(reg, buf)
}
