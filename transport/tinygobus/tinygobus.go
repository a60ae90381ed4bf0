// Package tinygobus adapts tinygo.org/x/drivers buses to the bmp384
// transports, for boards where the HAL already owns the peripheral.
package tinygobus

import (
	"tinygo.org/x/drivers"

	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
)

var errTooLong = &errcode.E{C: errcode.InvalidParams, Op: "tinygobus", Msg: "write too long"}

var (
	_ bmp384.I2C = (*I2C)(nil)
	_ bmp384.SPI = (*SPI)(nil)
)

// I2C wraps a drivers.I2C. Open and Close are no-ops; the bus is owned by
// whoever configured it.
type I2C struct {
	Bus drivers.I2C

	w [1 + 512]byte
}

func NewI2C(bus drivers.I2C) *I2C { return &I2C{Bus: bus} }

func (b *I2C) Open() error  { return nil }
func (b *I2C) Close() error { return nil }

func (b *I2C) Read(addr, reg uint8, buf []byte) error {
	b.w[0] = reg
	return b.Bus.Tx(uint16(addr), b.w[:1], buf)
}

func (b *I2C) Write(addr, reg uint8, buf []byte) error {
	if len(buf) > len(b.w)-1 {
		return errTooLong
	}
	b.w[0] = reg
	n := copy(b.w[1:], buf)
	return b.Bus.Tx(uint16(addr), b.w[:1+n], nil)
}

// SPI wraps a drivers.SPI with a chip-select line. CS is called with true
// to assert (drive low) and false to release; nil means the bus handles it.
type SPI struct {
	Bus drivers.SPI
	CS  func(active bool)
}

func NewSPI(bus drivers.SPI, cs func(active bool)) *SPI { return &SPI{Bus: bus, CS: cs} }

func (s *SPI) Open() error {
	s.chipSelect(false)
	return nil
}

func (s *SPI) Close() error { return nil }

func (s *SPI) Read(reg uint8, buf []byte) error {
	s.chipSelect(true)
	defer s.chipSelect(false)
	if _, err := s.Bus.Transfer(reg); err != nil {
		return err
	}
	return s.Bus.Tx(nil, buf)
}

func (s *SPI) Write(reg uint8, buf []byte) error {
	s.chipSelect(true)
	defer s.chipSelect(false)
	if _, err := s.Bus.Transfer(reg); err != nil {
		return err
	}
	return s.Bus.Tx(buf, nil)
}

func (s *SPI) chipSelect(active bool) {
	if s.CS != nil {
		s.CS(active)
	}
}
