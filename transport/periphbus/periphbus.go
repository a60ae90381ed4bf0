// Package periphbus provides bmp384 transports and an interrupt pin on top
// of periph.io, for Linux hosts (Raspberry Pi, Jetson, generic sysfs).
// Call host.Init once before opening anything.
package periphbus

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
	"bmp384-go/internal/gpioirq"
)

var errNotOpen = &errcode.E{C: errcode.NotInitialized, Op: "periphbus", Msg: "bus not open"}

var (
	_ bmp384.I2C     = (*I2C)(nil)
	_ bmp384.SPI     = (*SPI)(nil)
	_ gpioirq.IRQPin = (*Pin)(nil)
)

// I2C opens the named bus ("" for the first one) on Open.
type I2C struct {
	Name string

	bus i2c.BusCloser
	w   [1 + 512]byte
}

func NewI2C(name string) *I2C { return &I2C{Name: name} }

func (b *I2C) Open() error {
	bus, err := i2creg.Open(b.Name)
	if err != nil {
		return err
	}
	b.bus = bus
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
	b.w[0] = reg
	return b.bus.Tx(uint16(addr), b.w[:1], buf)
}

func (b *I2C) Write(addr, reg uint8, buf []byte) error {
	if b.bus == nil {
		return errNotOpen
	}
	if len(buf) > len(b.w)-1 {
		return fmt.Errorf("periphbus: write of %d bytes too long", len(buf))
	}
	b.w[0] = reg
	n := copy(b.w[1:], buf)
	return b.bus.Tx(uint16(addr), b.w[:1+n], nil)
}

// SPI opens the named port ("SPI0.0", "" for the first) in mode 0.
type SPI struct {
	Name string
	Freq physic.Frequency

	port spi.PortCloser
	conn spi.Conn
	w, r [1 + 513]byte
}

// DefaultSPIFreq is well under the chip's 10 MHz limit.
const DefaultSPIFreq = 5 * physic.MegaHertz

func NewSPI(name string, freq physic.Frequency) *SPI {
	if freq == 0 {
		freq = DefaultSPIFreq
	}
	return &SPI{Name: name, Freq: freq}
}

func (s *SPI) Open() error {
	port, err := spireg.Open(s.Name)
	if err != nil {
		return err
	}
	conn, err := port.Connect(s.Freq, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return err
	}
	s.port, s.conn = port, conn
	return nil
}

func (s *SPI) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port, s.conn = nil, nil
	return err
}

func (s *SPI) Read(reg uint8, buf []byte) error {
	if s.conn == nil {
		return errNotOpen
	}
	n := 1 + len(buf)
	if n > len(s.w) {
		return fmt.Errorf("periphbus: read of %d bytes too long", len(buf))
	}
	s.w[0] = reg
	clear(s.w[1:n])
	if err := s.conn.Tx(s.w[:n], s.r[:n]); err != nil {
		return err
	}
	copy(buf, s.r[1:n])
	return nil
}

func (s *SPI) Write(reg uint8, buf []byte) error {
	if s.conn == nil {
		return errNotOpen
	}
	n := 1 + len(buf)
	if n > len(s.w) {
		return fmt.Errorf("periphbus: write of %d bytes too long", len(buf))
	}
	s.w[0] = reg
	copy(s.w[1:n], buf)
	return s.conn.Tx(s.w[:n], s.r[:n])
}

// Pin is an edge-triggered input. periph has no interrupt callbacks, so
// SetIRQ runs a goroutine blocked in WaitForEdge.
type Pin struct {
	Name string
	// Poll bounds each WaitForEdge so ClearIRQ is noticed.
	Poll time.Duration

	pin  gpio.PinIO
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewPin(name string) *Pin { return &Pin{Name: name, Poll: 100 * time.Millisecond} }

func (p *Pin) lookup() (gpio.PinIO, error) {
	if p.pin != nil {
		return p.pin, nil
	}
	pin := gpioreg.ByName(p.Name)
	if pin == nil {
		return nil, fmt.Errorf("periphbus: no gpio pin %q", p.Name)
	}
	p.pin = pin
	return pin, nil
}

func (p *Pin) Get() bool {
	pin, err := p.lookup()
	if err != nil {
		return false
	}
	return pin.Read() == gpio.High
}

func (p *Pin) SetIRQ(edge gpioirq.Edge, handler func()) error {
	pin, err := p.lookup()
	if err != nil {
		return err
	}
	var e gpio.Edge
	switch edge {
	case gpioirq.EdgeRising:
		e = gpio.RisingEdge
	case gpioirq.EdgeFalling:
		e = gpio.FallingEdge
	case gpioirq.EdgeBoth:
		e = gpio.BothEdges
	default:
		e = gpio.NoEdge
	}
	if err := pin.In(gpio.PullNoChange, e); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return fmt.Errorf("periphbus: irq already set on %s", p.Name)
	}
	p.stop, p.done = make(chan struct{}), make(chan struct{})
	go p.loop(pin, handler, p.stop, p.done)
	return nil
}

func (p *Pin) loop(pin gpio.PinIO, handler func(), stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if pin.WaitForEdge(p.Poll) {
			handler()
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
	if p.pin != nil {
		return p.pin.In(gpio.PullNoChange, gpio.NoEdge)
	}
	return nil
}
