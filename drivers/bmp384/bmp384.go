// Package bmp384 provides a driver for the Bosch BMP384 barometric pressure
// and temperature sensor over I²C or SPI.
//
// A Device is created with New, pointed at a bus with SetInterface and
// SetAddrPin (or the matching Config fields), and brought up with Init:
//
//	d := bmp384.New(bmp384.Config{I2C: bus})
//	if err := d.Init(); err != nil { ... }
//	defer d.Deinit()
//	_, c, _, pa, err := d.ReadTemperaturePressure()
//
// The driver is synchronous and holds no locks. A Device must not be used
// from more than one goroutine at a time; callers that service interrupts
// on a different goroutine than their foreground reads must serialise
// access themselves.
package bmp384

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"bmp384-go/errcode"
)

// Errors returned by the driver. Wrapped instances carry the operation and
// the transport cause and still match these values with errors.Is.
var (
	ErrNilDevice      = errcode.InvalidHandle
	ErrNotInitialized = errcode.NotInitialized

	ErrNotLinked       = &errcode.E{C: errcode.Failed, Msg: "transport not linked"}
	ErrBusOpen         = &errcode.E{C: errcode.Failed, Msg: "bus open failed"}
	ErrBusClose        = &errcode.E{C: errcode.Failed, Msg: "bus close failed"}
	ErrChipID          = &errcode.E{C: errcode.Failed, Msg: "chip id is invalid"}
	ErrReset           = &errcode.E{C: errcode.Failed, Msg: "soft reset failed"}
	ErrCalibration     = &errcode.E{C: errcode.Failed, Msg: "get calibration data failed"}
	ErrIO              = &errcode.E{C: errcode.Failed, Msg: "bus transaction failed"}
	ErrModeInvalid     = &errcode.E{C: errcode.Failed, Msg: "mode is invalid"}
	ErrConfig          = &errcode.E{C: errcode.Failed, Msg: "configuration error"}
	ErrBufferTooSmall  = &errcode.E{C: errcode.Failed, Msg: "buffer is too small"}
	ErrTimeout         = &errcode.E{C: errcode.Timeout, Msg: "read timeout"}
	ErrInvalidArgument = &errcode.E{C: errcode.InvalidParams, Msg: "argument out of range"}
)

const (
	// settle time after a soft reset
	resetDelay = 10 * time.Millisecond
	// drdy polling budget for reads, readyPolls × pollDelay
	readyPolls = 5000
	pollDelay  = time.Millisecond
)

// Config wires the transports and ambient hooks into a Device.
// Only the transport matching Interface needs to be set.
type Config struct {
	Interface Interface
	// Address defaults to AddrPinLow if zero.
	Address AddrPin

	I2C I2C
	SPI SPI

	// Delay defaults to time.Sleep.
	Delay func(time.Duration)
	// Logger receives diagnostics only. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
	// Callback receives one call per asserted interrupt bit from IRQHandler.
	Callback func(IntStatus)
}

// Device is one BMP384 instance. The caller owns its lifetime.
type Device struct {
	iface Interface
	addr  AddrPin
	i2c   I2C
	spi   SPI

	delay    func(time.Duration)
	log      *zap.SugaredLogger
	callback func(IntStatus)

	inited bool
	cal    Calibration
	tFine  int64

	// Scratch for bus transactions; one extra byte for the SPI dummy.
	buf [fifoMaxLen + 1]byte
}

// New constructs a Device. It does not touch the bus.
func New(cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddrPinLow
	}
	delay := cfg.Delay
	if delay == nil {
		delay = time.Sleep
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Device{
		iface:    cfg.Interface,
		addr:     addr,
		i2c:      cfg.I2C,
		spi:      cfg.SPI,
		delay:    delay,
		log:      log,
		callback: cfg.Callback,
	}
}

// Interface / address selection. Valid before Init.

func (d *Device) SetInterface(i Interface) error {
	if d == nil {
		return ErrNilDevice
	}
	d.iface = i
	return nil
}

func (d *Device) Interface() (Interface, error) {
	if d == nil {
		return 0, ErrNilDevice
	}
	return d.iface, nil
}

func (d *Device) SetAddrPin(a AddrPin) error {
	if d == nil {
		return ErrNilDevice
	}
	d.addr = a
	return nil
}

func (d *Device) AddrPin() (AddrPin, error) {
	if d == nil {
		return 0, ErrNilDevice
	}
	return d.addr, nil
}

// SetCallback replaces the interrupt callback.
func (d *Device) SetCallback(cb func(IntStatus)) error {
	if d == nil {
		return ErrNilDevice
	}
	d.callback = cb
	return nil
}

// Calibration returns the coefficients read at Init.
func (d *Device) Calibration() (Calibration, error) {
	if err := d.ready(); err != nil {
		return Calibration{}, err
	}
	return d.cal, nil
}

// Init opens the bus, checks the chip id, soft-resets the chip and loads the
// calibration table. On failure after the bus was opened it is closed again;
// chip configuration already written is left as is.
func (d *Device) Init() error {
	if d == nil {
		return ErrNilDevice
	}
	if !d.linked() {
		d.log.Debugf("bmp384: %s transport is not linked", d.iface)
		return ErrNotLinked.With("init", nil)
	}
	if err := d.open(); err != nil {
		d.log.Debugf("bmp384: %s init failed: %v", d.iface, err)
		return ErrBusOpen.With("init", err)
	}

	id, err := d.getReg(regChipID)
	if err != nil {
		d.log.Debugf("bmp384: read chip id failed: %v", err)
		_ = d.close()
		return ErrChipID.With("init", err)
	}
	if id != chipID {
		d.log.Debugf("bmp384: chip id is invalid: 0x%02X", id)
		_ = d.close()
		return ErrChipID.With("init", fmt.Errorf("got 0x%02X, want 0x%02X", id, chipID))
	}

	if err := d.reset(); err != nil {
		d.log.Debugf("bmp384: reset failed: %v", err)
		_ = d.close()
		return ErrReset.With("init", err)
	}

	var raw [calibrationLen]byte
	if err := d.read(regNVMParT1, raw[:]); err != nil {
		d.log.Debugf("bmp384: get calibration data failed: %v", err)
		_ = d.close()
		return ErrCalibration.With("init", err)
	}
	d.cal = parseCalibration(raw[:])
	d.inited = true
	return nil
}

// Deinit closes the transport. It does not change the chip's power mode;
// call SetMode(ModeSleep) first to leave the chip in its lowest-power state.
func (d *Device) Deinit() error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.close(); err != nil {
		d.log.Debugf("bmp384: %s deinit failed: %v", d.iface, err)
		return ErrBusClose.With("deinit", err)
	}
	d.inited = false
	return nil
}

// reset issues a soft reset and waits for it to settle.
func (d *Device) reset() error {
	st, err := d.getReg(regStatus)
	if err != nil {
		return err
	}
	if st&StatusCommandReady == 0 {
		return fmt.Errorf("command decoder not ready (status 0x%02X)", st)
	}
	if err := d.setReg(regCmd, cmdSoftReset); err != nil {
		return err
	}
	d.delay(resetDelay)
	e, err := d.getReg(regErr)
	if err != nil {
		return err
	}
	if e&ErrorCmd != 0 {
		return fmt.Errorf("command error (err_reg 0x%02X)", e)
	}
	return nil
}

// ready guards every chip operation.
func (d *Device) ready() error {
	if d == nil {
		return ErrNilDevice
	}
	if !d.inited {
		return ErrNotInitialized
	}
	return nil
}

func (d *Device) linked() bool {
	if d.iface == InterfaceSPI {
		return d.spi != nil
	}
	return d.i2c != nil
}

func (d *Device) open() error {
	if d.iface == InterfaceSPI {
		return d.spi.Open()
	}
	return d.i2c.Open()
}

func (d *Device) close() error {
	if d.iface == InterfaceSPI {
		return d.spi.Close()
	}
	return d.i2c.Close()
}

// Info describes the chip and this driver.
type Info struct {
	ChipName          string
	Manufacturer      string
	Interface         string
	SupplyVoltageMinV float32
	SupplyVoltageMaxV float32
	MaxCurrentMA      float32
	TemperatureMinC   float32
	TemperatureMaxC   float32
	DriverVersion     uint32 // major*1000 + minor*100
}

// ChipInfo returns static chip information.
func ChipInfo() Info {
	return Info{
		ChipName:          "Bosch BMP384",
		Manufacturer:      "Bosch",
		Interface:         "I2C SPI",
		SupplyVoltageMinV: 1.65,
		SupplyVoltageMaxV: 3.6,
		MaxCurrentMA:      0.73,
		TemperatureMinC:   -40.0,
		TemperatureMaxC:   85.0,
		DriverVersion:     1000,
	}
}
