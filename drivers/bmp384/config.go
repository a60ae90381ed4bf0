package bmp384

import "bmp384-go/x/mathx"

// Field layout of the configuration registers.
const (
	ifConfSPI3  byte = 1 << 0
	ifConfWdtEn byte = 1 << 1
	ifConfWdtP  byte = 1 << 2

	pwrPressEn  byte = 1 << 0
	pwrTempEn   byte = 1 << 1
	pwrModeMask byte = 0x30
	pwrModeSh        = 4

	osrPressMask byte = 0x07
	osrTempMask  byte = 0x38
	osrTempSh         = 3

	odrMask byte = 0x1F

	iirMask byte = 0x0E
	iirSh        = 1

	intOD    byte = 1 << 0
	intLevel byte = 1 << 1
	intLatch byte = 1 << 2
	intFwtm  byte = 1 << 3
	intFfull byte = 1 << 4
	intDrdy  byte = 1 << 6

	fifoMode       byte = 1 << 0
	fifoStopOnFull byte = 1 << 1
	fifoTimeEn     byte = 1 << 2
	fifoPressEn    byte = 1 << 3
	fifoTempEn     byte = 1 << 4

	fifoSubsMask byte = 0x07
	fifoSrcMask  byte = 0x18
	fifoSrcSh         = 3

	fifoWtmMax = 511
)

// setFlag and flag back every boolean setter/getter pair below.
func (d *Device) setFlag(op string, reg, bit byte, on bool) error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.updateReg(reg, bit, boolBit(on, bit)); err != nil {
		d.log.Debugf("bmp384: %s failed: %v", op, err)
		return err
	}
	return nil
}

func (d *Device) flag(reg, bit byte) (bool, error) {
	if err := d.ready(); err != nil {
		return false, err
	}
	v, err := d.getReg(reg)
	if err != nil {
		return false, err
	}
	return v&bit != 0, nil
}

// setField rejects v above limit before any bus traffic.
func (d *Device) setField(op string, reg, mask byte, shift uint, v, limit byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	if !mathx.Between(v, 0, limit) {
		return ErrInvalidArgument.With(op, nil)
	}
	if err := d.updateReg(reg, mask, v<<shift); err != nil {
		d.log.Debugf("bmp384: %s failed: %v", op, err)
		return err
	}
	return nil
}

func (d *Device) getField(reg, mask byte, shift uint) (byte, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	return d.field(reg, mask, shift)
}

// IF_CONF

func (d *Device) SetSPIWire(w SPIWire) error {
	return d.setFlag("set spi wire", regIfConf, ifConfSPI3, w == SPIWire3)
}

func (d *Device) SPIWire() (SPIWire, error) {
	on, err := d.flag(regIfConf, ifConfSPI3)
	if on {
		return SPIWire3, err
	}
	return SPIWire4, err
}

func (d *Device) SetI2CWatchdogTimer(enable bool) error {
	return d.setFlag("set iic watchdog timer", regIfConf, ifConfWdtEn, enable)
}

func (d *Device) I2CWatchdogTimer() (bool, error) {
	return d.flag(regIfConf, ifConfWdtEn)
}

func (d *Device) SetI2CWatchdogPeriod(p WatchdogPeriod) error {
	return d.setFlag("set iic watchdog period", regIfConf, ifConfWdtP, p == WatchdogPeriod40ms)
}

func (d *Device) I2CWatchdogPeriod() (WatchdogPeriod, error) {
	on, err := d.flag(regIfConf, ifConfWdtP)
	if on {
		return WatchdogPeriod40ms, err
	}
	return WatchdogPeriod1p25ms, err
}

// PWR_CTRL

func (d *Device) SetPressure(enable bool) error {
	return d.setFlag("set pressure", regPwrCtrl, pwrPressEn, enable)
}

func (d *Device) Pressure() (bool, error) {
	return d.flag(regPwrCtrl, pwrPressEn)
}

func (d *Device) SetTemperature(enable bool) error {
	return d.setFlag("set temperature", regPwrCtrl, pwrTempEn, enable)
}

func (d *Device) Temperature() (bool, error) {
	return d.flag(regPwrCtrl, pwrTempEn)
}

// SetMode writes the power mode. Entering forced or normal mode makes the
// chip validate the OSR/ODR combination; a rejected combination is
// reported as ErrConfig.
func (d *Device) SetMode(m Mode) error {
	if err := d.ready(); err != nil {
		return err
	}
	if m != ModeSleep && m != ModeForced && m != ModeNormal {
		return ErrInvalidArgument.With("set mode", nil)
	}
	if err := d.setField("set mode", regPwrCtrl, pwrModeMask, pwrModeSh, byte(m), byte(ModeNormal)); err != nil {
		return err
	}
	if m == ModeSleep {
		return nil
	}
	e, err := d.getReg(regErr)
	if err != nil {
		return err
	}
	if e&ErrorConf != 0 {
		d.log.Debugf("bmp384: set mode %s rejected, err_reg 0x%02X", m, e)
		return ErrConfig.With("set mode", nil)
	}
	return nil
}

// Mode reports the power mode; the chip reports forced as 1 or 2.
func (d *Device) Mode() (Mode, error) {
	v, err := d.getField(regPwrCtrl, pwrModeMask, pwrModeSh)
	if err != nil {
		return 0, err
	}
	if v == 0x02 {
		return ModeForced, nil
	}
	return Mode(v), nil
}

// OSR

func (d *Device) SetPressureOversampling(o Oversampling) error {
	return d.setField("set pressure oversampling", regOSR, osrPressMask, 0, byte(o), byte(Oversampling32x))
}

func (d *Device) PressureOversampling() (Oversampling, error) {
	v, err := d.getField(regOSR, osrPressMask, 0)
	return Oversampling(v), err
}

func (d *Device) SetTemperatureOversampling(o Oversampling) error {
	return d.setField("set temperature oversampling", regOSR, osrTempMask, osrTempSh, byte(o), byte(Oversampling32x))
}

func (d *Device) TemperatureOversampling() (Oversampling, error) {
	v, err := d.getField(regOSR, osrTempMask, osrTempSh)
	return Oversampling(v), err
}

// ODR and IIR filter

func (d *Device) SetODR(o ODR) error {
	return d.setField("set odr", regODR, odrMask, 0, byte(o), byte(ODR0p0015Hz))
}

func (d *Device) ODR() (ODR, error) {
	v, err := d.getField(regODR, odrMask, 0)
	return ODR(v), err
}

func (d *Device) SetFilterCoefficient(c FilterCoefficient) error {
	return d.setField("set filter coefficient", regConfig, iirMask, iirSh, byte(c), byte(FilterCoeff127))
}

func (d *Device) FilterCoefficient() (FilterCoefficient, error) {
	v, err := d.getField(regConfig, iirMask, iirSh)
	return FilterCoefficient(v), err
}

// INT_CTRL

func (d *Device) SetInterruptPinType(t InterruptPinType) error {
	return d.setFlag("set interrupt pin type", regIntCtrl, intOD, t == InterruptOpenDrain)
}

func (d *Device) InterruptPinType() (InterruptPinType, error) {
	on, err := d.flag(regIntCtrl, intOD)
	if on {
		return InterruptOpenDrain, err
	}
	return InterruptPushPull, err
}

func (d *Device) SetInterruptActiveLevel(l InterruptActiveLevel) error {
	return d.setFlag("set interrupt active level", regIntCtrl, intLevel, l == InterruptActiveHigh)
}

func (d *Device) InterruptActiveLevel() (InterruptActiveLevel, error) {
	on, err := d.flag(regIntCtrl, intLevel)
	if on {
		return InterruptActiveHigh, err
	}
	return InterruptActiveLow, err
}

func (d *Device) SetLatchInterrupt(enable bool) error {
	return d.setFlag("set latch interrupt", regIntCtrl, intLatch, enable)
}

func (d *Device) LatchInterrupt() (bool, error) {
	return d.flag(regIntCtrl, intLatch)
}

func (d *Device) SetInterruptFIFOWatermark(enable bool) error {
	return d.setFlag("set interrupt fifo watermark", regIntCtrl, intFwtm, enable)
}

func (d *Device) InterruptFIFOWatermark() (bool, error) {
	return d.flag(regIntCtrl, intFwtm)
}

func (d *Device) SetInterruptFIFOFull(enable bool) error {
	return d.setFlag("set interrupt fifo full", regIntCtrl, intFfull, enable)
}

func (d *Device) InterruptFIFOFull() (bool, error) {
	return d.flag(regIntCtrl, intFfull)
}

func (d *Device) SetInterruptDataReady(enable bool) error {
	return d.setFlag("set interrupt data ready", regIntCtrl, intDrdy, enable)
}

func (d *Device) InterruptDataReady() (bool, error) {
	return d.flag(regIntCtrl, intDrdy)
}

// FIFO_CONFIG_1

func (d *Device) SetFIFO(enable bool) error {
	return d.setFlag("set fifo", regFIFOConfig1, fifoMode, enable)
}

func (d *Device) FIFO() (bool, error) {
	return d.flag(regFIFOConfig1, fifoMode)
}

func (d *Device) SetFIFOStopOnFull(enable bool) error {
	return d.setFlag("set fifo stop on full", regFIFOConfig1, fifoStopOnFull, enable)
}

func (d *Device) FIFOStopOnFull() (bool, error) {
	return d.flag(regFIFOConfig1, fifoStopOnFull)
}

func (d *Device) SetFIFOSensorTime(enable bool) error {
	return d.setFlag("set fifo sensortime", regFIFOConfig1, fifoTimeEn, enable)
}

func (d *Device) FIFOSensorTime() (bool, error) {
	return d.flag(regFIFOConfig1, fifoTimeEn)
}

func (d *Device) SetFIFOPressure(enable bool) error {
	return d.setFlag("set fifo pressure", regFIFOConfig1, fifoPressEn, enable)
}

func (d *Device) FIFOPressure() (bool, error) {
	return d.flag(regFIFOConfig1, fifoPressEn)
}

func (d *Device) SetFIFOTemperature(enable bool) error {
	return d.setFlag("set fifo temperature", regFIFOConfig1, fifoTempEn, enable)
}

func (d *Device) FIFOTemperature() (bool, error) {
	return d.flag(regFIFOConfig1, fifoTempEn)
}

// FIFO_CONFIG_2

// SetFIFOSubsampling keeps every 2^n-th sample, n in 0..7.
func (d *Device) SetFIFOSubsampling(n uint8) error {
	return d.setField("set fifo subsampling", regFIFOConfig2, fifoSubsMask, 0, n, 7)
}

func (d *Device) FIFOSubsampling() (uint8, error) {
	return d.getField(regFIFOConfig2, fifoSubsMask, 0)
}

func (d *Device) SetFIFODataSource(s FIFODataSource) error {
	return d.setField("set fifo data source", regFIFOConfig2, fifoSrcMask, fifoSrcSh, byte(s), byte(FIFOSourceFiltered))
}

func (d *Device) FIFODataSource() (FIFODataSource, error) {
	v, err := d.getField(regFIFOConfig2, fifoSrcMask, fifoSrcSh)
	return FIFODataSource(v), err
}

// FIFO_WTM_0/1

// SetFIFOWatermark sets the watermark level in bytes, 0..511.
func (d *Device) SetFIFOWatermark(level uint16) error {
	if err := d.ready(); err != nil {
		return err
	}
	if level > fifoWtmMax {
		return ErrInvalidArgument.With("set fifo watermark", nil)
	}
	if err := d.setReg(regFIFOWtm0, byte(level)); err != nil {
		d.log.Debugf("bmp384: set fifo watermark failed: %v", err)
		return err
	}
	if err := d.updateReg(regFIFOWtm1, 0x01, byte(level>>8)); err != nil {
		d.log.Debugf("bmp384: set fifo watermark failed: %v", err)
		return err
	}
	return nil
}

func (d *Device) FIFOWatermark() (uint16, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	var b [2]byte
	if err := d.read(regFIFOWtm0, b[:]); err != nil {
		return 0, err
	}
	return uint16(b[1]&0x01)<<8 | uint16(b[0]), nil
}
