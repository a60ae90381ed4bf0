package bmp384

// waitData makes sure a fresh pressure/temperature pair is in DATA.
// In sleep mode it starts a forced conversion; in normal mode it waits for
// the next one. A forced conversion already in flight belongs to someone
// else and is reported as ErrModeInvalid.
func (d *Device) waitData(op string) error {
	mode, err := d.field(regPwrCtrl, pwrModeMask, pwrModeSh)
	if err != nil {
		return err
	}
	switch Mode(mode) {
	case ModeNormal:
	case ModeSleep:
		if err := d.updateReg(regPwrCtrl, pwrModeMask, byte(ModeForced)<<pwrModeSh); err != nil {
			return err
		}
	default:
		d.log.Debugf("bmp384: %s: forced conversion pending", op)
		return ErrModeInvalid.With(op, nil)
	}

	const drdy = StatusPressReady | StatusTempReady
	for i := 0; i < readyPolls; i++ {
		st, err := d.getReg(regStatus)
		if err != nil {
			return err
		}
		if st&drdy == drdy {
			return nil
		}
		d.delay(pollDelay)
	}
	d.log.Debugf("bmp384: %s: data not ready", op)
	return ErrTimeout.With(op, nil)
}

// readRaw fetches DATA_0..DATA_5 and returns the 24-bit samples.
func (d *Device) readRaw(op string) (tRaw, pRaw uint32, err error) {
	if err := d.waitData(op); err != nil {
		return 0, 0, err
	}
	var b [6]byte
	if err := d.read(regData0, b[:]); err != nil {
		d.log.Debugf("bmp384: %s: read data failed: %v", op, err)
		return 0, 0, err
	}
	return raw24(b[3:6]), raw24(b[0:3]), nil
}

// ReadTemperaturePressure reads one sample pair and returns the raw values
// together with °C and Pa. Temperature is compensated first; pressure uses
// the fine temperature it produced.
func (d *Device) ReadTemperaturePressure() (tRaw uint32, tC float64, pRaw uint32, pPa float64, err error) {
	if err = d.ready(); err != nil {
		return
	}
	tRaw, pRaw, err = d.readRaw("read temperature pressure")
	if err != nil {
		return
	}
	tC = d.temperatureC(tRaw)
	pPa = d.pressurePa(pRaw)
	return
}

// ReadTemperature reads one sample pair and returns the temperature.
func (d *Device) ReadTemperature() (raw uint32, c float64, err error) {
	raw, c, _, _, err = d.ReadTemperaturePressure()
	return
}

// ReadPressure reads one sample pair and returns the pressure. The
// temperature of the same pair is compensated first.
func (d *Device) ReadPressure() (raw uint32, pa float64, err error) {
	_, _, raw, pa, err = d.ReadTemperaturePressure()
	return
}
