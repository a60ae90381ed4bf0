package bmp384

// ErrorFlags returns ERR_REG (ErrorFatal, ErrorCmd, ErrorConf).
func (d *Device) ErrorFlags() (byte, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	return d.getReg(regErr)
}

// Status returns the STATUS register (StatusCommandReady and the drdy bits).
func (d *Device) Status() (byte, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	return d.getReg(regStatus)
}

// SensorTime returns the 24-bit sensor time counter.
func (d *Device) SensorTime() (uint32, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	var b [3]byte
	if err := d.read(regSensorTime0, b[:]); err != nil {
		return 0, err
	}
	return raw24(b[:]), nil
}

// Event reports whether a power-up or soft reset occurred. The chip clears
// the flag on read.
func (d *Device) Event() (Event, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	v, err := d.getReg(regEvent)
	if err != nil {
		return 0, err
	}
	return Event(v & byte(EventPowerUpOrSoftReset)), nil
}

// InterruptStatus returns INT_STATUS without dispatching. Reading clears it.
func (d *Device) InterruptStatus() (IntStatus, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	v, err := d.getReg(regIntStatus)
	return IntStatus(v), err
}

// SoftReset resets the chip. Calibration stays valid.
func (d *Device) SoftReset() error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.reset(); err != nil {
		d.log.Debugf("bmp384: soft reset failed: %v", err)
		return ErrReset.With("soft reset", err)
	}
	return nil
}

// ExtmodeEnMiddle sends the extmode_en_middle command.
func (d *Device) ExtmodeEnMiddle() error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.command("extmode en middle", cmdExtmodeEnMiddle)
}

// command writes CMD once the decoder is ready and checks ERR_REG after.
func (d *Device) command(op string, cmd byte) error {
	st, err := d.getReg(regStatus)
	if err != nil {
		return err
	}
	if st&StatusCommandReady == 0 {
		d.log.Debugf("bmp384: %s: command not ready", op)
		return ErrModeInvalid.With(op, nil)
	}
	if err := d.setReg(regCmd, cmd); err != nil {
		return err
	}
	e, err := d.getReg(regErr)
	if err != nil {
		return err
	}
	if e&ErrorCmd != 0 {
		d.log.Debugf("bmp384: %s: command error", op)
		return ErrConfig.With(op, nil)
	}
	return nil
}
