package bmp384

// read fills buf from consecutive registers starting at reg.
// On SPI the read bit is set and the leading dummy byte is dropped.
func (d *Device) read(reg uint8, buf []byte) error {
	if d.iface == InterfaceI2C {
		if err := d.i2c.Read(uint8(d.addr), reg, buf); err != nil {
			return ErrIO.With("read", err)
		}
		return nil
	}
	n := len(buf)
	if n > fifoMaxLen {
		return ErrBufferTooSmall.With("read", nil)
	}
	scratch := d.buf[:n+1]
	if err := d.spi.Read(reg|spiReadBit, scratch); err != nil {
		return ErrIO.With("read", err)
	}
	copy(buf, scratch[1:])
	return nil
}

// write sends buf to consecutive registers starting at reg.
func (d *Device) write(reg uint8, buf []byte) error {
	var err error
	if d.iface == InterfaceI2C {
		err = d.i2c.Write(uint8(d.addr), reg, buf)
	} else {
		err = d.spi.Write(reg&^spiReadBit, buf)
	}
	if err != nil {
		return ErrIO.With("write", err)
	}
	return nil
}

func (d *Device) getReg(reg uint8) (byte, error) {
	var b [1]byte
	if err := d.read(reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Device) setReg(reg uint8, v byte) error {
	b := [1]byte{v}
	return d.write(reg, b[:])
}

// updateReg performs a read-modify-write of the bits in mask.
// Nothing is written if the read fails.
func (d *Device) updateReg(reg, mask, value byte) error {
	cur, err := d.getReg(reg)
	if err != nil {
		return err
	}
	return d.setReg(reg, (cur&^mask)|(value&mask))
}

// field extracts the bits in mask, shifted down to bit zero.
func (d *Device) field(reg, mask byte, shift uint) (byte, error) {
	cur, err := d.getReg(reg)
	if err != nil {
		return 0, err
	}
	return (cur & mask) >> shift, nil
}

func boolBit(on bool, bit byte) byte {
	if on {
		return bit
	}
	return 0
}

// GetReg reads one register. Diagnostic access.
func (d *Device) GetReg(reg uint8) (byte, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	return d.getReg(reg)
}

// SetReg writes one register. Diagnostic access.
func (d *Device) SetReg(reg uint8, v byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.setReg(reg, v)
}
