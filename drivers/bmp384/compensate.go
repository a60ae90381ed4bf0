package bmp384

// Integer compensation from the Bosch BMP3 reference driver. All
// intermediates are int64; the divisions truncate toward zero as in C.

// compensateTemperature returns the linearised temperature (t_fine) and the
// temperature in hundredths of a degree Celsius.
func (c *Calibration) compensateTemperature(raw uint32) (tFine, centiC int64) {
	pd1 := int64(raw) - 256*int64(c.T1)
	pd2 := int64(c.T2) * pd1
	pd3 := pd1 * pd1
	pd4 := pd3 * int64(c.T3)
	pd5 := pd2*262144 + pd4
	tFine = pd5 / 4294967296
	centiC = tFine * 25 / 16384
	return tFine, centiC
}

// compensatePressure returns the pressure in hundredths of a pascal.
func (c *Calibration) compensatePressure(raw uint32, tFine int64) uint64 {
	p := int64(raw)

	pd1 := tFine * tFine
	pd2 := pd1 / 64
	pd3 := pd2 * tFine / 256
	pd4 := int64(c.P8) * pd3 / 32
	pd5 := int64(c.P7) * pd1 * 16
	pd6 := int64(c.P6) * tFine * 4194304
	offset := int64(c.P5)*140737488355328 + pd4 + pd5 + pd6

	pd2 = int64(c.P4) * pd3 / 32
	pd4 = int64(c.P3) * pd1 * 4
	pd5 = (int64(c.P2) - 16384) * tFine * 2097152
	sensitivity := (int64(c.P1)-16384)*70368744177664 + pd2 + pd4 + pd5

	pd1 = sensitivity / 16777216 * p
	pd2 = int64(c.P10) * tFine
	pd3 = pd2 + 65536*int64(c.P9)
	pd4 = pd3 * p / 8192
	// split by 10 so p*pd4 stays in range
	pd5 = p * (pd4 / 10) / 512
	pd5 *= 10
	pd6 = int64(uint64(p) * uint64(p))
	pd2 = int64(c.P11) * pd6 / 65536
	pd3 = pd2 * p / 128
	pd4 = offset/4 + pd1 + pd5 + pd3

	return uint64(pd4) * 25 / 1099511627776
}

func (d *Device) temperatureC(raw uint32) float64 {
	tFine, centi := d.cal.compensateTemperature(raw)
	d.tFine = tFine
	return float64(centi) / 100
}

// pressurePa uses the t_fine of the most recent temperature compensation.
func (d *Device) pressurePa(raw uint32) float64 {
	return float64(d.cal.compensatePressure(raw, d.tFine)) / 100
}
