package bmp384

import "encoding/binary"

// Calibration holds the factory trimming coefficients from NVM
// (0x31..0x45), in the chip's native integer form.
type Calibration struct {
	T1 uint16
	T2 uint16
	T3 int8

	P1  int16
	P2  int16
	P3  int8
	P4  int8
	P5  uint16
	P6  uint16
	P7  int8
	P8  int8
	P9  int16
	P10 int8
	P11 int8
}

func parseCalibration(b []byte) Calibration {
	le := binary.LittleEndian
	return Calibration{
		T1: le.Uint16(b[0:2]),
		T2: le.Uint16(b[2:4]),
		T3: int8(b[4]),

		P1:  int16(le.Uint16(b[5:7])),
		P2:  int16(le.Uint16(b[7:9])),
		P3:  int8(b[9]),
		P4:  int8(b[10]),
		P5:  le.Uint16(b[11:13]),
		P6:  le.Uint16(b[13:15]),
		P7:  int8(b[15]),
		P8:  int8(b[16]),
		P9:  int16(le.Uint16(b[17:19])),
		P10: int8(b[19]),
		P11: int8(b[20]),
	}
}

// Bytes returns the 21-byte NVM image the coefficients were read from.
func (c Calibration) Bytes() [calibrationLen]byte {
	var b [calibrationLen]byte
	le := binary.LittleEndian
	le.PutUint16(b[0:2], c.T1)
	le.PutUint16(b[2:4], c.T2)
	b[4] = byte(c.T3)
	le.PutUint16(b[5:7], uint16(c.P1))
	le.PutUint16(b[7:9], uint16(c.P2))
	b[9] = byte(c.P3)
	b[10] = byte(c.P4)
	le.PutUint16(b[11:13], c.P5)
	le.PutUint16(b[13:15], c.P6)
	b[15] = byte(c.P7)
	b[16] = byte(c.P8)
	le.PutUint16(b[17:19], uint16(c.P9))
	b[19] = byte(c.P10)
	b[20] = byte(c.P11)
	return b
}

// raw24 assembles a little-endian 24-bit sample.
func raw24(b []byte) uint32 {
	return uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}
