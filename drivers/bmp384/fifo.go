package bmp384

// FIFO frame headers.
const (
	fifoHdrPress     = 0x84
	fifoHdrTemp      = 0x90
	fifoHdrTempPress = 0x94
	fifoHdrTime      = 0xA0
	fifoHdrEmpty     = 0x80
	fifoHdrCfgErr    = 0x44
	fifoHdrCfgChange = 0x48
)

type FrameType uint8

const (
	FrameTemperature FrameType = iota + 1
	FramePressure
	FrameSensorTime
)

func (t FrameType) String() string {
	switch t {
	case FrameTemperature:
		return "temperature"
	case FramePressure:
		return "pressure"
	case FrameSensorTime:
		return "sensortime"
	default:
		return "unknown"
	}
}

// Frame is one decoded FIFO entry. Data is °C, Pa or the sensor time count.
type Frame struct {
	Type FrameType
	Raw  uint32
	Data float64
}

// FIFOLength returns the number of bytes currently in the FIFO.
func (d *Device) FIFOLength() (uint16, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	return d.fifoLength()
}

func (d *Device) fifoLength() (uint16, error) {
	var b [2]byte
	if err := d.read(regFIFOLength0, b[:]); err != nil {
		return 0, err
	}
	return uint16(b[1]&0x01)<<8 | uint16(b[0]), nil
}

// FIFOData burst-reads len(buf) bytes from FIFO_DATA, at most 512.
func (d *Device) FIFOData(buf []byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	if len(buf) > fifoMaxLen {
		return ErrInvalidArgument.With("fifo data", nil)
	}
	return d.read(regFIFOData, buf)
}

// FlushFIFO clears the FIFO. Its configuration is kept.
func (d *Device) FlushFIFO() error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.command("flush fifo", cmdFIFOFlush)
}

// ReadFIFO drains the FIFO into buf and returns the byte count. buf must
// hold at least the reported FIFO length.
func (d *Device) ReadFIFO(buf []byte) (int, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	n, err := d.fifoLength()
	if err != nil {
		d.log.Debugf("bmp384: read fifo length failed: %v", err)
		return 0, err
	}
	if int(n) > len(buf) {
		d.log.Debugf("bmp384: fifo holds %d bytes, buffer is %d", n, len(buf))
		return 0, ErrBufferTooSmall.With("read fifo", nil)
	}
	if n == 0 {
		return 0, nil
	}
	if err := d.read(regFIFOData, buf[:n]); err != nil {
		d.log.Debugf("bmp384: read fifo failed: %v", err)
		return 0, err
	}
	return int(n), nil
}

// ParseFIFO decodes buf into frames and returns how many were written.
// Decoding stops at an empty or config-error marker, at a truncated frame,
// or when frames is full. Pressure frames are compensated with the fine
// temperature of the last temperature compensation on this Device, which
// may come from an earlier read.
func (d *Device) ParseFIFO(buf []byte, frames []Frame) (int, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	n := 0
	i := 0
	for i < len(buf) && n < len(frames) {
		switch buf[i] {
		case fifoHdrTime:
			if i+4 > len(buf) {
				return n, nil
			}
			raw := raw24(buf[i+1 : i+4])
			frames[n] = Frame{Type: FrameSensorTime, Raw: raw, Data: float64(raw)}
			n++
			i += 4
		case fifoHdrTemp:
			if i+4 > len(buf) {
				return n, nil
			}
			raw := raw24(buf[i+1 : i+4])
			frames[n] = Frame{Type: FrameTemperature, Raw: raw, Data: d.temperatureC(raw)}
			n++
			i += 4
		case fifoHdrPress:
			if i+4 > len(buf) {
				return n, nil
			}
			raw := raw24(buf[i+1 : i+4])
			frames[n] = Frame{Type: FramePressure, Raw: raw, Data: d.pressurePa(raw)}
			n++
			i += 4
		case fifoHdrTempPress:
			if i+7 > len(buf) {
				return n, nil
			}
			traw := raw24(buf[i+1 : i+4])
			frames[n] = Frame{Type: FrameTemperature, Raw: traw, Data: d.temperatureC(traw)}
			n++
			if n < len(frames) {
				praw := raw24(buf[i+4 : i+7])
				frames[n] = Frame{Type: FramePressure, Raw: praw, Data: d.pressurePa(praw)}
				n++
			}
			i += 7
		case fifoHdrCfgChange:
			i += 2
		case fifoHdrEmpty, fifoHdrCfgErr:
			return n, nil
		default:
			i++
		}
	}
	return n, nil
}
