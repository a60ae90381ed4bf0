package bmp384

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"bmp384-go/drivers/bmp384/bmp384test"
)

// Raw samples used below: temperature 8394784 (24.13 °C, t_fine 1581550)
// and pressure 6000000.
var (
	tBytes = []byte{0x20, 0x18, 0x80}
	pBytes = []byte{0x80, 0x8D, 0x5B}
)

func frameBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestParseFIFO(t *testing.T) {
	tempFrame := Frame{Type: FrameTemperature, Raw: 8394784, Data: 24.13}
	pressFrame := Frame{Type: FramePressure, Raw: 6000000, Data: 102245.89}
	coldPress := Frame{Type: FramePressure, Raw: 6000000, Data: 96007.56}

	cases := []struct {
		name   string
		buf    []byte
		frames int
		want   []Frame
	}{
		{name: "empty buffer", buf: nil, frames: 8, want: []Frame{}},
		{
			name:   "pressure before any temperature",
			buf:    frameBytes([]byte{0x84}, pBytes),
			frames: 8,
			want:   []Frame{coldPress},
		},
		{
			name:   "temperature then pressure",
			buf:    frameBytes([]byte{0x90}, tBytes, []byte{0x84}, pBytes),
			frames: 8,
			want:   []Frame{tempFrame, pressFrame},
		},
		{
			name:   "combined frame",
			buf:    frameBytes([]byte{0x94}, tBytes, pBytes),
			frames: 8,
			want:   []Frame{tempFrame, pressFrame},
		},
		{
			name:   "sensor time",
			buf:    []byte{0xA0, 0x01, 0x02, 0x03},
			frames: 8,
			want:   []Frame{{Type: FrameSensorTime, Raw: 0x030201, Data: 0x030201}},
		},
		{
			name:   "empty marker stops",
			buf:    frameBytes([]byte{0x90}, tBytes, []byte{0x80, 0x84}, pBytes),
			frames: 8,
			want:   []Frame{tempFrame},
		},
		{
			name:   "config error stops",
			buf:    frameBytes([]byte{0x44, 0x90}, tBytes),
			frames: 8,
			want:   []Frame{},
		},
		{
			name:   "config change skipped",
			buf:    frameBytes([]byte{0x48, 0x00, 0x90}, tBytes),
			frames: 8,
			want:   []Frame{tempFrame},
		},
		{
			name:   "unknown header resyncs",
			buf:    frameBytes([]byte{0x01, 0x02, 0x90}, tBytes),
			frames: 8,
			want:   []Frame{tempFrame},
		},
		{
			name:   "truncated frame",
			buf:    frameBytes([]byte{0x90}, tBytes, []byte{0x84, 0x80, 0x8D}),
			frames: 8,
			want:   []Frame{tempFrame},
		},
		{
			name:   "capacity",
			buf:    frameBytes([]byte{0x90}, tBytes, []byte{0x84}, pBytes, []byte{0x90}, tBytes),
			frames: 2,
			want:   []Frame{tempFrame, pressFrame},
		},
		{
			name:   "capacity splits combined frame",
			buf:    frameBytes([]byte{0x94}, tBytes, pBytes),
			frames: 1,
			want:   []Frame{tempFrame},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newDevice(t, InterfaceI2C)
			frames := make([]Frame, tc.frames)
			n, err := d.ParseFIFO(tc.buf, frames)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if diff := cmp.Diff(tc.want, frames[:n], cmpopts.EquateApprox(0, 1e-6)); diff != "" {
				t.Fatalf("frames (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFIFOInheritsFineTemperature(t *testing.T) {
	d, chip := newDevice(t, InterfaceI2C)
	chip.SetReg(bmp384test.RegPwrCtrl, 0x33)
	chip.SetRaw(8394784, 6000000)
	if _, _, _, _, err := d.ReadTemperaturePressure(); err != nil {
		t.Fatal(err)
	}

	frames := make([]Frame, 1)
	n, err := d.ParseFIFO(frameBytes([]byte{0x84}, pBytes), frames)
	if err != nil || n != 1 {
		t.Fatalf("parse = %d, %v", n, err)
	}
	want := Frame{Type: FramePressure, Raw: 6000000, Data: 102245.89}
	if diff := cmp.Diff(want, frames[0], cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Fatalf("frame (-want +got):\n%s", diff)
	}
}

func TestReadFIFO(t *testing.T) {
	for _, iface := range []Interface{InterfaceI2C, InterfaceSPI} {
		t.Run(iface.String(), func(t *testing.T) {
			d, chip := newDevice(t, iface)
			stream := frameBytes([]byte{0x94}, tBytes, pBytes, []byte{0xA0, 0x10, 0x00, 0x00})
			chip.PushFIFO(stream...)

			if n, err := d.FIFOLength(); err != nil || int(n) != len(stream) {
				t.Fatalf("length = %d, %v", n, err)
			}
			if _, err := d.ReadFIFO(make([]byte, 4)); !errors.Is(err, ErrBufferTooSmall) {
				t.Fatalf("small buffer: %v", err)
			}

			buf := make([]byte, fifoMaxLen)
			n, err := d.ReadFIFO(buf)
			if err != nil {
				t.Fatalf("read fifo: %v", err)
			}
			if diff := cmp.Diff(stream, buf[:n]); diff != "" {
				t.Fatalf("fifo bytes (-want +got):\n%s", diff)
			}
			if n, err := d.ReadFIFO(buf); err != nil || n != 0 {
				t.Fatalf("drained fifo = %d, %v", n, err)
			}
		})
	}
}

func TestFIFODataAndFlush(t *testing.T) {
	d, chip := newDevice(t, InterfaceI2C)
	chip.PushFIFO(0x90, 0x01, 0x02, 0x03)
	buf := make([]byte, 2)
	if err := d.FIFOData(buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x90 || buf[1] != 0x01 {
		t.Fatalf("fifo data = % X", buf)
	}
	if err := d.FIFOData(make([]byte, fifoMaxLen+1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("oversized read: %v", err)
	}
	if err := d.FlushFIFO(); err != nil {
		t.Fatal(err)
	}
	if n, _ := d.FIFOLength(); n != 0 {
		t.Fatalf("length after flush = %d", n)
	}
	if diff := cmp.Diff([]byte{cmdFIFOFlush}, chip.Commands); diff != "" {
		t.Fatalf("commands (-want +got):\n%s", diff)
	}
}
