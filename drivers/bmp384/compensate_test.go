package bmp384

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"bmp384-go/drivers/bmp384/bmp384test"
)

func TestCalibrationRoundTrip(t *testing.T) {
	if got := parseCalibration(bmp384test.Calibration[:]); got != sampleCalibration {
		t.Fatalf("parse = %+v", got)
	}
	if got := sampleCalibration.Bytes(); got != bmp384test.Calibration {
		t.Fatalf("bytes = % X", got)
	}

	rng := rand.New(rand.NewSource(384))
	var b [calibrationLen]byte
	for i := 0; i < 1000; i++ {
		rng.Read(b[:])
		if got := parseCalibration(b[:]).Bytes(); got != b {
			t.Fatalf("round trip of % X gave % X", b, got)
		}
	}
}

func TestCompensationVectors(t *testing.T) {
	cal := sampleCalibration
	cases := []struct {
		tRaw, pRaw uint32
		tFine      int64
		centiC     int64
		centiPa    uint64
	}{
		{tRaw: 8394784, pRaw: 6000000, tFine: 1581550, centiC: 2413, centiPa: 10224589},
		{tRaw: 8394784, pRaw: 6610304, tFine: 1581550, centiC: 2413, centiPa: 9112318},
		{tRaw: 8394784, pRaw: 7000000, tFine: 1581550, centiC: 2413, centiPa: 8403164},
		{tRaw: 8394784, pRaw: 5900000, tFine: 1581550, centiC: 2413, centiPa: 10407044},
		{tRaw: 8394784, pRaw: 5950000, tFine: 1581550, centiC: 2413, centiPa: 10315809},
		{tRaw: 8394784, pRaw: 5960000, tFine: 1581550, centiC: 2413, centiPa: 10297564},
		{tRaw: 7950000, pRaw: 6610304, tFine: 1062583, centiC: 1621, centiPa: 8924050},
		{tRaw: 7950000, pRaw: 7000000, tFine: 1062583, centiC: 1621, centiPa: 8225799},
	}
	for _, tc := range cases {
		tFine, centi := cal.compensateTemperature(tc.tRaw)
		if tFine != tc.tFine || centi != tc.centiC {
			t.Fatalf("temp(%d) = %d, %d; want %d, %d", tc.tRaw, tFine, centi, tc.tFine, tc.centiC)
		}
		if got := cal.compensatePressure(tc.pRaw, tFine); got != tc.centiPa {
			t.Fatalf("press(%d, %d) = %d, want %d", tc.pRaw, tFine, got, tc.centiPa)
		}
	}
}

func TestPressureWithoutTemperature(t *testing.T) {
	cal := sampleCalibration
	cases := map[uint32]uint64{
		6000000: 9600756,
		6610304: 8540789,
		7000000: 7864982,
		5900000: 9774632,
		5950000: 9687687,
		5960000: 9670299,
	}
	for raw, want := range cases {
		if got := cal.compensatePressure(raw, 0); got != want {
			t.Fatalf("press(%d, 0) = %d, want %d", raw, got, want)
		}
	}
}

// Cross-check against the datasheet floating point formula.
func TestCompensationMatchesFloat(t *testing.T) {
	c := sampleCalibration
	parT1 := float64(c.T1) / math.Pow(2, -8)
	parT2 := float64(c.T2) / math.Pow(2, 30)
	parT3 := float64(c.T3) / math.Pow(2, 48)

	parP1 := (float64(c.P1) - math.Pow(2, 14)) / math.Pow(2, 20)
	parP2 := (float64(c.P2) - math.Pow(2, 14)) / math.Pow(2, 29)
	parP3 := float64(c.P3) / math.Pow(2, 32)
	parP4 := float64(c.P4) / math.Pow(2, 37)
	parP5 := float64(c.P5) / math.Pow(2, -3)
	parP6 := float64(c.P6) / math.Pow(2, 6)
	parP7 := float64(c.P7) / math.Pow(2, 8)
	parP8 := float64(c.P8) / math.Pow(2, 15)
	parP9 := float64(c.P9) / math.Pow(2, 48)
	parP10 := float64(c.P10) / math.Pow(2, 48)
	parP11 := float64(c.P11) / math.Pow(2, 65)

	floatTemp := func(raw float64) float64 {
		pd1 := raw - parT1
		pd2 := pd1 * parT2
		return pd2 + pd1*pd1*parT3
	}
	floatPress := func(raw, tLin float64) float64 {
		out1 := parP5 + parP6*tLin + parP7*tLin*tLin + parP8*tLin*tLin*tLin
		out2 := raw * (parP1 + parP2*tLin + parP3*tLin*tLin + parP4*tLin*tLin*tLin)
		pd3 := raw * raw * (parP9 + parP10*tLin)
		return out1 + out2 + pd3 + raw*raw*raw*parP11
	}

	for _, tRaw := range []uint32{7600000, 7950000, 8394784, 8700000} {
		tLin := floatTemp(float64(tRaw))
		tFine, centi := c.compensateTemperature(tRaw)
		if math.Abs(float64(centi)/100-tLin) > 0.01 {
			t.Fatalf("temp(%d): integer %.2f vs float %.4f", tRaw, float64(centi)/100, tLin)
		}
		for _, pRaw := range []uint32{5400000, 5900000, 6000000, 6610304, 7000000} {
			want := floatPress(float64(pRaw), tLin)
			got := float64(c.compensatePressure(pRaw, tFine)) / 100
			if math.Abs(got-want) > 1 {
				t.Fatalf("press(%d, %d): integer %.2f Pa vs float %.2f Pa", pRaw, tRaw, got, want)
			}
		}
	}
}

func TestReadTemperaturePressure(t *testing.T) {
	for _, iface := range []Interface{InterfaceI2C, InterfaceSPI} {
		t.Run(iface.String(), func(t *testing.T) {
			d, chip := newDevice(t, iface)
			chip.SetReg(bmp384test.RegPwrCtrl, 0x33)
			chip.SetRaw(8394784, 6000000)

			tRaw, tC, pRaw, pPa, err := d.ReadTemperaturePressure()
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if tRaw != 8394784 || pRaw != 6000000 {
				t.Fatalf("raw = %d, %d", tRaw, pRaw)
			}
			if math.Abs(tC-24.13) > 1e-9 {
				t.Fatalf("tC = %v", tC)
			}
			if math.Abs(pPa-102245.89) > 1e-6 {
				t.Fatalf("pPa = %v", pPa)
			}
			if len(chip.Writes()) != 0 {
				t.Fatalf("normal-mode read wrote to the chip: %+v", chip.Writes())
			}
		})
	}
}

func TestReadFromSleepStartsForcedConversion(t *testing.T) {
	d, chip := newDevice(t, InterfaceI2C)
	chip.SetReg(bmp384test.RegPwrCtrl, 0x03)
	chip.SetRaw(7950000, 6610304)

	_, pa, err := d.ReadPressure()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if math.Abs(pa-89240.50) > 1e-6 {
		t.Fatalf("pa = %v", pa)
	}
	w := chip.Writes()
	if len(w) != 1 || w[0].Reg != regPwrCtrl || w[0].Data[0] != 0x13 {
		t.Fatalf("writes = %+v", w)
	}
}

func TestReadModeErrors(t *testing.T) {
	d, chip := newDevice(t, InterfaceI2C)
	chip.SetReg(bmp384test.RegPwrCtrl, 0x13)
	if _, _, err := d.ReadTemperature(); !errors.Is(err, ErrModeInvalid) {
		t.Fatalf("pending forced: %v", err)
	}

	var polls int
	d.delay = func(time.Duration) { polls++ }
	chip.SetReg(bmp384test.RegPwrCtrl, 0x33)
	chip.SetReg(bmp384test.RegStatus, 0x10)
	if _, _, err := d.ReadTemperature(); !errors.Is(err, ErrTimeout) {
		t.Fatalf("no drdy: %v", err)
	}
	if polls != readyPolls {
		t.Fatalf("polls = %d, want %d", polls, readyPolls)
	}
}

func TestPressureUsesLastFineTemperature(t *testing.T) {
	d, chip := newDevice(t, InterfaceI2C)
	chip.SetReg(bmp384test.RegPwrCtrl, 0x33)
	chip.SetRaw(8394784, 6000000)
	if _, _, err := d.ReadTemperature(); err != nil {
		t.Fatal(err)
	}
	if d.tFine != 1581550 {
		t.Fatalf("tFine = %d", d.tFine)
	}
}
