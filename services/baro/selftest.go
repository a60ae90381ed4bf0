package baro

import (
	"fmt"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"

	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
)

// ErrMismatch reports a register that did not read back what was written.
var ErrMismatch = &errcode.E{C: errcode.Failed, Msg: "read back mismatch"}

type roundTrip struct {
	name string
	vals []uint16
	set  func(v uint16) error
	get  func() (uint16, error)
}

func boolTrip(name string, set func(bool) error, get func() (bool, error)) roundTrip {
	return roundTrip{
		name: name,
		vals: []uint16{1, 0},
		set:  func(v uint16) error { return set(v == 1) },
		get: func() (uint16, error) {
			b, err := get()
			if b {
				return 1, err
			}
			return 0, err
		},
	}
}

func enumTrip[T ~uint8](name string, vals []T, set func(T) error, get func() (T, error)) roundTrip {
	vs := make([]uint16, len(vals))
	for i, v := range vals {
		vs[i] = uint16(v)
	}
	return roundTrip{
		name: name,
		vals: vs,
		set:  func(v uint16) error { return set(T(v)) },
		get: func() (uint16, error) {
			v, err := get()
			return uint16(v), err
		},
	}
}

// RegisterTest writes every configuration field, reads it back and finally
// soft-resets the chip. The first failure is returned.
func RegisterTest(dev *bmp384.Device, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	trips := []roundTrip{
		enumTrip("spi wire", []bmp384.SPIWire{bmp384.SPIWire3, bmp384.SPIWire4}, dev.SetSPIWire, dev.SPIWire),
		boolTrip("iic watchdog", dev.SetI2CWatchdogTimer, dev.I2CWatchdogTimer),
		enumTrip("iic watchdog period", []bmp384.WatchdogPeriod{bmp384.WatchdogPeriod40ms, bmp384.WatchdogPeriod1p25ms},
			dev.SetI2CWatchdogPeriod, dev.I2CWatchdogPeriod),
		boolTrip("fifo", dev.SetFIFO, dev.FIFO),
		boolTrip("fifo stop on full", dev.SetFIFOStopOnFull, dev.FIFOStopOnFull),
		boolTrip("fifo sensor time", dev.SetFIFOSensorTime, dev.FIFOSensorTime),
		boolTrip("fifo pressure", dev.SetFIFOPressure, dev.FIFOPressure),
		boolTrip("fifo temperature", dev.SetFIFOTemperature, dev.FIFOTemperature),
		{
			name: "fifo watermark",
			vals: []uint16{0x1FF, 0x0AA, 0},
			set:  dev.SetFIFOWatermark,
			get:  dev.FIFOWatermark,
		},
		enumTrip("fifo subsampling", []uint8{7, 3, 0}, dev.SetFIFOSubsampling, dev.FIFOSubsampling),
		enumTrip("fifo data source", []bmp384.FIFODataSource{bmp384.FIFOSourceFiltered, bmp384.FIFOSourceUnfiltered},
			dev.SetFIFODataSource, dev.FIFODataSource),
		enumTrip("interrupt pin type", []bmp384.InterruptPinType{bmp384.InterruptOpenDrain, bmp384.InterruptPushPull},
			dev.SetInterruptPinType, dev.InterruptPinType),
		enumTrip("interrupt active level", []bmp384.InterruptActiveLevel{bmp384.InterruptActiveLow, bmp384.InterruptActiveHigh},
			dev.SetInterruptActiveLevel, dev.InterruptActiveLevel),
		boolTrip("latch interrupt", dev.SetLatchInterrupt, dev.LatchInterrupt),
		boolTrip("interrupt fifo watermark", dev.SetInterruptFIFOWatermark, dev.InterruptFIFOWatermark),
		boolTrip("interrupt fifo full", dev.SetInterruptFIFOFull, dev.InterruptFIFOFull),
		boolTrip("interrupt data ready", dev.SetInterruptDataReady, dev.InterruptDataReady),
		boolTrip("pressure", dev.SetPressure, dev.Pressure),
		boolTrip("temperature", dev.SetTemperature, dev.Temperature),
		enumTrip("pressure oversampling", []bmp384.Oversampling{bmp384.Oversampling32x, bmp384.Oversampling4x, bmp384.Oversampling1x},
			dev.SetPressureOversampling, dev.PressureOversampling),
		enumTrip("temperature oversampling", []bmp384.Oversampling{bmp384.Oversampling16x, bmp384.Oversampling2x, bmp384.Oversampling1x},
			dev.SetTemperatureOversampling, dev.TemperatureOversampling),
		enumTrip("odr", []bmp384.ODR{bmp384.ODR0p0015Hz, bmp384.ODR12p5Hz, bmp384.ODR200Hz}, dev.SetODR, dev.ODR),
		enumTrip("filter coefficient", []bmp384.FilterCoefficient{bmp384.FilterCoeff127, bmp384.FilterCoeff15, bmp384.FilterCoeff0},
			dev.SetFilterCoefficient, dev.FilterCoefficient),
	}

	for _, rt := range trips {
		for _, v := range rt.vals {
			if err := rt.set(v); err != nil {
				return &errcode.E{C: errcode.Of(err), Op: "baro self test set " + rt.name, Err: err}
			}
			got, err := rt.get()
			if err != nil {
				return &errcode.E{C: errcode.Of(err), Op: "baro self test get " + rt.name, Err: err}
			}
			if got != v {
				log.Warnw("register check failed", "field", rt.name, "want", v, "got", got)
				return ErrMismatch.With("baro self test", fmt.Errorf("%s: wrote %d, read %d", rt.name, v, got))
			}
		}
		log.Infow("register check ok", "field", rt.name)
	}

	for _, m := range []bmp384.Mode{bmp384.ModeNormal, bmp384.ModeSleep} {
		if err := dev.SetMode(m); err != nil {
			return &errcode.E{C: errcode.Of(err), Op: "baro self test set mode", Err: err}
		}
		got, err := dev.Mode()
		if err != nil {
			return &errcode.E{C: errcode.Of(err), Op: "baro self test get mode", Err: err}
		}
		if got != m {
			return ErrMismatch.With("baro self test", fmt.Errorf("mode: wrote %v, read %v", m, got))
		}
	}

	if err := dev.SoftReset(); err != nil {
		return &errcode.E{C: errcode.Of(err), Op: "baro self test soft reset", Err: err}
	}
	log.Infow("register test passed")
	return nil
}

// Plausible reports whether r lies inside the chip's operating range.
func Plausible(r Reading) error {
	lo := physic.ZeroCelsius - 40*physic.Kelvin
	hi := physic.ZeroCelsius + 85*physic.Kelvin
	if r.Temperature < lo || r.Temperature > hi {
		return &errcode.E{C: errcode.Failed, Op: "baro", Msg: "temperature out of range " + r.Temperature.String()}
	}
	if r.Pressure < 30000*physic.Pascal || r.Pressure > 125000*physic.Pascal {
		return &errcode.E{C: errcode.Failed, Op: "baro", Msg: "pressure out of range " + r.Pressure.String()}
	}
	return nil
}
