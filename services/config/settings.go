package config

import (
	"encoding/json"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
	"bmp384-go/x/mathx"
)

// Settings describes one BMP384 deployment: where the chip is wired and how
// it is configured. Enumerated fields accept their symbolic names in JSON.
type Settings struct {
	Interface bmp384.Interface `json:"interface"`
	AddrPin   bmp384.AddrPin   `json:"addr"`
	I2CBus    string           `json:"i2c_bus"`
	SPIPort   string           `json:"spi_port"`
	IntPin    string           `json:"int_pin"`

	SPIWire        bmp384.SPIWire        `json:"spi_wire"`
	Watchdog       bool                  `json:"watchdog"`
	WatchdogPeriod bmp384.WatchdogPeriod `json:"watchdog_period"`

	PressureOversampling    bmp384.Oversampling      `json:"pressure_oversampling"`
	TemperatureOversampling bmp384.Oversampling      `json:"temperature_oversampling"`
	ODR                     bmp384.ODR               `json:"odr"`
	Filter                  bmp384.FilterCoefficient `json:"filter"`

	InterruptPinType     bmp384.InterruptPinType     `json:"interrupt_pin_type"`
	InterruptActiveLevel bmp384.InterruptActiveLevel `json:"interrupt_active_level"`

	FIFOWatermark   uint16                `json:"fifo_watermark"`
	FIFOSubsampling uint8                 `json:"fifo_subsampling"`
	FIFODataSource  bmp384.FIFODataSource `json:"fifo_source"`

	Times    int           `json:"times"`
	Interval time.Duration `json:"interval"`
}

// Default returns the settings used by the board examples.
func Default() Settings {
	return Settings{
		Interface: bmp384.InterfaceI2C,
		AddrPin:   bmp384.AddrPinLow,
		IntPin:    "GPIO17",

		SPIWire:        bmp384.SPIWire4,
		WatchdogPeriod: bmp384.WatchdogPeriod1p25ms,

		PressureOversampling:    bmp384.Oversampling32x,
		TemperatureOversampling: bmp384.Oversampling2x,
		ODR:                     bmp384.ODR12p5Hz,
		Filter:                  bmp384.FilterCoeff15,

		InterruptPinType:     bmp384.InterruptPushPull,
		InterruptActiveLevel: bmp384.InterruptActiveHigh,

		FIFOWatermark:  256,
		FIFODataSource: bmp384.FIFOSourceFiltered,

		Times:    3,
		Interval: time.Second,
	}
}

func invalid(field string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "invalid " + field}
}

// Validate checks every field against the range the chip accepts.
func (s Settings) Validate() error {
	switch {
	case s.Interface != bmp384.InterfaceI2C && s.Interface != bmp384.InterfaceSPI:
		return invalid("interface")
	case s.AddrPin != bmp384.AddrPinLow && s.AddrPin != bmp384.AddrPinHigh:
		return invalid("addr")
	case !mathx.Between(s.SPIWire, 0, bmp384.SPIWire3):
		return invalid("spi_wire")
	case !mathx.Between(s.WatchdogPeriod, 0, bmp384.WatchdogPeriod40ms):
		return invalid("watchdog_period")
	case !mathx.Between(s.PressureOversampling, 0, bmp384.Oversampling32x):
		return invalid("pressure_oversampling")
	case !mathx.Between(s.TemperatureOversampling, 0, bmp384.Oversampling32x):
		return invalid("temperature_oversampling")
	case !mathx.Between(s.ODR, 0, bmp384.ODR0p0015Hz):
		return invalid("odr")
	case !mathx.Between(s.Filter, 0, bmp384.FilterCoeff127):
		return invalid("filter")
	case !mathx.Between(s.InterruptPinType, 0, bmp384.InterruptOpenDrain):
		return invalid("interrupt_pin_type")
	case !mathx.Between(s.InterruptActiveLevel, 0, bmp384.InterruptActiveHigh):
		return invalid("interrupt_active_level")
	case s.FIFOWatermark > 511:
		return invalid("fifo_watermark")
	case s.FIFOSubsampling > 7:
		return invalid("fifo_subsampling")
	case !mathx.Between(s.FIFODataSource, 0, bmp384.FIFOSourceFiltered):
		return invalid("fifo_source")
	case s.Times < 1:
		return invalid("times")
	case s.Interval <= 0:
		return invalid("interval")
	}
	return nil
}

var symbols = map[reflect.Type]map[string]uint64{
	reflect.TypeOf(bmp384.Interface(0)): {
		"i2c": uint64(bmp384.InterfaceI2C),
		"iic": uint64(bmp384.InterfaceI2C),
		"spi": uint64(bmp384.InterfaceSPI),
	},
	reflect.TypeOf(bmp384.AddrPin(0)): {
		"low":  uint64(bmp384.AddrPinLow),
		"high": uint64(bmp384.AddrPinHigh),
		"0":    uint64(bmp384.AddrPinLow),
		"1":    uint64(bmp384.AddrPinHigh),
	},
	reflect.TypeOf(bmp384.SPIWire(0)): {
		"4wire": uint64(bmp384.SPIWire4),
		"3wire": uint64(bmp384.SPIWire3),
	},
	reflect.TypeOf(bmp384.WatchdogPeriod(0)): {
		"1.25ms": uint64(bmp384.WatchdogPeriod1p25ms),
		"40ms":   uint64(bmp384.WatchdogPeriod40ms),
	},
	reflect.TypeOf(bmp384.Oversampling(0)): {
		"x1":  uint64(bmp384.Oversampling1x),
		"x2":  uint64(bmp384.Oversampling2x),
		"x4":  uint64(bmp384.Oversampling4x),
		"x8":  uint64(bmp384.Oversampling8x),
		"x16": uint64(bmp384.Oversampling16x),
		"x32": uint64(bmp384.Oversampling32x),
	},
	reflect.TypeOf(bmp384.ODR(0)): odrSymbols(),
	reflect.TypeOf(bmp384.FilterCoefficient(0)): {
		"coeff0":   uint64(bmp384.FilterCoeff0),
		"coeff1":   uint64(bmp384.FilterCoeff1),
		"coeff3":   uint64(bmp384.FilterCoeff3),
		"coeff7":   uint64(bmp384.FilterCoeff7),
		"coeff15":  uint64(bmp384.FilterCoeff15),
		"coeff31":  uint64(bmp384.FilterCoeff31),
		"coeff63":  uint64(bmp384.FilterCoeff63),
		"coeff127": uint64(bmp384.FilterCoeff127),
	},
	reflect.TypeOf(bmp384.InterruptPinType(0)): {
		"push-pull":  uint64(bmp384.InterruptPushPull),
		"open-drain": uint64(bmp384.InterruptOpenDrain),
	},
	reflect.TypeOf(bmp384.InterruptActiveLevel(0)): {
		"low":  uint64(bmp384.InterruptActiveLow),
		"high": uint64(bmp384.InterruptActiveHigh),
	},
	reflect.TypeOf(bmp384.FIFODataSource(0)): {
		"unfiltered": uint64(bmp384.FIFOSourceUnfiltered),
		"filtered":   uint64(bmp384.FIFOSourceFiltered),
	},
}

func odrSymbols() map[string]uint64 {
	rates := []string{
		"200hz", "100hz", "50hz", "25hz", "12.5hz", "6.25hz", "3.1hz", "1.5hz",
		"0.78hz", "0.39hz", "0.2hz", "0.1hz", "0.05hz", "0.02hz", "0.01hz",
		"0.006hz", "0.003hz", "0.0015hz",
	}
	m := make(map[string]uint64, len(rates))
	for i, r := range rates {
		m[r] = uint64(i)
	}
	return m
}

// symbolHook turns symbolic names into the register enum they name.
func symbolHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	names, ok := symbols[to]
	if !ok {
		return data, nil
	}
	v, ok := names[strings.ToLower(strings.TrimSpace(data.(string)))]
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "unknown " + to.Name() + " " + data.(string)}
	}
	return reflect.ValueOf(v).Convert(to).Interface(), nil
}

// Merge overlays m onto s and validates the result. Unknown keys are
// rejected.
func (s Settings) Merge(m map[string]any) (Settings, error) {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &s,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			symbolHook,
		),
	})
	if err != nil {
		return Settings{}, err
	}
	if err := dec.Decode(m); err != nil {
		return Settings{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Err: err}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Decode overlays m onto Default.
func Decode(m map[string]any) (Settings, error) { return Default().Merge(m) }

// Parse decodes a JSON object into Settings.
func Parse(raw []byte) (Settings, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Settings{}, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "not a JSON object", Err: err}
	}
	return Decode(m)
}

// Load reads and parses the settings file at path.
func Load(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, &errcode.E{C: errcode.Failed, Op: "config", Err: err}
	}
	return Parse(raw)
}
