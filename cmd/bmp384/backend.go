package main

import (
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"periph.io/x/host/v3"

	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
	"bmp384-go/internal/gpioirq"
	"bmp384-go/services/config"
	"bmp384-go/transport/embdbus"
	"bmp384-go/transport/periphbus"
	"bmp384-go/transport/rpiobus"
)

const (
	backendPeriph = "periph"
	backendEmbd   = "embd"
	backendRPIO   = "rpio"
)

// settings layers command line flags over the config file (or defaults).
func settings(c *cli.Context) (config.Settings, error) {
	s := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if s, err = config.Load(path); err != nil {
			return config.Settings{}, err
		}
	}
	m := map[string]any{}
	for flag, key := range map[string]string{
		"interface": "interface",
		"addr":      "addr",
		"i2c":       "i2c_bus",
		"spi":       "spi_port",
		"int-pin":   "int_pin",
	} {
		if c.IsSet(flag) {
			m[key] = c.String(flag)
		}
	}
	if c.IsSet("times") {
		m["times"] = c.Int("times")
	}
	return s.Merge(m)
}

// hardware is an opened chip plus its interrupt line.
type hardware struct {
	dev *bmp384.Device
	pin gpioirq.IRQPin
}

func (h *hardware) close(log *zap.SugaredLogger) {
	if err := h.dev.Deinit(); err != nil {
		log.Warnw("deinit failed", "err", err)
	}
}

var errBackend = &errcode.E{C: errcode.Unsupported, Msg: "backend cannot drive this interface"}

// open builds the transport for s on the selected backend and initialises
// the chip.
func open(c *cli.Context, s config.Settings, log *zap.SugaredLogger) (*hardware, error) {
	backend := c.String("backend")
	cfg := bmp384.Config{Interface: s.Interface, Address: s.AddrPin, Logger: log}
	h := &hardware{}

	switch backend {
	case backendPeriph, backendEmbd:
		if _, err := host.Init(); err != nil {
			return nil, &errcode.E{C: errcode.Failed, Op: "periph host init", Err: err}
		}
		h.pin = periphbus.NewPin(s.IntPin)
		switch {
		case s.Interface == bmp384.InterfaceSPI && backend == backendPeriph:
			cfg.SPI = periphbus.NewSPI(s.SPIPort, periphbus.DefaultSPIFreq)
		case s.Interface == bmp384.InterfaceI2C && backend == backendPeriph:
			cfg.I2C = periphbus.NewI2C(s.I2CBus)
		case s.Interface == bmp384.InterfaceI2C:
			line, err := i2cLine(s.I2CBus)
			if err != nil {
				return nil, err
			}
			cfg.I2C = embdbus.NewI2C(line)
		default:
			return nil, errBackend.With(backend+" "+s.Interface.String(), nil)
		}
	case backendRPIO:
		if s.Interface != bmp384.InterfaceSPI {
			return nil, errBackend.With(backend+" "+s.Interface.String(), nil)
		}
		cs := uint8(0)
		if strings.HasSuffix(s.SPIPort, "1") {
			cs = 1
		}
		cfg.SPI = rpiobus.NewSPI(cs, 0)
		bcm, err := bcmNumber(s.IntPin)
		if err != nil {
			return nil, err
		}
		h.pin = rpiobus.NewPin(bcm)
	default:
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "backend", Msg: "unknown backend " + backend}
	}

	h.dev = bmp384.New(cfg)
	if err := h.dev.Init(); err != nil {
		return nil, err
	}
	log.Debugw("chip initialised", "backend", backend, "interface", s.Interface.String())
	return h, nil
}

func i2cLine(name string) (byte, error) {
	if name == "" {
		return 1, nil
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(name, "/dev/i2c-"), 10, 8)
	if err != nil {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "i2c bus", Msg: name, Err: err}
	}
	return byte(n), nil
}

func bcmNumber(name string) (uint8, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(name), "GPIO"), 10, 8)
	if err != nil {
		return 0, &errcode.E{C: errcode.InvalidParams, Op: "int pin", Msg: name, Err: err}
	}
	return uint8(n), nil
}
