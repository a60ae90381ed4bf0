// Command bmp384 exercises a BMP384 on a Linux board: chip information,
// register and read self tests, and the read/shot/int/fifo examples.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bmp384-go/errcode"
	"bmp384-go/services/baro"
)

const metaLog = "log"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "bmp384:", err)
		code := int(errcode.Status(err))
		if code == 0 {
			code = 1
		}
		os.Exit(code)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bmp384",
		Usage: "BMP384 barometric pressure sensor tool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "interface", Aliases: []string{"i"}, Usage: "chip interface: i2c or spi"},
			&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "address pin level: 0 or 1"},
			&cli.IntFlag{Name: "times", Aliases: []string{"t"}, Usage: "number of readings"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "settings JSON file"},
			&cli.StringFlag{Name: "backend", Value: backendPeriph, Usage: "host driver: periph, embd or rpio"},
			&cli.StringFlag{Name: "i2c", Usage: "I2C bus name (periph) or line number (embd)"},
			&cli.StringFlag{Name: "spi", Usage: "SPI port name (periph) or chip select (rpio)"},
			&cli.StringFlag{Name: "int-pin", Usage: "interrupt GPIO name"},
			&cli.BoolFlag{Name: "debug", Usage: "log driver diagnostics"},
		},
		Before: func(c *cli.Context) error {
			log, err := newLogger(c.Bool("debug"))
			if err != nil {
				return err
			}
			c.App.Metadata = map[string]any{metaLog: log}
			return nil
		},
		After: func(c *cli.Context) error {
			if log, ok := c.App.Metadata[metaLog].(*zap.SugaredLogger); ok {
				_ = log.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "print chip information",
				Action: infoAction,
			},
			{
				Name:   "port",
				Usage:  "print the board pin connections",
				Action: portAction,
			},
			{
				Name:  "test",
				Usage: "run a self test",
				Subcommands: []*cli.Command{
					{Name: "reg", Usage: "register read back test", Action: regTestAction},
					{Name: "read", Usage: "normal mode read test", Action: runAction(baro.ModeRead, true)},
					{Name: "int", Usage: "data ready interrupt test", Action: runAction(baro.ModeInterrupt, true)},
					{Name: "fifo", Usage: "fifo watermark test", Action: runAction(baro.ModeFIFO, true)},
				},
			},
			{
				Name:  "example",
				Usage: "run an example",
				Subcommands: []*cli.Command{
					{Name: "read", Usage: "read in normal mode", Action: runAction(baro.ModeRead, false)},
					{Name: "shot", Usage: "read with forced conversions", Action: runAction(baro.ModeShot, false)},
					{Name: "int", Usage: "read on data ready interrupts", Action: runAction(baro.ModeInterrupt, false)},
					{Name: "fifo", Usage: "drain the fifo on watermark interrupts", Action: runAction(baro.ModeFIFO, false)},
				},
			},
		},
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func logger(c *cli.Context) *zap.SugaredLogger {
	if log, ok := c.App.Metadata[metaLog].(*zap.SugaredLogger); ok {
		return log
	}
	return zap.NewNop().Sugar()
}
