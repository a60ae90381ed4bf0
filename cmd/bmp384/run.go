package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"bmp384-go/bus"
	"bmp384-go/drivers/bmp384"
	"bmp384-go/errcode"
	"bmp384-go/services/baro"
)

var errNoData = &errcode.E{C: errcode.Timeout, Msg: "no data from sensor"}

func infoAction(c *cli.Context) error {
	i := bmp384.ChipInfo()
	w := c.App.Writer
	fmt.Fprintf(w, "bmp384: chip is %s.\n", i.ChipName)
	fmt.Fprintf(w, "bmp384: manufacturer is %s.\n", i.Manufacturer)
	fmt.Fprintf(w, "bmp384: interface is %s.\n", i.Interface)
	fmt.Fprintf(w, "bmp384: driver version is %d.%d.\n", i.DriverVersion/1000, (i.DriverVersion%1000)/100)
	fmt.Fprintf(w, "bmp384: min supply voltage is %0.1fV.\n", i.SupplyVoltageMinV)
	fmt.Fprintf(w, "bmp384: max supply voltage is %0.1fV.\n", i.SupplyVoltageMaxV)
	fmt.Fprintf(w, "bmp384: max current is %0.2fmA.\n", i.MaxCurrentMA)
	fmt.Fprintf(w, "bmp384: max temperature is %0.1fC.\n", i.TemperatureMaxC)
	fmt.Fprintf(w, "bmp384: min temperature is %0.1fC.\n", i.TemperatureMinC)
	return nil
}

func portAction(c *cli.Context) error {
	for _, l := range []string{
		"SPI interface SCK connected to GPIO11(BCM).",
		"SPI interface MISO connected to GPIO9(BCM).",
		"SPI interface MOSI connected to GPIO10(BCM).",
		"SPI interface CS connected to GPIO8(BCM).",
		"IIC interface SCL connected to GPIO3(BCM).",
		"IIC interface SDA connected to GPIO2(BCM).",
		"INT connected to GPIO17(BCM).",
	} {
		fmt.Fprintln(c.App.Writer, "bmp384:", l)
	}
	return nil
}

func regTestAction(c *cli.Context) error {
	log := logger(c)
	s, err := settings(c)
	if err != nil {
		return err
	}
	h, err := open(c, s, log)
	if err != nil {
		return err
	}
	defer h.close(log)
	log.Infow("start register test", "interface", s.Interface.String())
	return baro.RegisterTest(h.dev, log)
}

// waitFor returns the deadline for one sample in mode.
func waitFor(mode baro.Mode, interval time.Duration) time.Duration {
	switch mode {
	case baro.ModeFIFO:
		// 256 bytes at 12.5 Hz takes about three seconds to fill.
		return 10 * time.Second
	case baro.ModeInterrupt:
		return 2 * time.Second
	default:
		return interval + 2*time.Second
	}
}

// runAction runs the baro service in mode until times samples (readings, or
// FIFO drains) arrive. With check set every reading must be plausible.
func runAction(mode baro.Mode, check bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		log := logger(c)
		s, err := settings(c)
		if err != nil {
			return err
		}
		h, err := open(c, s, log)
		if err != nil {
			return err
		}
		defer h.close(log)

		b := bus.NewBus(16)
		mon := b.NewConnection("cli")
		readings := mon.Subscribe(baro.TopicReading("bmp384"))
		frames := mon.Subscribe(baro.TopicFIFO("bmp384"))
		defer mon.Disconnect()

		ctx, cancel := context.WithCancel(c.Context)
		defer cancel()
		svc := &baro.Service{Dev: h.dev, Mode: mode, Settings: s, Pin: h.pin, Log: log}
		done := make(chan error, 1)
		go func() { done <- svc.Run(ctx, b.NewConnection("baro")) }()

		w := c.App.Writer
		got := 0
		for got < s.Times {
			timeout := time.NewTimer(waitFor(mode, s.Interval))
			select {
			case <-ctx.Done():
				timeout.Stop()
				return <-done
			case err := <-done:
				timeout.Stop()
				return err
			case <-timeout.C:
				cancel()
				<-done
				return errNoData.With(mode.String(), nil)
			case m := <-frames.Channel():
				timeout.Stop()
				fs := m.Payload.([]bmp384.Frame)
				for i, f := range fs {
					fmt.Fprintf(w, "bmp384: fifo %d/%d %s %.2f.\n", i+1, len(fs), f.Type, f.Data)
				}
				got++
			case m := <-readings.Channel():
				timeout.Stop()
				if mode == baro.ModeFIFO {
					continue
				}
				r := m.Payload.(baro.Reading)
				if check {
					if err := baro.Plausible(r); err != nil {
						cancel()
						<-done
						return err
					}
				}
				fmt.Fprintf(w, "bmp384: %d/%d.\n", got+1, s.Times)
				fmt.Fprintf(w, "bmp384: temperature is %s.\n", r.Temperature)
				fmt.Fprintf(w, "bmp384: pressure is %s.\n", r.Pressure)
				got++
			}
		}
		cancel()
		if err := <-done; err != nil {
			return err
		}
		log.Infow("finished", "mode", mode.String(), "samples", got)
		return nil
	}
}
