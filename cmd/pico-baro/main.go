//go:build rp2040 || rp2350

// Firmware for a Pico with a BMP384 on i2c0 (GP4/GP5) and INT on GP15.
// Readings arrive on data-ready interrupts and are printed over USB CDC.
package main

import (
	"context"
	"runtime"
	"time"

	"bmp384-go/bus"
	"bmp384-go/drivers/bmp384"
	"bmp384-go/services/baro"
	"bmp384-go/services/config"
	"bmp384-go/services/heartbeat"
	"bmp384-go/transport/tinygobus"
)

const (
	board  = "pico"
	intPin = 15
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(3 * time.Second)
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, board)

	println("[main] bootstrapping bus …")
	b := bus.NewBus(4)
	if err := config.NewConfigService().Start(ctx, b.NewConnection("config")); err != nil {
		println("[main] config failed:", err.Error())
		return
	}
	raw, _ := config.EmbeddedConfigLookup(board)
	settings, err := config.Parse(raw)
	if err != nil {
		println("[main] config parse failed:", err.Error())
		return
	}
	baroConn := b.NewConnection("baro")
	uiConn := b.NewConnection("ui")

	i2c, err := tinygobus.DefaultI2C0()
	if err != nil {
		println("[main] i2c0 configure failed:", err.Error())
		return
	}
	dev := bmp384.New(bmp384.Config{Interface: settings.Interface, Address: settings.AddrPin, I2C: i2c})
	if err := dev.Init(); err != nil {
		println("[main] bmp384 init failed:", err.Error())
		return
	}

	hb := &heartbeat.Service{Interval: 10 * time.Second}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	mon := uiConn.Subscribe(bus.T("baro", "#"))
	beats := uiConn.Subscribe(heartbeat.TopicBeat)
	go func() {
		for m := range beats.Channel() {
			if p, ok := m.Payload.(heartbeat.Beat); ok {
				println("[heartbeat]", p.Seq)
			}
		}
	}()
	go func() {
		for m := range mon.Channel() {
			switch p := m.Payload.(type) {
			case baro.Reading:
				println("[monitor]", m.Topic.String(), p.Temperature.String(), p.Pressure.String())
			case baro.State:
				println("[monitor]", m.Topic.String(), p.Status, p.Err)
			}
		}
	}()

	svc := &baro.Service{
		Dev:      dev,
		Mode:     baro.ModeInterrupt,
		Settings: settings,
		Pin:      tinygobus.NewPin(intPin),
	}
	println("[main] starting baro service …")
	go func() {
		if err := svc.Run(ctx, baroConn); err != nil {
			println("[main] baro stopped:", err.Error())
		}
	}()

	read := baro.TopicRead("bmp384")
	for {
		time.Sleep(5 * time.Second)
		rctx, cancel := context.WithTimeout(ctx, time.Second)
		if _, err := uiConn.RequestWait(rctx, uiConn.NewMessage(read, nil, false)); err != nil {
			println("[main] read error:", err.Error())
		}
		cancel()
		printMem()
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
