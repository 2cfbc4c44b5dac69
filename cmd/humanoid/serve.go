package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pibotics/go-humanoid/internal/config"
	"github.com/pibotics/go-humanoid/internal/log"
	"github.com/pibotics/go-humanoid/pkg/hardware"
	"github.com/pibotics/go-humanoid/pkg/humanoid"
	"github.com/pibotics/go-humanoid/pkg/web"
)

type ServeCommand struct {
	Port        string `short:"p" long:"port" description:"HTTP listen port (default: HUMANOID_PORT or 5000)"`
	Calibration string `short:"c" long:"calibration" description:"Calibration file path"`
	Bus         string `long:"bus" description:"I2C bus name (default: first available)"`
	Sim         bool   `long:"sim" description:"Use the simulated adapter instead of real hardware"`
	Init        bool   `long:"init" description:"Initialize the robot at startup instead of waiting for /api/init"`
}

func (c *ServeCommand) Execute(args []string) error {
	log.Init(config.LogLevel())

	port := c.Port
	if port == "" {
		port = config.Port()
	}
	calPath := c.Calibration
	if calPath == "" {
		calPath = config.CalibrationPath()
	}
	bus := c.Bus
	if bus == "" {
		bus = config.I2CBus()
	}

	var adapter hardware.Adapter
	if c.Sim || config.SimMode() {
		log.Info("using simulated hardware adapter")
		adapter = hardware.NewSim()
	} else {
		adapter = hardware.NewPCA9685(bus)
	}

	bot := humanoid.New(adapter, humanoid.WithCalibrationPath(calPath))
	if c.Init {
		if err := bot.Initialize(); err != nil {
			return err
		}
	}

	server := web.New(bot)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutting down", "signal", sig.String())
		if err := bot.Shutdown(); err != nil {
			log.Error("robot shutdown failed", "err", err)
		}
		if err := server.Shutdown(); err != nil {
			log.Error("server shutdown failed", "err", err)
		}
	}()

	return server.Listen(":" + port)
}
