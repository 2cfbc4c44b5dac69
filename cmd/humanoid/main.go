package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Serve     ServeCommand     `command:"serve" description:"Run the robot control service"`
	Calibrate CalibrateCommand `command:"calibrate" description:"Interactively tune servo calibration"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "go-humanoid - control service for a 13-servo humanoid robot"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
