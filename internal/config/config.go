// Package config provides configuration helpers for go-humanoid commands.
package config

import "os"

// Defaults for the control service.
const (
	DefaultPort            = "5000"
	DefaultCalibrationPath = "servo_calibration.json"
)

// Port returns the HTTP listen port from HUMANOID_PORT, or the default.
func Port() string {
	if p := os.Getenv("HUMANOID_PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// CalibrationPath returns the calibration file path from
// HUMANOID_CALIBRATION, or the default next to the working directory.
func CalibrationPath() string {
	if p := os.Getenv("HUMANOID_CALIBRATION"); p != "" {
		return p
	}
	return DefaultCalibrationPath
}

// I2CBus returns the I2C bus name from HUMANOID_I2C_BUS. Empty selects
// the first available bus (I2C1 on most Raspberry Pi boards).
func I2CBus() string {
	return os.Getenv("HUMANOID_I2C_BUS")
}

// SimMode reports whether HUMANOID_SIM requests the simulated adapter.
func SimMode() bool {
	return os.Getenv("HUMANOID_SIM") == "1" || os.Getenv("HUMANOID_SIM") == "true"
}

// LogLevel returns the log level from HUMANOID_LOG_LEVEL, or "info".
func LogLevel() string {
	if l := os.Getenv("HUMANOID_LOG_LEVEL"); l != "" {
		return l
	}
	return "info"
}
