// Package sensors decodes the robot's I2C sensor frames and memoizes
// readings behind a short TTL so chatty callers (the web layer polls at
// UI rates) do not hammer the bus.
package sensors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/pibotics/go-humanoid/pkg/hardware"
)

// ErrSensorUnavailable is returned when a fresh hardware read fails. A
// previously cached value is kept and remains servable until it expires
// naturally.
var ErrSensorUnavailable = errors.New("sensor unavailable")

// Reading is one decoded sensor sample. Values keys depend on the sensor:
//
//	eye: distance_cm, ambient_light
//	imu: accel_x/y/z (g), gyro_x/y/z (deg/s)
type Reading struct {
	Sensor     hardware.SensorID  `json:"sensor"`
	Values     map[string]float64 `json:"values"`
	CapturedAt time.Time          `json:"captured_at"`
}

// MPU-6050 scale factors for the +/-2g and +/-250deg/s ranges.
const (
	accelScale = 16384.0
	gyroScale  = 131.0
)

// Decode turns a raw adapter frame into named values.
func Decode(id hardware.SensorID, frame []byte) (map[string]float64, error) {
	switch id {
	case hardware.SensorEye:
		if len(frame) != 3 {
			return nil, fmt.Errorf("eye frame is %d bytes, want 3", len(frame))
		}
		raw := binary.BigEndian.Uint16(frame[:2])
		return map[string]float64{
			// Raw units are 0.1cm.
			"distance_cm":   float64(raw) / 10.0,
			"ambient_light": float64(frame[2]),
		}, nil

	case hardware.SensorIMU:
		if len(frame) != 12 {
			return nil, fmt.Errorf("imu frame is %d bytes, want 12", len(frame))
		}
		v := func(off int) float64 {
			return float64(int16(binary.BigEndian.Uint16(frame[off : off+2])))
		}
		return map[string]float64{
			"accel_x": v(0) / accelScale,
			"accel_y": v(2) / accelScale,
			"accel_z": v(4) / accelScale,
			"gyro_x":  v(6) / gyroScale,
			"gyro_y":  v(8) / gyroScale,
			"gyro_z":  v(10) / gyroScale,
		}, nil

	default:
		return nil, fmt.Errorf("unknown sensor %q", id)
	}
}

// IDs returns the known sensor identifiers.
func IDs() []hardware.SensorID {
	return []hardware.SensorID{hardware.SensorEye, hardware.SensorIMU}
}

// Known reports whether id names one of the robot's sensors.
func Known(id hardware.SensorID) bool {
	return id == hardware.SensorEye || id == hardware.SensorIMU
}
