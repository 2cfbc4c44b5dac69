// Package hardware abstracts the PWM driver chip and the I2C sensors
// behind a single adapter interface.
//
// Two implementations exist: PCA9685 drives the real chip over the Linux
// I2C bus, and Sim is an in-memory stand-in for development and tests.
// The implementation is chosen once at construction time and injected;
// nothing above this package inspects which one it got.
package hardware

import "errors"

// SensorID identifies one of the robot's I2C sensors.
type SensorID string

const (
	// SensorEye is the OT703-C86 distance/ambient-light sensor.
	SensorEye SensorID = "eye"
	// SensorIMU is the MPU-6050 6-axis motion sensor.
	SensorIMU SensorID = "imu"
)

// Errors surfaced by adapter implementations.
var (
	// ErrWriteFailed indicates a PWM register write did not reach the chip.
	ErrWriteFailed = errors.New("hardware write failed")

	// ErrSensorRead indicates a sensor transaction failed on the bus.
	ErrSensorRead = errors.New("sensor read failed")

	// ErrNotOpen indicates the adapter was used before Open or after Close.
	ErrNotOpen = errors.New("hardware adapter not open")
)

// Adapter is the hardware dependency boundary. WritePulse sends a raw
// 12-bit duty value to one PWM channel; ReadSensor returns the raw bytes
// of one sensor frame. Both fail fast rather than retry: blind retries on
// a servo bus risk mechanical damage, so recovery is the caller's call.
type Adapter interface {
	// Open claims the underlying bus. Must be called before any other method.
	Open() error

	// WritePulse sets the duty value (0-4095) for a PWM channel.
	WritePulse(channel int, duty int) error

	// ReadSensor performs a fresh hardware read and returns the raw frame.
	ReadSensor(id SensorID) ([]byte, error)

	// Close releases the bus. Safe to call more than once.
	Close() error
}
