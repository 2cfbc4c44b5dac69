package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"

	"github.com/pibotics/go-humanoid/internal/log"
)

// I2C addresses on the robot's bus.
const (
	pwmAddr = pca9685.I2CAddr // 0x40
	eyeAddr = 0x3C
	imuAddr = 0x68
)

// PWM frequency for hobby servos.
const servoFreq = 50 * physic.Hertz

// OT703-C86 registers.
const (
	eyeRegDistance = 0x00
	eyeRegLight    = 0x01
	eyeRegConfig   = 0x02

	eyeConfigMeasure = 0x01
	eyeConfigLight   = 0x02
)

// MPU-6050 registers.
const (
	imuRegPwrMgmt1  = 0x6B
	imuRegAccelXout = 0x3B
	imuRegGyroXout  = 0x43
)

// PCA9685 drives the servo rail through a PCA9685 16-channel PWM chip and
// reads the eye and IMU sensors on the same I2C bus.
type PCA9685 struct {
	busName string

	mu  sync.Mutex
	bus i2c.BusCloser
	pwm *pca9685.Dev
	eye *i2c.Dev
	imu *i2c.Dev
}

var _ Adapter = (*PCA9685)(nil)

// NewPCA9685 returns an adapter for the given I2C bus. An empty busName
// selects the first available bus (I2C1 on most Raspberry Pi boards).
func NewPCA9685(busName string) *PCA9685 {
	return &PCA9685{busName: busName}
}

// Open initializes the host, claims the bus and configures the PWM chip
// for 50Hz servo operation. It also wakes the IMU and enables the eye
// sensor's measurement mode.
func (p *PCA9685) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bus != nil {
		return nil
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init periph host: %w", err)
	}

	bus, err := i2creg.Open(p.busName)
	if err != nil {
		return fmt.Errorf("open i2c bus %q: %w", p.busName, err)
	}

	pwm, err := pca9685.NewI2C(bus, pwmAddr)
	if err != nil {
		bus.Close()
		return fmt.Errorf("init pca9685 at %#x: %w", pwmAddr, err)
	}
	if err := pwm.SetPwmFreq(servoFreq); err != nil {
		bus.Close()
		return fmt.Errorf("set pwm frequency: %w", err)
	}

	eye := &i2c.Dev{Bus: bus, Addr: eyeAddr}
	imu := &i2c.Dev{Bus: bus, Addr: imuAddr}

	// Wake the IMU out of sleep mode. Sensor failures are not fatal at
	// open time: the servo rail still works without them and reads will
	// surface errors per call.
	if err := imu.Tx([]byte{imuRegPwrMgmt1, 0x00}, nil); err != nil {
		log.Warn("imu wake failed, sensor reads will error", "err", err)
	}
	if err := eye.Tx([]byte{eyeRegConfig, eyeConfigMeasure | eyeConfigLight}, nil); err != nil {
		log.Warn("eye sensor config failed, sensor reads will error", "err", err)
	}

	p.bus = bus
	p.pwm = pwm
	p.eye = eye
	p.imu = imu
	log.Info("pca9685 adapter open", "bus", bus.String(), "freq", servoFreq.String())
	return nil
}

// WritePulse sets the raw 12-bit off-tick for a channel, with the on-tick
// pinned to zero (the chip counts 0-4095 per 20ms frame at 50Hz).
func (p *PCA9685) WritePulse(channel, duty int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pwm == nil {
		return ErrNotOpen
	}
	if err := p.pwm.SetPwm(channel, 0, gpio.Duty(duty)); err != nil {
		return fmt.Errorf("%w: channel %d duty %d: %w", ErrWriteFailed, channel, duty, err)
	}
	return nil
}

// ReadSensor performs the I2C transactions for one sensor frame.
//
// Eye frames are 3 bytes: distance high, distance low, light level.
// IMU frames are 12 bytes: accel X/Y/Z then gyro X/Y/Z, big-endian int16.
func (p *PCA9685) ReadSensor(id SensorID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bus == nil {
		return nil, ErrNotOpen
	}

	switch id {
	case SensorEye:
		// Trigger a measurement, then read the result registers.
		if err := p.eye.Tx([]byte{eyeRegConfig, eyeConfigMeasure | eyeConfigLight}, nil); err != nil {
			return nil, fmt.Errorf("%w: eye trigger: %w", ErrSensorRead, err)
		}
		frame := make([]byte, 3)
		if err := p.eye.Tx([]byte{eyeRegDistance}, frame[:2]); err != nil {
			return nil, fmt.Errorf("%w: eye distance: %w", ErrSensorRead, err)
		}
		if err := p.eye.Tx([]byte{eyeRegLight}, frame[2:]); err != nil {
			return nil, fmt.Errorf("%w: eye light: %w", ErrSensorRead, err)
		}
		return frame, nil

	case SensorIMU:
		frame := make([]byte, 12)
		if err := p.imu.Tx([]byte{imuRegAccelXout}, frame[:6]); err != nil {
			return nil, fmt.Errorf("%w: imu accel: %w", ErrSensorRead, err)
		}
		if err := p.imu.Tx([]byte{imuRegGyroXout}, frame[6:]); err != nil {
			return nil, fmt.Errorf("%w: imu gyro: %w", ErrSensorRead, err)
		}
		return frame, nil

	default:
		return nil, fmt.Errorf("%w: unknown sensor %q", ErrSensorRead, id)
	}
}

// Close releases the I2C bus. Idempotent.
func (p *PCA9685) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bus == nil {
		return nil
	}
	err := p.bus.Close()
	p.bus = nil
	p.pwm = nil
	p.eye = nil
	p.imu = nil
	if err != nil {
		return fmt.Errorf("close i2c bus: %w", err)
	}
	return nil
}
