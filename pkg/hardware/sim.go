package hardware

import (
	"fmt"
	"sync"
)

// Sim is an in-memory Adapter for development without the robot attached
// and for tests. It records every pulse written per channel and serves
// canned sensor frames; errors can be injected to exercise failure paths.
type Sim struct {
	mu     sync.Mutex
	open   bool
	duties map[int][]int
	frames map[SensorID][]byte

	sensorReads int

	// Injectable failures.
	OpenErr   error
	WriteErr  error
	SensorErr error
}

var _ Adapter = (*Sim)(nil)

// NewSim returns a simulated adapter with plausible default sensor frames:
// 50.0cm distance with mid light, and a unit-gravity IMU frame at rest.
func NewSim() *Sim {
	return &Sim{
		duties: make(map[int][]int),
		frames: map[SensorID][]byte{
			// 500 raw = 50.0cm, light 128.
			SensorEye: {0x01, 0xF4, 0x80},
			// Accel z = 16384 (1g), everything else zero.
			SensorIMU: {0, 0, 0, 0, 0x40, 0x00, 0, 0, 0, 0, 0, 0},
		},
	}
}

func (s *Sim) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return s.OpenErr
	}
	s.open = true
	return nil
}

func (s *Sim) WritePulse(channel, duty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNotOpen
	}
	if s.WriteErr != nil {
		return fmt.Errorf("%w: channel %d duty %d: %w", ErrWriteFailed, channel, duty, s.WriteErr)
	}
	s.duties[channel] = append(s.duties[channel], duty)
	return nil
}

func (s *Sim) ReadSensor(id SensorID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, ErrNotOpen
	}
	if s.SensorErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSensorRead, id, s.SensorErr)
	}
	frame, ok := s.frames[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sensor %q", ErrSensorRead, id)
	}
	s.sensorReads++
	out := make([]byte, len(frame))
	copy(out, frame)
	return out, nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// SetFrame replaces the canned frame served for a sensor.
func (s *Sim) SetFrame(id SensorID, frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[id] = frame
}

// Writes returns the pulses written to a channel, oldest first.
func (s *Sim) Writes(channel int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.duties[channel]))
	copy(out, s.duties[channel])
	return out
}

// LastDuty returns the most recent pulse for a channel, or -1 if none.
func (s *Sim) LastDuty(channel int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	writes := s.duties[channel]
	if len(writes) == 0 {
		return -1
	}
	return writes[len(writes)-1]
}

// WriteCount returns the total number of pulses written to a channel.
func (s *Sim) WriteCount(channel int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.duties[channel])
}

// SensorReads returns how many sensor frames have been served.
func (s *Sim) SensorReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensorReads
}
