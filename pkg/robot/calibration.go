package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pibotics/go-humanoid/internal/log"
)

// Calibration holds the safe operating range and neutral pose for one
// servo, in degrees.
type Calibration struct {
	MinAngle     float64 `json:"min_angle"`
	MaxAngle     float64 `json:"max_angle"`
	NeutralAngle float64 `json:"neutral_angle"`
}

// Validate checks the min < neutral < max ordering.
func (c Calibration) Validate() error {
	if !(c.MinAngle < c.NeutralAngle && c.NeutralAngle < c.MaxAngle) {
		return fmt.Errorf("%w: min=%.1f neutral=%.1f max=%.1f (want min < neutral < max)",
			ErrInvalidCalibration, c.MinAngle, c.NeutralAngle, c.MaxAngle)
	}
	return nil
}

// Clamp returns angle restricted to [MinAngle, MaxAngle].
func (c Calibration) Clamp(angle float64) float64 {
	if angle < c.MinAngle {
		return c.MinAngle
	}
	if angle > c.MaxAngle {
		return c.MaxAngle
	}
	return angle
}

// DefaultCalibration returns the factory range for a channel: the head
// gets a narrower sweep than the limb joints, neutral is 90 everywhere.
func DefaultCalibration(ch Channel) Calibration {
	if ch == Head {
		return Calibration{MinAngle: 45, MaxAngle: 135, NeutralAngle: 90}
	}
	return Calibration{MinAngle: 30, MaxAngle: 150, NeutralAngle: 90}
}

// calibrationEntry is the on-disk record for one channel. The file is a
// JSON array ordered by channel so it round-trips exactly.
type calibrationEntry struct {
	Channel      int     `json:"channel"`
	Name         string  `json:"name"`
	MinAngle     float64 `json:"min_angle"`
	MaxAngle     float64 `json:"max_angle"`
	NeutralAngle float64 `json:"neutral_angle"`
}

// CalibrationStore maps each channel to its calibration. It is loaded at
// startup, mutable at runtime through Set, and persisted on demand.
type CalibrationStore struct {
	path string

	mu            sync.RWMutex
	table         [NumChannels]Calibration
	usingDefaults bool
}

// NewCalibrationStore returns a store seeded with factory defaults; call
// Load to replace them with the persisted file.
func NewCalibrationStore(path string) *CalibrationStore {
	s := &CalibrationStore{path: path, usingDefaults: true}
	for _, ch := range AllChannels() {
		s.table[ch] = DefaultCalibration(ch)
	}
	return s
}

// Load reads the persisted calibration file. A missing or corrupt file is
// not fatal: the store keeps factory defaults and marks itself as such.
func (s *CalibrationStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		log.Warn("calibration file unavailable, using defaults", "path", s.path, "err", err)
		return nil
	}

	var entries []calibrationEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn("calibration file corrupt, using defaults", "path", s.path, "err", err)
		return nil
	}

	table := s.defaultTable()
	for _, e := range entries {
		ch := Channel(e.Channel)
		cal := Calibration{MinAngle: e.MinAngle, MaxAngle: e.MaxAngle, NeutralAngle: e.NeutralAngle}
		if !ch.Valid() || cal.Validate() != nil {
			log.Warn("calibration file has bad entry, using defaults", "path", s.path, "channel", e.Channel)
			return nil
		}
		table[ch] = cal
	}

	s.mu.Lock()
	s.table = table
	s.usingDefaults = false
	s.mu.Unlock()
	log.Info("calibration loaded", "path", s.path, "channels", len(entries))
	return nil
}

func (s *CalibrationStore) defaultTable() [NumChannels]Calibration {
	var table [NumChannels]Calibration
	for _, ch := range AllChannels() {
		table[ch] = DefaultCalibration(ch)
	}
	return table
}

// Get returns the calibration for a channel.
func (s *CalibrationStore) Get(ch Channel) (Calibration, error) {
	if !ch.Valid() {
		return Calibration{}, fmt.Errorf("%w: %d", ErrUnknownChannel, ch)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table[ch], nil
}

// Set replaces the calibration for a channel in memory. It does not
// persist; call Save for that.
func (s *CalibrationStore) Set(ch Channel, cal Calibration) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, ch)
	}
	if err := cal.Validate(); err != nil {
		return fmt.Errorf("channel %s: %w", ch, err)
	}
	s.mu.Lock()
	s.table[ch] = cal
	s.usingDefaults = false
	s.mu.Unlock()
	return nil
}

// UsingDefaults reports whether the store is still on factory defaults
// because no usable file was loaded.
func (s *CalibrationStore) UsingDefaults() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usingDefaults
}

// Save persists the current table. The file is written to a temp path in
// the same directory and renamed over the target, so a crash mid-write
// cannot leave a truncated file behind.
func (s *CalibrationStore) Save() error {
	s.mu.RLock()
	entries := make([]calibrationEntry, 0, NumChannels)
	for _, ch := range AllChannels() {
		cal := s.table[ch]
		entries = append(entries, calibrationEntry{
			Channel:      int(ch),
			Name:         ch.Name(),
			MinAngle:     cal.MinAngle,
			MaxAngle:     cal.MaxAngle,
			NeutralAngle: cal.NeutralAngle,
		})
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode calibration: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp calibration file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write calibration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp calibration file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace calibration file: %w", err)
	}
	log.Info("calibration saved", "path", s.path)
	return nil
}

// Path returns the file the store persists to.
func (s *CalibrationStore) Path() string {
	return s.path
}
