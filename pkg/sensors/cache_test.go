package sensors

import (
	"errors"
	"testing"
	"time"

	"github.com/pibotics/go-humanoid/pkg/hardware"
)

func newTestCache(t *testing.T, opts ...CacheOption) (*Cache, *hardware.Sim) {
	t.Helper()
	sim := hardware.NewSim()
	if err := sim.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	return NewCache(sim, opts...), sim
}

func TestReadServesCachedWithinTTL(t *testing.T) {
	now := time.Now()
	cache, sim := newTestCache(t, WithNow(func() time.Time { return now }))

	first, err := cache.Read(hardware.SensorEye)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if got := first.Values["distance_cm"]; got != 50.0 {
		t.Errorf("distance_cm = %v, want 50.0", got)
	}

	// Second read inside the TTL must not touch hardware.
	now = now.Add(50 * time.Millisecond)
	second, err := cache.Read(hardware.SensorEye)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if sim.SensorReads() != 1 {
		t.Errorf("SensorReads() = %d, want 1", sim.SensorReads())
	}
	if !second.CapturedAt.Equal(first.CapturedAt) {
		t.Error("cached read has a different CapturedAt")
	}
}

func TestReadRefreshesAfterTTL(t *testing.T) {
	now := time.Now()
	cache, sim := newTestCache(t, WithNow(func() time.Time { return now }))

	if _, err := cache.Read(hardware.SensorIMU); err != nil {
		t.Fatalf("Read() = %v", err)
	}

	now = now.Add(DefaultTTL + time.Millisecond)
	reading, err := cache.Read(hardware.SensorIMU)
	if err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if sim.SensorReads() != 2 {
		t.Errorf("SensorReads() = %d, want 2", sim.SensorReads())
	}
	if !reading.CapturedAt.Equal(now) {
		t.Errorf("CapturedAt = %v, want %v", reading.CapturedAt, now)
	}
}

func TestInvalidateForcesRefresh(t *testing.T) {
	now := time.Now()
	cache, sim := newTestCache(t, WithNow(func() time.Time { return now }))

	if _, err := cache.Read(hardware.SensorEye); err != nil {
		t.Fatalf("Read() = %v", err)
	}
	cache.Invalidate(hardware.SensorEye)
	if _, err := cache.Read(hardware.SensorEye); err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if sim.SensorReads() != 2 {
		t.Errorf("SensorReads() = %d, want 2", sim.SensorReads())
	}
}

func TestFailedRefreshSurfacesError(t *testing.T) {
	now := time.Now()
	cache, sim := newTestCache(t, WithNow(func() time.Time { return now }))

	if _, err := cache.Read(hardware.SensorEye); err != nil {
		t.Fatalf("Read() = %v", err)
	}

	now = now.Add(DefaultTTL + time.Millisecond)
	sim.SensorErr = errors.New("bus glitch")
	if _, err := cache.Read(hardware.SensorEye); !errors.Is(err, ErrSensorUnavailable) {
		t.Errorf("Read() after hardware failure = %v, want ErrSensorUnavailable", err)
	}

	// Recovery: the next read after the fault clears works normally.
	sim.SensorErr = nil
	reading, err := cache.Read(hardware.SensorEye)
	if err != nil {
		t.Fatalf("Read() after recovery = %v", err)
	}
	if !reading.CapturedAt.Equal(now) {
		t.Error("recovered read did not refresh the entry")
	}
}

func TestReadUnknownSensor(t *testing.T) {
	cache, _ := newTestCache(t)
	if _, err := cache.Read("thermometer"); !errors.Is(err, ErrSensorUnavailable) {
		t.Errorf("Read(thermometer) = %v, want ErrSensorUnavailable", err)
	}
}

func TestWithTTL(t *testing.T) {
	now := time.Now()
	cache, sim := newTestCache(t,
		WithTTL(10*time.Millisecond),
		WithNow(func() time.Time { return now }),
	)

	if _, err := cache.Read(hardware.SensorEye); err != nil {
		t.Fatalf("Read() = %v", err)
	}
	now = now.Add(11 * time.Millisecond)
	if _, err := cache.Read(hardware.SensorEye); err != nil {
		t.Fatalf("Read() = %v", err)
	}
	if sim.SensorReads() != 2 {
		t.Errorf("SensorReads() = %d, want 2", sim.SensorReads())
	}
}
