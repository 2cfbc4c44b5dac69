package hardware

import (
	"errors"
	"testing"
)

func TestSimRequiresOpen(t *testing.T) {
	sim := NewSim()

	if err := sim.WritePulse(0, 375); !errors.Is(err, ErrNotOpen) {
		t.Errorf("WritePulse before Open = %v, want ErrNotOpen", err)
	}
	if _, err := sim.ReadSensor(SensorEye); !errors.Is(err, ErrNotOpen) {
		t.Errorf("ReadSensor before Open = %v, want ErrNotOpen", err)
	}
}

func TestSimRecordsWrites(t *testing.T) {
	sim := NewSim()
	if err := sim.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}

	sim.WritePulse(3, 150)
	sim.WritePulse(3, 375)

	if got := sim.WriteCount(3); got != 2 {
		t.Errorf("WriteCount(3) = %d, want 2", got)
	}
	if got := sim.LastDuty(3); got != 375 {
		t.Errorf("LastDuty(3) = %d, want 375", got)
	}
	if got := sim.LastDuty(4); got != -1 {
		t.Errorf("LastDuty(4) = %d, want -1", got)
	}
}

func TestSimInjectedWriteFailure(t *testing.T) {
	sim := NewSim()
	if err := sim.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	sim.WriteErr = errors.New("bus fault")

	if err := sim.WritePulse(0, 375); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("WritePulse with injected fault = %v, want ErrWriteFailed", err)
	}
	if got := sim.WriteCount(0); got != 0 {
		t.Errorf("WriteCount(0) = %d, want 0 after failed write", got)
	}
}

func TestSimSensorFrames(t *testing.T) {
	sim := NewSim()
	if err := sim.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}

	frame, err := sim.ReadSensor(SensorIMU)
	if err != nil {
		t.Fatalf("ReadSensor(imu) = %v", err)
	}
	if len(frame) != 12 {
		t.Errorf("imu frame len = %d, want 12", len(frame))
	}

	sim.SetFrame(SensorEye, []byte{0x00, 0x64, 0x10})
	frame, err = sim.ReadSensor(SensorEye)
	if err != nil {
		t.Fatalf("ReadSensor(eye) = %v", err)
	}
	if frame[1] != 0x64 {
		t.Errorf("eye frame[1] = %#x, want 0x64", frame[1])
	}

	if _, err := sim.ReadSensor("thermometer"); !errors.Is(err, ErrSensorRead) {
		t.Errorf("ReadSensor(unknown) = %v, want ErrSensorRead", err)
	}
}

func TestSimCloseIsIdempotent(t *testing.T) {
	sim := NewSim()
	if err := sim.Open(); err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if err := sim.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := sim.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
