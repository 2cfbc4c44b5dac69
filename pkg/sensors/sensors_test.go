package sensors

import (
	"testing"

	"github.com/pibotics/go-humanoid/pkg/hardware"
)

func TestDecodeEye(t *testing.T) {
	// 500 raw units of 0.1cm, light 128.
	values, err := Decode(hardware.SensorEye, []byte{0x01, 0xF4, 0x80})
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if got := values["distance_cm"]; got != 50.0 {
		t.Errorf("distance_cm = %v, want 50.0", got)
	}
	if got := values["ambient_light"]; got != 128 {
		t.Errorf("ambient_light = %v, want 128", got)
	}
}

func TestDecodeIMU(t *testing.T) {
	// Accel z at 1g, gyro x at 131 raw = 1 deg/s, everything else zero.
	frame := []byte{0, 0, 0, 0, 0x40, 0x00, 0x00, 0x83, 0, 0, 0, 0}
	values, err := Decode(hardware.SensorIMU, frame)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if got := values["accel_z"]; got != 1.0 {
		t.Errorf("accel_z = %v, want 1.0", got)
	}
	if got := values["gyro_x"]; got != 1.0 {
		t.Errorf("gyro_x = %v, want 1.0", got)
	}
	if got := values["accel_x"]; got != 0 {
		t.Errorf("accel_x = %v, want 0", got)
	}
}

func TestDecodeIMUNegative(t *testing.T) {
	// Accel x at -1g (0xC000 as int16 = -16384).
	frame := []byte{0xC0, 0x00, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	values, err := Decode(hardware.SensorIMU, frame)
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if got := values["accel_x"]; got != -1.0 {
		t.Errorf("accel_x = %v, want -1.0", got)
	}
}

func TestDecodeBadFrames(t *testing.T) {
	if _, err := Decode(hardware.SensorEye, []byte{0x01}); err == nil {
		t.Error("Decode(short eye frame) = nil, want error")
	}
	if _, err := Decode(hardware.SensorIMU, []byte{0x01, 0x02}); err == nil {
		t.Error("Decode(short imu frame) = nil, want error")
	}
	if _, err := Decode("thermometer", []byte{0x01}); err == nil {
		t.Error("Decode(unknown sensor) = nil, want error")
	}
}

func TestKnown(t *testing.T) {
	if !Known(hardware.SensorEye) || !Known(hardware.SensorIMU) {
		t.Error("Known() = false for a real sensor")
	}
	if Known("thermometer") {
		t.Error("Known(thermometer) = true")
	}
}
