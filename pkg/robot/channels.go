// Package robot defines the joint channel table, per-channel calibration
// storage and the error taxonomy shared by the motion subsystem.
package robot

// Channel is one addressable PWM output driving one servo. The mapping
// from channel number to joint is fixed by the robot's wiring loom and
// immutable for the process lifetime.
type Channel int

// Joint channels, in wiring order.
const (
	Head Channel = iota
	ShoulderRight
	ShoulderLeft
	ElbowRight
	ElbowLeft
	HipRight
	HipLeft
	KneeRight
	KneeLeft
	AnkleRight
	AnkleLeft
	WristRight
	WristLeft
)

// NumChannels is the number of servo channels on the frame.
const NumChannels = 13

var channelNames = [NumChannels]string{
	"head",
	"shoulder_right",
	"shoulder_left",
	"elbow_right",
	"elbow_left",
	"hip_right",
	"hip_left",
	"knee_right",
	"knee_left",
	"ankle_right",
	"ankle_left",
	"wrist_right",
	"wrist_left",
}

// Valid reports whether c addresses one of the frame's servos.
func (c Channel) Valid() bool {
	return c >= 0 && c < NumChannels
}

// Name returns the anatomical name for the channel, or "unknown".
func (c Channel) Name() string {
	if !c.Valid() {
		return "unknown"
	}
	return channelNames[c]
}

func (c Channel) String() string {
	return c.Name()
}

// AllChannels returns every channel in wiring order.
func AllChannels() []Channel {
	out := make([]Channel, NumChannels)
	for i := range out {
		out[i] = Channel(i)
	}
	return out
}
