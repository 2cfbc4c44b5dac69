package movement

import (
	"fmt"
	"time"

	"github.com/pibotics/go-humanoid/pkg/robot"
)

// Gestures are pre-authored joint sequences run as ordered batch moves;
// they hold no state of their own and leave the movement queue alone, so
// steps a caller has enqueued survive a gesture untouched. The stand and
// walk phases mirror the hand-tuned targets the frame was choreographed
// with.

type gesturePhase struct {
	targets  map[robot.Channel]float64
	duration time.Duration
}

// StandUp centers the frame, bends the knees, leans the hips forward and
// straightens back up into a stable standing pose.
func (c *Controller) StandUp() error {
	phases := []gesturePhase{
		{c.neutralTargets(), 600 * time.Millisecond},
		{map[robot.Channel]float64{robot.KneeRight: 120, robot.KneeLeft: 120}, 500 * time.Millisecond},
		{map[robot.Channel]float64{robot.HipRight: 110, robot.HipLeft: 110}, 500 * time.Millisecond},
		{map[robot.Channel]float64{robot.KneeRight: 90, robot.KneeLeft: 90}, 500 * time.Millisecond},
		{map[robot.Channel]float64{robot.HipRight: 90, robot.HipLeft: 90}, 500 * time.Millisecond},
	}
	return c.runGesture("stand_up", phases)
}

// WalkForward takes n weight-shifted steps. Each step lifts and advances
// one leg at a time, keeping the supporting hip loaded.
func (c *Controller) WalkForward(steps int) error {
	if steps < 1 {
		return nil
	}
	var phases []gesturePhase
	for i := 0; i < steps; i++ {
		phases = append(phases,
			// Shift weight to the right leg.
			gesturePhase{map[robot.Channel]float64{robot.HipRight: 100, robot.HipLeft: 100}, 400 * time.Millisecond},
			// Lift, advance and lower the left leg.
			gesturePhase{map[robot.Channel]float64{robot.KneeLeft: 120}, 400 * time.Millisecond},
			gesturePhase{map[robot.Channel]float64{robot.HipLeft: 70}, 400 * time.Millisecond},
			gesturePhase{map[robot.Channel]float64{robot.KneeLeft: 90}, 400 * time.Millisecond},
			// Shift weight to the left leg.
			gesturePhase{map[robot.Channel]float64{robot.HipRight: 80, robot.HipLeft: 80}, 400 * time.Millisecond},
			// Lift, advance and lower the right leg.
			gesturePhase{map[robot.Channel]float64{robot.KneeRight: 120}, 400 * time.Millisecond},
			gesturePhase{map[robot.Channel]float64{robot.HipRight: 110}, 400 * time.Millisecond},
			gesturePhase{map[robot.Channel]float64{robot.KneeRight: 90}, 400 * time.Millisecond},
			// Center the hips.
			gesturePhase{map[robot.Channel]float64{robot.HipRight: 90, robot.HipLeft: 90}, 400 * time.Millisecond},
		)
	}
	return c.runGesture("walk_forward", phases)
}

// Dance runs a short arm-and-head routine: alternating shoulder raises
// with elbow curls, wrist twists and a head sweep, ending at neutral.
func (c *Controller) Dance() error {
	phases := []gesturePhase{
		{map[robot.Channel]float64{robot.ShoulderRight: 140, robot.ElbowRight: 60, robot.Head: 70}, 500 * time.Millisecond},
		{map[robot.Channel]float64{robot.ShoulderRight: 90, robot.ElbowRight: 90, robot.ShoulderLeft: 140, robot.ElbowLeft: 60, robot.Head: 110}, 500 * time.Millisecond},
		{map[robot.Channel]float64{robot.ShoulderLeft: 90, robot.ElbowLeft: 90, robot.WristRight: 120, robot.WristLeft: 60}, 400 * time.Millisecond},
		{map[robot.Channel]float64{robot.WristRight: 60, robot.WristLeft: 120, robot.Head: 90}, 400 * time.Millisecond},
		{map[robot.Channel]float64{robot.ShoulderRight: 140, robot.ShoulderLeft: 140}, 500 * time.Millisecond},
		{c.neutralTargets(), 600 * time.Millisecond},
	}
	return c.runGesture("dance", phases)
}

// runGesture plays the phases in order, waiting for each to settle
// before the next starts. A failed phase aborts the remainder.
func (c *Controller) runGesture(name string, phases []gesturePhase) error {
	for i, p := range phases {
		if err := c.move(p.targets, p.duration); err != nil {
			return fmt.Errorf("%s: phase %d of %d: %w", name, i+1, len(phases), err)
		}
	}
	return nil
}

func (c *Controller) neutralTargets() map[robot.Channel]float64 {
	targets := make(map[robot.Channel]float64, robot.NumChannels)
	for _, ch := range robot.AllChannels() {
		calib, _ := c.cal.Get(ch)
		targets[ch] = calib.NeutralAngle
	}
	return targets
}
