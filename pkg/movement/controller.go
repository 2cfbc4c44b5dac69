// Package movement turns high-level motion intents into time-sequenced,
// rate-limited, hardware-safe PWM commands.
//
// All motion funnels through one tick engine: a move claims its channels,
// interpolates linearly from the current angle to the clamped target over
// a fixed tick schedule, and writes every channel of a batch before
// sleeping to the next tick so multi-joint gestures stay synchronized.
package movement

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pibotics/go-humanoid/internal/log"
	"github.com/pibotics/go-humanoid/pkg/hardware"
	"github.com/pibotics/go-humanoid/pkg/robot"
)

// DefaultTickInterval is the interpolation sample period. 20ms matches
// the 50Hz servo frame, so each tick lands one pulse per channel.
const DefaultTickInterval = 20 * time.Millisecond

// Pulse bounds for the 12-bit PWM counter at 50Hz: 150 ticks is roughly a
// 1ms pulse (0 degrees), 600 roughly 2ms (180 degrees).
const (
	minPulse = 150
	maxPulse = 600
)

// AngleToDuty converts an angle in degrees to the raw 12-bit duty value
// written to the PWM chip.
func AngleToDuty(angle float64) int {
	return minPulse + int(angle/180.0*float64(maxPulse-minPulse))
}

// trajectory is one channel's planned path within a move.
type trajectory struct {
	ch     robot.Channel
	start  float64
	target float64
}

// Controller owns the live position of every channel and drives the
// hardware adapter through calibration-aware angle conversion. It is safe
// for concurrent use: position queries only contend with a move for the
// duration of one tick's critical section, never a whole move.
type Controller struct {
	adapter hardware.Adapter
	cal     *robot.CalibrationStore
	clock   Clock
	tick    time.Duration

	mu        sync.Mutex
	positions [robot.NumChannels]float64
	targets   [robot.NumChannels]float64
	busy      [robot.NumChannels]bool

	queueMu sync.Mutex
	queue   []Step

	cancel     chan struct{}
	cancelOnce sync.Once
	inFlight   atomic.Int32
	active     sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects a time source (tests use a virtual clock).
func WithClock(c Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithTickInterval overrides the interpolation sample period.
func WithTickInterval(d time.Duration) Option {
	return func(ctrl *Controller) {
		if d > 0 {
			ctrl.tick = d
		}
	}
}

// NewController returns a controller whose position table is seeded with
// each channel's neutral angle. Call CenterAll to make the frame match.
func NewController(adapter hardware.Adapter, cal *robot.CalibrationStore, opts ...Option) *Controller {
	c := &Controller{
		adapter: adapter,
		cal:     cal,
		clock:   SystemClock{},
		tick:    DefaultTickInterval,
		cancel:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, ch := range robot.AllChannels() {
		calib, _ := cal.Get(ch)
		c.positions[ch] = calib.NeutralAngle
		c.targets[ch] = calib.NeutralAngle
	}
	return c
}

// CenterAll writes every channel's neutral pulse immediately, bypassing
// interpolation. Used at bring-up when the physical pose is unknown.
func (c *Controller) CenterAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range robot.AllChannels() {
		calib, _ := c.cal.Get(ch)
		if err := c.adapter.WritePulse(int(ch), AngleToDuty(calib.NeutralAngle)); err != nil {
			return fmt.Errorf("center %s: %w", ch, err)
		}
		c.positions[ch] = calib.NeutralAngle
		c.targets[ch] = calib.NeutralAngle
	}
	return nil
}

// SetServo moves one channel to angle. The angle is clamped to the
// channel's calibration bounds; moving to the current angle is a no-op
// with no adapter writes. speed is seconds per degree of travel, so the
// move duration scales with angular distance; speed <= 0 completes in a
// single tick. Blocks until the channel settles.
func (c *Controller) SetServo(ch robot.Channel, angle, speed float64) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %d", robot.ErrUnknownChannel, ch)
	}
	calib, err := c.cal.Get(ch)
	if err != nil {
		return err
	}
	target := calib.Clamp(angle)

	c.mu.Lock()
	distance := math.Abs(target - c.positions[ch])
	c.mu.Unlock()

	var duration time.Duration
	if speed > 0 {
		duration = time.Duration(distance * speed * float64(time.Second))
	}
	return c.move(map[robot.Channel]float64{ch: angle}, duration)
}

// SetServos moves a batch of channels in lockstep over duration: every
// channel shares the same tick schedule and wall-clock start, so paired
// joints reach their targets together. Channels already at their clamped
// target are excluded from the tick loop entirely. Blocks until settled.
func (c *Controller) SetServos(targets map[robot.Channel]float64, duration time.Duration) error {
	return c.move(targets, duration)
}

// move is the shared tick engine behind every movement operation.
func (c *Controller) move(targets map[robot.Channel]float64, duration time.Duration) error {
	trajs, err := c.claim(targets)
	if err != nil {
		return err
	}
	if len(trajs) == 0 {
		return nil
	}

	c.inFlight.Add(1)
	c.active.Add(1)
	defer func() {
		c.release(trajs)
		c.inFlight.Add(-1)
		c.active.Done()
	}()

	n := int(duration / c.tick)
	if n < 1 {
		n = 1
	}

	for i := 1; i <= n; i++ {
		// Cancellation is checked at the top of each tick: the loop
		// exits before the next write, leaving joints at their
		// last-reached angle.
		select {
		case <-c.cancel:
			log.Debug("move canceled", "tick", i, "of", n)
			return nil
		default:
		}

		c.mu.Lock()
		for _, t := range trajs {
			angle := t.start + (t.target-t.start)*float64(i)/float64(n)
			if i == n {
				// The final tick lands exactly on the target so no
				// rounding drift accumulates past the last sample.
				angle = t.target
			}
			if err := c.adapter.WritePulse(int(t.ch), AngleToDuty(angle)); err != nil {
				c.mu.Unlock()
				return fmt.Errorf("move %s to %.1f: %w", t.ch, t.target, err)
			}
			c.positions[t.ch] = angle
		}
		c.mu.Unlock()

		if i < n {
			c.clock.Sleep(c.tick)
		}
	}
	return nil
}

// claim validates the batch, clamps targets against live calibration,
// drops redundant channels and marks the rest busy. All-or-nothing: if
// any requested channel is mid-move, nothing is claimed.
func (c *Controller) claim(targets map[robot.Channel]float64) ([]trajectory, error) {
	for ch := range targets {
		if !ch.Valid() {
			return nil, fmt.Errorf("%w: %d", robot.ErrUnknownChannel, ch)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for ch := range targets {
		if c.busy[ch] {
			return nil, fmt.Errorf("%w: %s mid-move", robot.ErrChannelBusy, ch)
		}
	}

	trajs := make([]trajectory, 0, len(targets))
	for ch, angle := range targets {
		calib, err := c.cal.Get(ch)
		if err != nil {
			return nil, err
		}
		target := calib.Clamp(angle)
		start := c.positions[ch]
		c.targets[ch] = target
		if start == target {
			continue
		}
		trajs = append(trajs, trajectory{ch: ch, start: start, target: target})
	}
	for _, t := range trajs {
		c.busy[t.ch] = true
	}
	return trajs, nil
}

func (c *Controller) release(trajs []trajectory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range trajs {
		c.busy[t.ch] = false
		// A canceled or aborted move settles where it stopped; the
		// target collapses onto the reached angle so Target never
		// reports a goal no move is pursuing.
		c.targets[t.ch] = c.positions[t.ch]
	}
}

// Position returns the current angle of a channel.
func (c *Controller) Position(ch robot.Channel) (float64, error) {
	if !ch.Valid() {
		return 0, fmt.Errorf("%w: %d", robot.ErrUnknownChannel, ch)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positions[ch], nil
}

// Target returns the goal angle of a channel: the clamped destination of
// an in-flight move, or the current angle once the channel has settled.
func (c *Controller) Target(ch robot.Channel) (float64, error) {
	if !ch.Valid() {
		return 0, fmt.Errorf("%w: %d", robot.ErrUnknownChannel, ch)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targets[ch], nil
}

// Positions returns a snapshot of every channel's current angle.
func (c *Controller) Positions() map[robot.Channel]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[robot.Channel]float64, robot.NumChannels)
	for _, ch := range robot.AllChannels() {
		out[ch] = c.positions[ch]
	}
	return out
}

// Moving reports whether any move is in flight.
func (c *Controller) Moving() bool {
	return c.inFlight.Load() > 0
}

// Cancel stops all in-flight moves at their next tick boundary. The
// controller cannot be reused afterwards; construct a fresh one.
func (c *Controller) Cancel() {
	c.cancelOnce.Do(func() { close(c.cancel) })
}

// Wait blocks until every in-flight move has exited.
func (c *Controller) Wait() {
	c.active.Wait()
}
