package movement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pibotics/go-humanoid/internal/log"
	"github.com/pibotics/go-humanoid/pkg/robot"
)

// Step is one queued unit of motion: a batch of channel targets applied
// over a duration. Steps are consumed in FIFO order and discarded.
type Step struct {
	ID       uuid.UUID                 `json:"id"`
	Targets  map[robot.Channel]float64 `json:"targets"`
	Duration time.Duration             `json:"duration"`
}

// Queue appends a movement step and returns its handle. Nothing moves
// yet. Channel numbers are validated here; angles are clamped at
// execution time so the step tracks calibration changes made after
// enqueue.
func (c *Controller) Queue(targets map[robot.Channel]float64, duration time.Duration) (uuid.UUID, error) {
	for ch := range targets {
		if !ch.Valid() {
			return uuid.Nil, fmt.Errorf("%w: %d", robot.ErrUnknownChannel, ch)
		}
	}

	step := Step{
		ID:       uuid.New(),
		Targets:  copyTargets(targets),
		Duration: duration,
	}

	c.queueMu.Lock()
	c.queue = append(c.queue, step)
	depth := len(c.queue)
	c.queueMu.Unlock()

	log.Debug("movement queued", "step", step.ID, "channels", len(targets), "depth", depth)
	return step.ID, nil
}

// ExecuteQueue drains the queue strictly in FIFO order, running each step
// as a lockstep batch move and waiting for it to settle before starting
// the next. The queue is cleared whether the drain completes or aborts: a
// failed step discards the remainder rather than silently skipping it.
func (c *Controller) ExecuteQueue() error {
	c.queueMu.Lock()
	steps := c.queue
	c.queue = nil
	c.queueMu.Unlock()

	for i, step := range steps {
		if err := c.move(step.Targets, step.Duration); err != nil {
			return fmt.Errorf("%w: step %d of %d (%s): %w",
				robot.ErrQueueStepFailed, i+1, len(steps), step.ID, err)
		}
	}
	return nil
}

// QueueDepth returns the number of pending steps.
func (c *Controller) QueueDepth() int {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return len(c.queue)
}

// ClearQueue discards all pending steps without executing them.
func (c *Controller) ClearQueue() {
	c.queueMu.Lock()
	c.queue = nil
	c.queueMu.Unlock()
}

func copyTargets(targets map[robot.Channel]float64) map[robot.Channel]float64 {
	out := make(map[robot.Channel]float64, len(targets))
	for ch, angle := range targets {
		out[ch] = angle
	}
	return out
}
