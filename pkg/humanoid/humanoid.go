// Package humanoid is the top-level facade for the robot: it owns the
// lifecycle state machine and exposes motion, queueing, gesture, sensor
// and calibration operations to outside callers (web layer, CLI).
//
// There is no package-level robot instance; the process entry point
// constructs one Robot and passes it to whoever needs it.
package humanoid

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pibotics/go-humanoid/internal/log"
	"github.com/pibotics/go-humanoid/pkg/hardware"
	"github.com/pibotics/go-humanoid/pkg/movement"
	"github.com/pibotics/go-humanoid/pkg/robot"
	"github.com/pibotics/go-humanoid/pkg/sensors"
)

// State is the robot's lifecycle state. Exactly one instance exists per
// Robot and transitions only through Initialize and Shutdown.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateMoving
	StateShuttingDown
	StateShutdown
)

var stateNames = map[State]string{
	StateUninitialized: "uninitialized",
	StateInitializing:  "initializing",
	StateReady:         "ready",
	StateMoving:        "moving",
	StateShuttingDown:  "shutting_down",
	StateShutdown:      "shutdown",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Robot orchestrates the hardware adapter, calibration store, motion
// controller and sensor cache behind one lifecycle.
type Robot struct {
	adapter hardware.Adapter
	calPath string
	tick    time.Duration
	ttl     time.Duration
	clock   movement.Clock

	mu    sync.Mutex
	state State
	cal   *robot.CalibrationStore
	ctrl  *movement.Controller
	cache *sensors.Cache
}

// Option configures a Robot.
type Option func(*Robot)

// WithCalibrationPath sets the calibration file location.
func WithCalibrationPath(path string) Option {
	return func(r *Robot) { r.calPath = path }
}

// WithTickInterval overrides the controller's interpolation period.
func WithTickInterval(d time.Duration) Option {
	return func(r *Robot) { r.tick = d }
}

// WithSensorTTL overrides the sensor cache freshness window.
func WithSensorTTL(d time.Duration) Option {
	return func(r *Robot) { r.ttl = d }
}

// WithClock injects the controller's time source.
func WithClock(c movement.Clock) Option {
	return func(r *Robot) { r.clock = c }
}

// New returns an uninitialized Robot bound to the adapter.
func New(adapter hardware.Adapter, opts ...Option) *Robot {
	r := &Robot{
		adapter: adapter,
		calPath: "servo_calibration.json",
		tick:    movement.DefaultTickInterval,
		ttl:     sensors.DefaultTTL,
		clock:   movement.SystemClock{},
		state:   StateUninitialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize brings the robot up: opens the hardware adapter, loads
// calibration, centers every joint at its neutral angle and transitions
// to Ready. Valid from Uninitialized or Shutdown. Any hardware failure
// leaves the robot in Shutdown and surfaces ErrInitializationFailed.
func (r *Robot) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUninitialized && r.state != StateShutdown {
		return fmt.Errorf("%w: cannot initialize from state %s", robot.ErrInitializationFailed, r.state)
	}
	r.state = StateInitializing

	if err := r.adapter.Open(); err != nil {
		r.state = StateShutdown
		return fmt.Errorf("%w: open hardware adapter: %w", robot.ErrInitializationFailed, err)
	}

	cal := robot.NewCalibrationStore(r.calPath)
	if err := cal.Load(); err != nil {
		// Load falls back to defaults internally; an error here means
		// something unexpected, not a missing file.
		r.adapter.Close()
		r.state = StateShutdown
		return fmt.Errorf("%w: load calibration: %w", robot.ErrInitializationFailed, err)
	}

	ctrl := movement.NewController(r.adapter, cal,
		movement.WithClock(r.clock),
		movement.WithTickInterval(r.tick),
	)
	if err := ctrl.CenterAll(); err != nil {
		r.adapter.Close()
		r.state = StateShutdown
		return fmt.Errorf("%w: move to neutral: %w", robot.ErrInitializationFailed, err)
	}

	r.cal = cal
	r.ctrl = ctrl
	r.cache = sensors.NewCache(r.adapter,
		sensors.WithTTL(r.ttl),
		sensors.WithNow(r.clock.Now),
	)
	r.state = StateReady
	log.Info("robot initialized", "calibration", r.calPath, "defaults", cal.UsingDefaults())
	return nil
}

// Shutdown cancels in-flight moves, waits for them to exit, releases the
// hardware adapter and transitions to Shutdown. Idempotent: repeated
// calls (and calls before any Initialize) succeed as no-ops.
func (r *Robot) Shutdown() error {
	r.mu.Lock()
	switch r.state {
	case StateUninitialized, StateShuttingDown, StateShutdown:
		r.mu.Unlock()
		return nil
	}
	r.state = StateShuttingDown
	ctrl := r.ctrl
	r.mu.Unlock()

	if ctrl != nil {
		ctrl.Cancel()
		ctrl.Wait()
	}
	err := r.adapter.Close()

	r.mu.Lock()
	r.ctrl = nil
	r.state = StateShutdown
	r.mu.Unlock()

	if err != nil {
		return fmt.Errorf("release hardware adapter: %w", err)
	}
	log.Info("robot shut down")
	return nil
}

// State returns the lifecycle state; Ready is reported as Moving while
// any movement operation is in flight.
func (r *Robot) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateReady && r.ctrl != nil && r.ctrl.Moving() {
		return StateMoving
	}
	return r.state
}

// ready returns the controller if motion operations are allowed.
func (r *Robot) ready() (*movement.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady || r.ctrl == nil {
		return nil, fmt.Errorf("%w: state %s", robot.ErrNotInitialized, r.state)
	}
	return r.ctrl, nil
}

// SetServo moves one channel; see movement.Controller.SetServo.
func (r *Robot) SetServo(ch robot.Channel, angle, speed float64) error {
	ctrl, err := r.ready()
	if err != nil {
		return err
	}
	return ctrl.SetServo(ch, angle, speed)
}

// SetServos moves a batch of channels in lockstep over duration.
func (r *Robot) SetServos(targets map[robot.Channel]float64, duration time.Duration) error {
	ctrl, err := r.ready()
	if err != nil {
		return err
	}
	return ctrl.SetServos(targets, duration)
}

// QueueMovement appends a movement step and returns its handle.
func (r *Robot) QueueMovement(targets map[robot.Channel]float64, duration time.Duration) (uuid.UUID, error) {
	ctrl, err := r.ready()
	if err != nil {
		return uuid.Nil, err
	}
	return ctrl.Queue(targets, duration)
}

// ExecuteQueue drains the movement queue in FIFO order.
func (r *Robot) ExecuteQueue() error {
	ctrl, err := r.ready()
	if err != nil {
		return err
	}
	return ctrl.ExecuteQueue()
}

// QueueDepth returns the number of pending movement steps.
func (r *Robot) QueueDepth() int {
	ctrl, err := r.ready()
	if err != nil {
		return 0
	}
	return ctrl.QueueDepth()
}

// StandUp runs the stand-up gesture.
func (r *Robot) StandUp() error {
	ctrl, err := r.ready()
	if err != nil {
		return err
	}
	return ctrl.StandUp()
}

// WalkForward takes n steps forward.
func (r *Robot) WalkForward(steps int) error {
	ctrl, err := r.ready()
	if err != nil {
		return err
	}
	return ctrl.WalkForward(steps)
}

// Dance runs the dance gesture.
func (r *Robot) Dance() error {
	ctrl, err := r.ready()
	if err != nil {
		return err
	}
	return ctrl.Dance()
}

// Position returns the current angle of a channel.
func (r *Robot) Position(ch robot.Channel) (float64, error) {
	if !ch.Valid() {
		return 0, fmt.Errorf("%w: %d", robot.ErrUnknownChannel, ch)
	}
	ctrl, err := r.ready()
	if err != nil {
		return 0, err
	}
	return ctrl.Position(ch)
}

// AllPositions returns a snapshot of every channel's current angle.
func (r *Robot) AllPositions() (map[robot.Channel]float64, error) {
	ctrl, err := r.ready()
	if err != nil {
		return nil, err
	}
	return ctrl.Positions(), nil
}

// ReadSensor returns a cached-or-fresh sensor reading.
func (r *Robot) ReadSensor(id hardware.SensorID) (sensors.Reading, error) {
	r.mu.Lock()
	cache := r.cache
	state := r.state
	r.mu.Unlock()

	if state != StateReady || cache == nil {
		return sensors.Reading{}, fmt.Errorf("%w: state %s", robot.ErrNotInitialized, state)
	}
	return cache.Read(id)
}

// InvalidateSensor forces the next read of id to hit hardware.
func (r *Robot) InvalidateSensor(id hardware.SensorID) {
	r.mu.Lock()
	cache := r.cache
	r.mu.Unlock()
	if cache != nil {
		cache.Invalidate(id)
	}
}

// Calibration returns the calibration for a channel.
func (r *Robot) Calibration(ch robot.Channel) (robot.Calibration, error) {
	r.mu.Lock()
	cal := r.cal
	r.mu.Unlock()
	if cal == nil {
		return robot.Calibration{}, fmt.Errorf("%w: no calibration loaded", robot.ErrNotInitialized)
	}
	return cal.Get(ch)
}

// SetCalibration updates a channel's calibration in memory.
func (r *Robot) SetCalibration(ch robot.Channel, cal robot.Calibration) error {
	r.mu.Lock()
	store := r.cal
	r.mu.Unlock()
	if store == nil {
		return fmt.Errorf("%w: no calibration loaded", robot.ErrNotInitialized)
	}
	return store.Set(ch, cal)
}

// SaveCalibration persists the current calibration table atomically.
func (r *Robot) SaveCalibration() error {
	r.mu.Lock()
	store := r.cal
	r.mu.Unlock()
	if store == nil {
		return fmt.Errorf("%w: no calibration loaded", robot.ErrNotInitialized)
	}
	return store.Save()
}

// ServoInfo is one channel's entry in Info.
type ServoInfo struct {
	Channel  int     `json:"channel"`
	Name     string  `json:"name"`
	Position float64 `json:"position"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Neutral  float64 `json:"neutral"`
}

// Info summarizes the robot for status callers.
type Info struct {
	State              string      `json:"state"`
	Initialized        bool        `json:"initialized"`
	DefaultCalibration bool        `json:"default_calibration"`
	QueueDepth         int         `json:"queue_depth"`
	Servos             []ServoInfo `json:"servos"`
}

// Info returns the robot's state plus every channel's position and
// calibration bounds.
func (r *Robot) Info() (Info, error) {
	ctrl, err := r.ready()
	if err != nil {
		return Info{}, err
	}

	r.mu.Lock()
	cal := r.cal
	r.mu.Unlock()

	positions := ctrl.Positions()
	info := Info{
		State:              r.State().String(),
		Initialized:        true,
		DefaultCalibration: cal.UsingDefaults(),
		QueueDepth:         ctrl.QueueDepth(),
		Servos:             make([]ServoInfo, 0, robot.NumChannels),
	}
	for _, ch := range robot.AllChannels() {
		c, _ := cal.Get(ch)
		info.Servos = append(info.Servos, ServoInfo{
			Channel:  int(ch),
			Name:     ch.Name(),
			Position: positions[ch],
			Min:      c.MinAngle,
			Max:      c.MaxAngle,
			Neutral:  c.NeutralAngle,
		})
	}
	return info, nil
}
