package humanoid

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pibotics/go-humanoid/pkg/hardware"
	"github.com/pibotics/go-humanoid/pkg/movement"
	"github.com/pibotics/go-humanoid/pkg/robot"
)

func newTestRobot(t *testing.T) (*Robot, *hardware.Sim) {
	t.Helper()
	sim := hardware.NewSim()
	bot := New(sim, WithCalibrationPath(filepath.Join(t.TempDir(), "cal.json")))
	return bot, sim
}

func TestLifecycle(t *testing.T) {
	bot, sim := newTestRobot(t)
	assert.Equal(t, StateUninitialized, bot.State())

	require.NoError(t, bot.Initialize())
	assert.Equal(t, StateReady, bot.State())

	// Bring-up centered every joint.
	for _, ch := range robot.AllChannels() {
		assert.Equal(t, movement.AngleToDuty(90), sim.LastDuty(int(ch)), "channel %s", ch)
	}

	// Initialize is not valid from Ready.
	err := bot.Initialize()
	assert.ErrorIs(t, err, robot.ErrInitializationFailed)
	assert.Equal(t, StateReady, bot.State())

	require.NoError(t, bot.Shutdown())
	assert.Equal(t, StateShutdown, bot.State())
}

func TestInitializeOpenFailure(t *testing.T) {
	bot, sim := newTestRobot(t)
	sim.OpenErr = errors.New("no i2c bus")

	err := bot.Initialize()
	assert.ErrorIs(t, err, robot.ErrInitializationFailed)
	assert.Equal(t, StateShutdown, bot.State())

	// The fault is recoverable: a later Initialize succeeds.
	sim.OpenErr = nil
	require.NoError(t, bot.Initialize())
	assert.Equal(t, StateReady, bot.State())
}

func TestInitializeCenterFailure(t *testing.T) {
	bot, sim := newTestRobot(t)
	sim.WriteErr = errors.New("bus fault")

	err := bot.Initialize()
	assert.ErrorIs(t, err, robot.ErrInitializationFailed)
	assert.Equal(t, StateShutdown, bot.State())
}

func TestShutdownIsIdempotent(t *testing.T) {
	bot, _ := newTestRobot(t)

	// Before any Initialize, Shutdown is a successful no-op.
	require.NoError(t, bot.Shutdown())
	assert.Equal(t, StateUninitialized, bot.State())

	require.NoError(t, bot.Initialize())
	require.NoError(t, bot.Shutdown())
	require.NoError(t, bot.Shutdown())
	assert.Equal(t, StateShutdown, bot.State())
}

func TestReinitializeAfterShutdown(t *testing.T) {
	bot, _ := newTestRobot(t)

	require.NoError(t, bot.Initialize())
	require.NoError(t, bot.Shutdown())
	require.NoError(t, bot.Initialize())
	assert.Equal(t, StateReady, bot.State())
}

func TestOperationsRequireReady(t *testing.T) {
	bot, _ := newTestRobot(t)

	assert.ErrorIs(t, bot.SetServo(robot.Head, 120, 0), robot.ErrNotInitialized)
	assert.ErrorIs(t, bot.SetServos(map[robot.Channel]float64{robot.Head: 120}, 0), robot.ErrNotInitialized)
	assert.ErrorIs(t, bot.ExecuteQueue(), robot.ErrNotInitialized)
	assert.ErrorIs(t, bot.StandUp(), robot.ErrNotInitialized)

	_, err := bot.Position(robot.Head)
	assert.ErrorIs(t, err, robot.ErrNotInitialized)

	_, err = bot.ReadSensor(hardware.SensorEye)
	assert.ErrorIs(t, err, robot.ErrNotInitialized)

	// Channel validity is checked before readiness.
	_, err = bot.Position(robot.Channel(99))
	assert.ErrorIs(t, err, robot.ErrUnknownChannel)
}

func TestSetServoAndPosition(t *testing.T) {
	bot, _ := newTestRobot(t)
	require.NoError(t, bot.Initialize())

	require.NoError(t, bot.SetServo(robot.Head, 120, 0))
	pos, err := bot.Position(robot.Head)
	require.NoError(t, err)
	assert.Equal(t, 120.0, pos)

	positions, err := bot.AllPositions()
	require.NoError(t, err)
	assert.Equal(t, 120.0, positions[robot.Head])
	assert.Equal(t, 90.0, positions[robot.KneeLeft])
}

func TestQueueAndExecute(t *testing.T) {
	bot, _ := newTestRobot(t)
	require.NoError(t, bot.Initialize())

	id, err := bot.QueueMovement(map[robot.Channel]float64{robot.ElbowRight: 60}, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, bot.QueueDepth())

	require.NoError(t, bot.ExecuteQueue())
	assert.Zero(t, bot.QueueDepth())

	pos, err := bot.Position(robot.ElbowRight)
	require.NoError(t, err)
	assert.Equal(t, 60.0, pos)
}

func TestReadSensorThroughCache(t *testing.T) {
	bot, sim := newTestRobot(t)
	require.NoError(t, bot.Initialize())

	reading, err := bot.ReadSensor(hardware.SensorEye)
	require.NoError(t, err)
	assert.Equal(t, 50.0, reading.Values["distance_cm"])

	// A second read inside the TTL is served from cache.
	_, err = bot.ReadSensor(hardware.SensorEye)
	require.NoError(t, err)
	assert.Equal(t, 1, sim.SensorReads())

	bot.InvalidateSensor(hardware.SensorEye)
	_, err = bot.ReadSensor(hardware.SensorEye)
	require.NoError(t, err)
	assert.Equal(t, 2, sim.SensorReads())
}

func TestCalibrationRoundTripThroughFacade(t *testing.T) {
	calPath := filepath.Join(t.TempDir(), "cal.json")
	sim := hardware.NewSim()
	bot := New(sim, WithCalibrationPath(calPath))
	require.NoError(t, bot.Initialize())

	custom := robot.Calibration{MinAngle: 40, MaxAngle: 140, NeutralAngle: 95}
	require.NoError(t, bot.SetCalibration(robot.HipLeft, custom))
	require.NoError(t, bot.SaveCalibration())
	require.NoError(t, bot.Shutdown())

	// A fresh robot against the same file picks the tuned values up.
	fresh := New(hardware.NewSim(), WithCalibrationPath(calPath))
	require.NoError(t, fresh.Initialize())
	got, err := fresh.Calibration(robot.HipLeft)
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestInfo(t *testing.T) {
	bot, _ := newTestRobot(t)
	require.NoError(t, bot.Initialize())
	require.NoError(t, bot.SetServo(robot.Head, 120, 0))

	info, err := bot.Info()
	require.NoError(t, err)
	assert.Equal(t, "ready", info.State)
	assert.True(t, info.Initialized)
	assert.True(t, info.DefaultCalibration)
	assert.Len(t, info.Servos, robot.NumChannels)
	assert.Equal(t, "head", info.Servos[0].Name)
	assert.Equal(t, 120.0, info.Servos[0].Position)
	assert.Equal(t, 135.0, info.Servos[0].Max)
}

func TestMovingStateWhileGestureRuns(t *testing.T) {
	bot, _ := newTestRobot(t)
	require.NoError(t, bot.Initialize())

	// A short real-time move long enough to observe mid-flight.
	done := make(chan error, 1)
	go func() {
		done <- bot.SetServos(map[robot.Channel]float64{robot.Head: 120}, 200*time.Millisecond)
	}()

	deadline := time.After(2 * time.Second)
	for bot.State() != StateMoving {
		select {
		case <-deadline:
			t.Fatal("never observed moving state")
		case err := <-done:
			// Move finished before we sampled; that's a pass only if it
			// at least succeeded.
			require.NoError(t, err)
			return
		default:
			time.Sleep(time.Millisecond)
		}
	}

	require.NoError(t, <-done)
	assert.Equal(t, StateReady, bot.State())
}
