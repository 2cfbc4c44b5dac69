package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pibotics/go-humanoid/internal/log"
	"github.com/pibotics/go-humanoid/pkg/hardware"
	"github.com/pibotics/go-humanoid/pkg/robot"
	"github.com/pibotics/go-humanoid/pkg/sensors"
)

// defaultBatchDuration is used when a batch move request omits one.
const defaultBatchDuration = 500 * time.Millisecond

// stateMessage is the websocket stream payload.
type stateMessage struct {
	State     string             `json:"state"`
	Positions map[string]float64 `json:"positions"`
}

func channelMap(positions map[robot.Channel]float64) map[string]float64 {
	out := make(map[string]float64, len(positions))
	for ch, angle := range positions {
		out[ch.Name()] = angle
	}
	return out
}

// jsonError maps the error taxonomy onto HTTP statuses so callers can
// tell a bad request from a hardware fault.
func jsonError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	kind := "internal"

	switch {
	case errors.Is(err, robot.ErrUnknownChannel),
		errors.Is(err, robot.ErrInvalidCalibration),
		errors.Is(err, robot.ErrNotInitialized):
		status = fiber.StatusBadRequest
		kind = "bad_request"
	case errors.Is(err, robot.ErrChannelBusy):
		status = fiber.StatusConflict
		kind = "busy"
	case errors.Is(err, sensors.ErrSensorUnavailable):
		status = fiber.StatusServiceUnavailable
		kind = "hardware_fault"
	case errors.Is(err, hardware.ErrWriteFailed),
		errors.Is(err, robot.ErrQueueStepFailed),
		errors.Is(err, robot.ErrInitializationFailed):
		kind = "hardware_fault"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"kind":    kind,
		"message": err.Error(),
	})
}

func success(c *fiber.Ctx, extra fiber.Map) error {
	body := fiber.Map{"status": "success"}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(body)
}

func channelParam(c *fiber.Ctx) (robot.Channel, error) {
	n, err := strconv.Atoi(c.Params("channel"))
	if err != nil {
		return 0, robot.ErrUnknownChannel
	}
	ch := robot.Channel(n)
	if !ch.Valid() {
		return 0, robot.ErrUnknownChannel
	}
	return ch, nil
}

// parseTargets converts a request's channel-keyed mapping.
func parseTargets(raw map[string]float64) (map[robot.Channel]float64, error) {
	targets := make(map[robot.Channel]float64, len(raw))
	for key, angle := range raw {
		n, err := strconv.Atoi(key)
		if err != nil || !robot.Channel(n).Valid() {
			return nil, robot.ErrUnknownChannel
		}
		targets[robot.Channel(n)] = angle
	}
	return targets, nil
}

func (s *Server) handleInit(c *fiber.Ctx) error {
	if err := s.bot.Initialize(); err != nil {
		return jsonError(c, err)
	}
	return success(c, fiber.Map{"message": "robot initialized"})
}

func (s *Server) handleShutdown(c *fiber.Ctx) error {
	if err := s.bot.Shutdown(); err != nil {
		return jsonError(c, err)
	}
	return success(c, fiber.Map{"message": "robot shut down"})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return success(c, fiber.Map{"state": s.bot.State().String()})
}

type setServoRequest struct {
	Servo *int     `json:"servo"`
	Angle *float64 `json:"angle"`
	Speed float64  `json:"speed"`
}

func (s *Server) handleSetServo(c *fiber.Ctx) error {
	var req setServoRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, errors.New("bad request body"))
	}
	if req.Servo == nil || req.Angle == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error", "kind": "bad_request", "message": "missing servo or angle",
		})
	}
	if req.Speed == 0 {
		req.Speed = 0.01
	}
	if err := s.bot.SetServo(robot.Channel(*req.Servo), *req.Angle, req.Speed); err != nil {
		return jsonError(c, err)
	}
	return success(c, nil)
}

func (s *Server) handleGetServo(c *fiber.Ctx) error {
	ch, err := channelParam(c)
	if err != nil {
		return jsonError(c, err)
	}
	position, err := s.bot.Position(ch)
	if err != nil {
		return jsonError(c, err)
	}
	return success(c, fiber.Map{
		"servo":    int(ch),
		"name":     ch.Name(),
		"position": position,
	})
}

type batchRequest struct {
	Targets    map[string]float64 `json:"targets"`
	DurationMS int                `json:"duration_ms"`
}

func (b batchRequest) duration() time.Duration {
	if b.DurationMS <= 0 {
		return defaultBatchDuration
	}
	return time.Duration(b.DurationMS) * time.Millisecond
}

func (s *Server) handleSetServos(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, errors.New("bad request body"))
	}
	targets, err := parseTargets(req.Targets)
	if err != nil {
		return jsonError(c, err)
	}
	if err := s.bot.SetServos(targets, req.duration()); err != nil {
		return jsonError(c, err)
	}
	return success(c, nil)
}

func (s *Server) handleQueueMovement(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, errors.New("bad request body"))
	}
	targets, err := parseTargets(req.Targets)
	if err != nil {
		return jsonError(c, err)
	}
	id, err := s.bot.QueueMovement(targets, req.duration())
	if err != nil {
		return jsonError(c, err)
	}
	return success(c, fiber.Map{
		"handle": id.String(),
		"depth":  s.bot.QueueDepth(),
	})
}

func (s *Server) handleExecuteQueue(c *fiber.Ctx) error {
	if err := s.bot.ExecuteQueue(); err != nil {
		return jsonError(c, err)
	}
	return success(c, nil)
}

func (s *Server) handleStand(c *fiber.Ctx) error {
	if err := s.bot.StandUp(); err != nil {
		return jsonError(c, err)
	}
	return success(c, nil)
}

type walkRequest struct {
	Steps int `json:"steps"`
}

// handleWalk starts walking in the background so the request returns
// immediately; callers poll positions or the state stream for progress.
func (s *Server) handleWalk(c *fiber.Ctx) error {
	var req walkRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, errors.New("bad request body"))
	}
	if req.Steps <= 0 {
		req.Steps = 1
	}

	go func(steps int) {
		if err := s.bot.WalkForward(steps); err != nil {
			log.Error("walk failed", "steps", steps, "err", err)
		}
	}(req.Steps)

	return success(c, fiber.Map{"message": "walking", "steps": req.Steps})
}

func (s *Server) handleDance(c *fiber.Ctx) error {
	if err := s.bot.Dance(); err != nil {
		return jsonError(c, err)
	}
	return success(c, nil)
}

func (s *Server) handleRobotInfo(c *fiber.Ctx) error {
	info, err := s.bot.Info()
	if err != nil {
		return jsonError(c, err)
	}
	return success(c, fiber.Map{
		"state":               info.State,
		"initialized":         info.Initialized,
		"default_calibration": info.DefaultCalibration,
		"queue_depth":         info.QueueDepth,
		"servos":              info.Servos,
	})
}

func (s *Server) handleEyes(c *fiber.Ctx) error {
	reading, err := s.bot.ReadSensor(hardware.SensorEye)
	if err != nil {
		return jsonError(c, err)
	}
	return success(c, fiber.Map{"data": reading})
}

func (s *Server) handleIMU(c *fiber.Ctx) error {
	reading, err := s.bot.ReadSensor(hardware.SensorIMU)
	if err != nil {
		return jsonError(c, err)
	}
	return success(c, fiber.Map{"data": reading})
}

func (s *Server) handleGetCalibration(c *fiber.Ctx) error {
	out := make([]fiber.Map, 0, robot.NumChannels)
	for _, ch := range robot.AllChannels() {
		cal, err := s.bot.Calibration(ch)
		if err != nil {
			return jsonError(c, err)
		}
		out = append(out, fiber.Map{
			"channel": int(ch),
			"name":    ch.Name(),
			"min":     cal.MinAngle,
			"max":     cal.MaxAngle,
			"neutral": cal.NeutralAngle,
		})
	}
	return success(c, fiber.Map{"calibration": out})
}

type calibrationRequest struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Neutral float64 `json:"neutral"`
}

func (s *Server) handleSetCalibration(c *fiber.Ctx) error {
	ch, err := channelParam(c)
	if err != nil {
		return jsonError(c, err)
	}
	var req calibrationRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, errors.New("bad request body"))
	}
	cal := robot.Calibration{MinAngle: req.Min, MaxAngle: req.Max, NeutralAngle: req.Neutral}
	if err := s.bot.SetCalibration(ch, cal); err != nil {
		return jsonError(c, err)
	}
	return success(c, nil)
}

func (s *Server) handleSaveCalibration(c *fiber.Ctx) error {
	if err := s.bot.SaveCalibration(); err != nil {
		return jsonError(c, err)
	}
	return success(c, nil)
}
