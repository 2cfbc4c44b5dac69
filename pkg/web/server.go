// Package web exposes the robot over HTTP: REST routes that translate
// requests into facade calls, plus a websocket stream of live joint
// state for the dashboard.
package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/pibotics/go-humanoid/internal/log"
	"github.com/pibotics/go-humanoid/pkg/hub"
	"github.com/pibotics/go-humanoid/pkg/humanoid"
)

// stateInterval is how often joint state is sampled for the websocket
// stream while at least one client is connected.
const stateInterval = 200 * time.Millisecond

// Server is the robot's HTTP control surface.
type Server struct {
	app *fiber.App
	bot *humanoid.Robot

	stateHub *hub.Hub
	stop     chan struct{}
}

// New builds the server and its routes around the robot facade.
func New(bot *humanoid.Robot) *Server {
	s := &Server{
		bot:      bot,
		stateHub: hub.New("state"),
		stop:     make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-humanoid",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Post("/init", s.handleInit)
	api.Post("/shutdown", s.handleShutdown)
	api.Get("/state", s.handleState)
	api.Post("/servo", s.handleSetServo)
	api.Get("/servo/:channel", s.handleGetServo)
	api.Post("/servos", s.handleSetServos)
	api.Post("/movements", s.handleQueueMovement)
	api.Post("/movements/execute", s.handleExecuteQueue)
	api.Post("/stand", s.handleStand)
	api.Post("/walk", s.handleWalk)
	api.Post("/dance", s.handleDance)
	api.Get("/robot_info", s.handleRobotInfo)
	api.Get("/eyes", s.handleEyes)
	api.Get("/mpu6050", s.handleIMU)
	api.Get("/calibration", s.handleGetCalibration)
	api.Put("/calibration/:channel", s.handleSetCalibration)
	api.Post("/calibration/save", s.handleSaveCalibration)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	s.app = app
	return s
}

// Listen starts the state broadcaster and serves on addr. Blocks.
func (s *Server) Listen(addr string) error {
	go s.stateHub.Run()
	go s.broadcastState()
	log.Info("web server listening", "addr", addr)
	return s.app.Listen(addr)
}

// broadcastState samples joint state and fans it out to websocket
// clients. Sampling is skipped while nobody is connected.
func (s *Server) broadcastState() {
	ticker := time.NewTicker(stateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.stateHub.ClientCount() == 0 {
				continue
			}
			positions, err := s.bot.AllPositions()
			if err != nil {
				continue
			}
			s.stateHub.BroadcastJSON(stateMessage{
				State:     s.bot.State().String(),
				Positions: channelMap(positions),
			})
		}
	}
}

// Shutdown stops the broadcaster and the HTTP listener.
func (s *Server) Shutdown() error {
	close(s.stop)
	s.stateHub.Stop()
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleStateWS(c *websocket.Conn) {
	client := hub.NewClient(s.stateHub, c)
	client.Run()
}
