// Package web serves Dora's browser UI: the camera preview, the chat
// transcript and the Speak, Send and Clear controls.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/pkg/browser"

	"github.com/teslashibe/go-dora/pkg/assistant"
	"github.com/teslashibe/go-dora/pkg/camera"
	"github.com/teslashibe/go-dora/pkg/hub"
	"github.com/teslashibe/go-dora/pkg/session"
)

// DefaultAddr is the loopback address the UI binds to.
const DefaultAddr = "127.0.0.1:7860"

// Title is shown in the page header and the browser tab.
const Title = "Dora – Your Smart Personal AI Assistant"

//go:embed static
var staticFS embed.FS

// Event types pushed over the websockets.
const (
	EventTranscript = "transcript" // full transcript snapshot
	EventTurn       = "turn"       // one new turn
	EventStatus     = "status"
)

// Config configures the server.
type Config struct {
	Addr        string `yaml:"addr"`
	OpenBrowser bool   `yaml:"open_browser"`
	AccessLog   bool   `yaml:"access_log"`
}

// DefaultConfig binds to DefaultAddr and opens a browser tab.
func DefaultConfig() Config {
	return Config{Addr: DefaultAddr, OpenBrowser: true}
}

// Status is the snapshot served by /api/status and /ws/status.
type Status struct {
	Session  string        `json:"session"`
	State    string        `json:"state"`
	Speaking bool          `json:"speaking"`
	Turns    int           `json:"turns"`
	Camera   camera.Status `json:"camera"`
}

// Server is the UI web server.
type Server struct {
	cfg    Config
	app    *fiber.App
	loop   *assistant.Loop
	cam    *camera.Webcam
	logger *slog.Logger

	transcriptHub *hub.Hub
	statusHub     *hub.Hub
	cameraHub     *hub.Hub

	// openURL opens the UI in a browser.
	openURL func(url string) error
}

// NewServer creates the server. The loop supplies the session and turn
// handlers; cam backs the camera routes.
func NewServer(cfg Config, loop *assistant.Loop, cam *camera.Webcam, log *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "web")

	s := &Server{
		cfg:           cfg,
		loop:          loop,
		cam:           cam,
		logger:        log,
		transcriptHub: hub.New("transcript", log),
		statusHub:     hub.New("status", log),
		cameraHub:     hub.New("camera", log),
		openURL:       browser.OpenURL,
	}
	s.transcriptHub.OnConnect = s.transcriptSnapshot
	s.statusHub.OnConnect = s.statusSnapshot

	app := fiber.New(fiber.Config{
		AppName:               "Dora",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/transcript", s.handleTranscript)
	api.Delete("/transcript", s.handleClear)
	api.Post("/chat", s.handleChat)
	api.Post("/voice", s.handleVoice)
	api.Post("/camera/start", s.handleCameraStart)
	api.Post("/camera/stop", s.handleCameraStop)
	api.Get("/camera/frame", s.handleCameraFrame)
	api.Get("/camera/config", s.handleCameraConfig)
	api.Put("/camera/config", s.handleCameraConfigUpdate)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/transcript", websocket.New(s.serveHub(s.transcriptHub)))
	app.Get("/ws/status", websocket.New(s.serveHub(s.statusHub)))
	app.Get("/ws/camera", websocket.New(s.serveHub(s.cameraHub)))

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	app.Use("/", filesystem.New(filesystem.Config{
		Root:   http.FS(static),
		Index:  "index.html",
		MaxAge: 0,
	}))

	s.app = app
	return s
}

// App returns the fiber app.
func (s *Server) App() *fiber.App { return s.app }

// URL is the address the UI is reachable at.
func (s *Server) URL() string { return "http://" + s.cfg.Addr }

// Start binds cfg.Addr and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the hubs and the camera feed and serves on ln until ctx is
// done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.transcriptHub.Run(ctx)
	go s.statusHub.Run(ctx)
	go s.cameraHub.Run(ctx)
	go s.pumpCamera(ctx)

	url := "http://" + ln.Addr().String()
	s.logger.Info("web UI ready", "url", url)
	if s.cfg.OpenBrowser && s.openURL != nil {
		if err := s.openURL(url); err != nil {
			s.logger.Warn("could not open browser", "error", err)
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listener(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// PublishTurn pushes a new turn to transcript clients. Wire it to
// assistant.Loop.OnTurn.
func (s *Server) PublishTurn(t session.Turn) {
	if err := s.transcriptHub.BroadcastEvent(EventTurn, t); err != nil {
		s.logger.Warn("publish turn", "error", err)
	}
	s.PublishStatus()
}

// PublishState pushes a loop state change. Wire it to assistant.Loop.OnState.
func (s *Server) PublishState(from, to assistant.State) {
	s.PublishStatus()
}

// PublishStatus pushes the current status to status clients.
func (s *Server) PublishStatus() {
	if err := s.statusHub.BroadcastEvent(EventStatus, s.status()); err != nil {
		s.logger.Warn("publish status", "error", err)
	}
}

func (s *Server) status() Status {
	sess := s.loop.Session()
	return Status{
		Session:  sess.ID,
		State:    s.loop.State().String(),
		Speaking: sess.Speaking(),
		Turns:    sess.Len(),
		Camera:   s.cam.Status(),
	}
}

func (s *Server) transcriptSnapshot() []hub.Message {
	msg, err := hub.NewEvent(EventTranscript, s.turns())
	if err != nil {
		return nil
	}
	return []hub.Message{msg}
}

func (s *Server) statusSnapshot() []hub.Message {
	msg, err := hub.NewEvent(EventStatus, s.status())
	if err != nil {
		return nil
	}
	return []hub.Message{msg}
}

// turns never returns nil so the UI always receives a JSON array.
func (s *Server) turns() []session.Turn {
	t := s.loop.Session().Turns()
	if t == nil {
		t = []session.Turn{}
	}
	return t
}

// pumpCamera forwards webcam frames to camera clients while anyone watches.
func (s *Server) pumpCamera(ctx context.Context) {
	frames := make(chan []byte, 1)
	go s.cam.Stream(ctx, frames)

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-frames:
			if s.cameraHub.ClientCount() > 0 {
				s.cameraHub.BroadcastBinary(frame)
			}
		}
	}
}

func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		hub.NewClient(h, c).Run()
	}
}

// errorHandler renders errors as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
