package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

type Config struct {
	Addr               string `envconfig:"HTTP_ADDR" default:":8080"`
	CorsAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	BodyLimitBytes     int    `envconfig:"HTTP_BODY_LIMIT" default:"65536"`
}

// MessageProcessor runs one user utterance through the orchestrator.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, userID, utterance, sessionID string) model.Result
}

type Server struct {
	app       *fiber.App
	cfg       Config
	processor MessageProcessor
	records   model.RecordRepository
}

func New(cfg Config, processor MessageProcessor, records model.RecordRepository) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.BodyLimitBytes,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CorsAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	s := &Server{app: app, cfg: cfg, processor: processor, records: records}
	s.registerRoutes()
	return s
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	logx.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/v1")
	v1.Post("/messages", s.handleMessage)
	v1.Get("/users/:user_id/records", s.handleListRecords)
}

type messageRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type messageResponse struct {
	model.Result
	Error string `json:"error,omitempty"`
}

func (s *Server) handleMessage(c *fiber.Ctx) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	res := s.processor.ProcessMessage(c.UserContext(), req.UserID, req.Message, req.SessionID)
	out := messageResponse{Result: res}
	status := http.StatusOK
	if res.Err != nil {
		out.Error = publicMessage(res.Err)
		switch {
		case res.Retryable:
			status = http.StatusServiceUnavailable
		case errx.StatusOf(res.Err) == http.StatusBadRequest:
			status = http.StatusBadRequest
		}
	}
	return c.Status(status).JSON(out)
}

func (s *Server) handleListRecords(c *fiber.Ctx) error {
	if s.records == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "records are not available"})
	}
	kind := model.FlowType(strings.ToLower(c.Query("kind")))
	if kind != "" && !kind.Committable() {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "kind must be habit, goal or reminder"})
	}

	records, err := s.records.ListRecords(c.UserContext(), c.Params("user_id"), kind)
	if err != nil {
		logx.Error().Err(err).Str("user_id", c.Params("user_id")).Msg("Failed to list records")
		return c.Status(errx.StatusOf(err)).JSON(fiber.Map{"error": publicMessage(err)})
	}
	if records == nil {
		records = []model.Record{}
	}
	return c.JSON(fiber.Map{"records": records})
}

// publicMessage never exposes raw error text.
func publicMessage(err error) string {
	var ae *errx.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return errx.SystemErrorMessage
}
