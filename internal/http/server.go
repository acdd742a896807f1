package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"trafficlens/internal/selection"
	"trafficlens/internal/sessions"
)

// Context carries the request and the application dependencies into an Action.
type Context struct {
	*fiber.Ctx
	Logger   *slog.Logger
	Sessions *sessions.Store
}

// Action handles one request.
type Action func(*Context) error

// ServerConfig holds the dependencies shared by every Action.
type ServerConfig struct {
	AppName  string
	Logger   *slog.Logger
	Sessions *sessions.Store
}

// Server is a fiber app whose routes receive a Context.
type Server struct {
	App      *fiber.App
	logger   *slog.Logger
	sessions *sessions.Store
}

// NewServer creates a server with panic recovery and JSON error responses.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		logger:   cfg.Logger,
		sessions: cfg.Sessions,
	}

	s.App = fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.App.Use(recover.New())

	return s
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Sessions returns the session store.
func (s *Server) Sessions() *sessions.Store {
	return s.sessions
}

// Use adds middleware for every route.
func (s *Server) Use(handlers ...fiber.Handler) {
	for _, h := range handlers {
		s.App.Use(h)
	}
}

func (s *Server) Get(path string, action Action, middleware ...fiber.Handler) {
	s.App.Get(path, s.chain(action, middleware)...)
}

func (s *Server) Head(path string, action Action, middleware ...fiber.Handler) {
	s.App.Head(path, s.chain(action, middleware)...)
}

func (s *Server) Post(path string, action Action, middleware ...fiber.Handler) {
	s.App.Post(path, s.chain(action, middleware)...)
}

func (s *Server) Put(path string, action Action, middleware ...fiber.Handler) {
	s.App.Put(path, s.chain(action, middleware)...)
}

func (s *Server) Delete(path string, action Action, middleware ...fiber.Handler) {
	s.App.Delete(path, s.chain(action, middleware)...)
}

func (s *Server) Options(path string, action Action, middleware ...fiber.Handler) {
	s.App.Options(path, s.chain(action, middleware)...)
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.App.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.App.ShutdownWithContext(ctx)
}

func (s *Server) chain(action Action, middleware []fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(middleware)+1)
	handlers = append(handlers, middleware...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return action(&Context{Ctx: c, Logger: s.logger, Sessions: s.sessions})
	})
	return handlers
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, sessions.ErrSessionNotFound), errors.Is(err, selection.ErrUnknownFacet):
		return fiber.StatusNotFound
	case errors.Is(err, selection.ErrEmptySelection), errors.Is(err, selection.ErrUnknownCategoryValue):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := StatusFor(err)
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		s.logger.Error("Request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err))
		msg = "internal server error"
	}
	return c.Status(code).JSON(ErrorResponse{Error: msg})
}
