// Package httpapi exposes the auth and calendar services over HTTP. The
// handlers are thin: parse, delegate, map taxonomy errors to status codes.
package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/zenith-hq/zenith-calendar/internal/auth"
	"github.com/zenith-hq/zenith-calendar/internal/calendar"
	"github.com/zenith-hq/zenith-calendar/internal/upload"
	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

type Server struct {
	app      *fiber.App
	auth     *auth.Service
	tokens   *auth.TokenService
	calendar *calendar.Service
	uploader upload.Uploader
	logger   *zap.Logger
}

func NewServer(authService *auth.Service, tokens *auth.TokenService, calendarService *calendar.Service, uploader upload.Uploader, logger *zap.Logger) *Server {
	s := &Server{
		app:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		auth:     authService,
		tokens:   tokens,
		calendar: calendarService,
		uploader: uploader,
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	authGroup := s.app.Group("/auth")
	authGroup.Post("/signup", s.handleSignup)
	authGroup.Post("/login", s.handleLogin)
	authGroup.Get("/verify", s.handleVerify)
	authGroup.Post("/forgot-password", s.handleForgotPassword)
	authGroup.Post("/reset-password", s.handleResetPassword)

	calendars := s.app.Group("/calendars", s.requireAuth)
	calendars.Get("/", s.handleListCalendars)
	calendars.Post("/connect", s.handleConnect)
	calendars.Post("/:id/reconnect", s.handleReconnect)
	calendars.Post("/:id/disconnect", s.handleDisconnect)
	calendars.Put("/:id", s.handleUpdateCalendar)
	calendars.Post("/:id/background", s.handleUploadBackground)
	calendars.Get("/:id/events", s.handleListEvents)
	calendars.Put("/:id/events/:eventId", s.handleUpdateEvent)

	// Public booking-page routes keyed by unique names.
	s.app.Get("/:username/:calendar/events-by-date", s.handleEventsByDate)
	s.app.Get("/:username/:calendar/events.ics", s.handleEventsICS)
	s.app.Post("/:username/:calendar/events", s.handleCreateEvent)
}

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// requireAuth verifies the bearer token and stashes the user id for the
// handlers.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return s.respondError(c, zerrors.Unauthorizedf("missing bearer token"))
	}
	claims, err := s.tokens.Verify(header[len(prefix):])
	if err != nil {
		return s.respondError(c, err)
	}
	c.Locals("userID", claims.UserID)
	return c.Next()
}

func userID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("userID").(int64)
	return id
}

func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status := zerrors.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"message": err.Error()})
}
