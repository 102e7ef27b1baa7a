package httpapi

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/zenith-hq/zenith-calendar/internal/calendar"
	"github.com/zenith-hq/zenith-calendar/internal/ics"
)

func (s *Server) handleListCalendars(c *fiber.Ctx) error {
	calendars, err := s.calendar.FindAll(c.Context(), userID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(calendars)
}

func (s *Server) handleConnect(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "authorization code is required"})
	}
	cal, err := s.calendar.Connect(c.Context(), userID(c), req.Code)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(cal)
}

func (s *Server) handleReconnect(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid calendar id"})
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "authorization code is required"})
	}
	cal, err := s.calendar.Reconnect(c.Context(), userID(c), int64(id), req.Code)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(cal)
}

func (s *Server) handleDisconnect(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid calendar id"})
	}
	if err := s.calendar.Disconnect(c.Context(), userID(c), int64(id)); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUpdateCalendar(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid calendar id"})
	}
	var patch calendar.UpdatePatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	cal, err := s.calendar.Update(c.Context(), userID(c), int64(id), patch)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(cal)
}

func (s *Server) handleUploadBackground(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid calendar id"})
	}
	file, err := c.FormFile("background")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "background file is required"})
	}
	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "background file is unreadable"})
	}
	defer src.Close()

	name := fmt.Sprintf("calendar-backgrounds/%d-%s-%s", id, uuid.NewString(), file.Filename)
	url, err := s.uploader.Store(c.Context(), name, file.Header.Get(fiber.HeaderContentType), src)
	if err != nil {
		return s.respondError(c, err)
	}
	cal, err := s.calendar.UpdateBackground(c.Context(), int64(id), url)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(cal)
}

func (s *Server) handleListEvents(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid calendar id"})
	}
	feed, err := s.calendar.ListEvents(c.Context(), userID(c), int64(id))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(feed)
}

type updateEventRequest struct {
	GEventID string            `json:"gEventId"`
	From     time.Time         `json:"from"`
	To       time.Time         `json:"to"`
	Title    string            `json:"title"`
	Details  string            `json:"details"`
	Provider calendar.Provider `json:"provider"`
}

func (s *Server) handleUpdateEvent(c *fiber.Ctx) error {
	calendarID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid calendar id"})
	}
	eventID, err := c.ParamsInt("eventId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid event id"})
	}
	var req updateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	event, err := s.calendar.UpdateEvent(c.Context(), userID(c), int64(calendarID), int64(eventID),
		req.GEventID, req.From, req.To, req.Title, req.Details, req.Provider)
	if err != nil {
		return s.respondError(c, err)
	}
	if event == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(event)
}

type createEventRequest struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Title    string    `json:"title"`
	Attendee string    `json:"attendee"`
}

func (s *Server) handleCreateEvent(c *fiber.Ctx) error {
	var req createEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	event, err := s.calendar.CreateEvent(c.Context(),
		c.Params("calendar"), c.Params("username"),
		req.From, req.To, req.Title, req.Attendee)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// parseRange reads the start/end query bounds, defaulting to the next seven
// days.
func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start, end := now, now.Add(7*24*time.Hour)
	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, fmt.Errorf("invalid start %q", raw)
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, fmt.Errorf("invalid end %q", raw)
		}
		end = parsed
	}
	return start, end, nil
}

func (s *Server) handleEventsByDate(c *fiber.Ctx) error {
	start, end, err := parseRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	feed, err := s.calendar.EventsByDate(c.Context(), c.Params("calendar"), c.Params("username"), start, end)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(feed)
}

func (s *Server) handleEventsICS(c *fiber.Ctx) error {
	start, end, err := parseRange(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	feed, err := s.calendar.EventsByDate(c.Context(), c.Params("calendar"), c.Params("username"), start, end)
	if err != nil {
		return s.respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	return ics.Render(c.Response().BodyWriter(), feed.Events)
}
