package calendar

import (
	"context"
	"time"

	"github.com/zenith-hq/zenith-calendar/internal/gcal"
	"github.com/zenith-hq/zenith-calendar/internal/store"
	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

// CreateEvent books a canonical event on the calendar identified by the
// public (calendar, username) unique-name pair. The event is persisted
// first; if the calendar is enabled it is then mirrored to the provider's
// primary calendar tagged with the canonical ids, and if the calendar
// carries a visibility policy blocked placeholders fan out to the user's
// other enabled calendars. Mirror failures surface to the caller because
// the canonical write has already committed.
func (s *Service) CreateEvent(ctx context.Context, calendarNameUnique, usernameUnique string, from, to time.Time, title, attendee string) (*store.Event, error) {
	if !from.Before(to) {
		return nil, zerrors.Conflictf("event range %s to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	user, err := s.users.ByUsername(ctx, usernameUnique)
	if err != nil {
		return nil, err
	}
	cal, err := s.calendars.ByUniqueName(ctx, user.ID, calendarNameUnique)
	if err != nil {
		return nil, err
	}

	event := &store.Event{
		CalendarID:  cal.ID,
		CreatedByID: cal.UserID,
		From:        from,
		To:          to,
		Title:       title,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	if attendee != "" {
		if err := s.events.AddAttendee(ctx, event.ID, attendee); err != nil {
			return nil, err
		}
	}

	if cal.IsDisabled {
		return event, nil
	}

	cred, err := credentialOf(cal)
	if err != nil {
		return nil, err
	}
	payload := gcal.EventPayload{
		Summary:       title,
		Start:         from,
		End:           to,
		AttendeeEmail: attendee,
		TagEventID:    event.ID,
		TagCalendarID: cal.ID,
	}
	if _, err := s.provider.InsertEvent(ctx, cred, payload); err != nil {
		return nil, err
	}

	if cal.Visibility != nil {
		if err := s.propagateCreate(ctx, cal, event, payload); err != nil {
			return nil, err
		}
	}
	return event, nil
}

// UpdateEvent edits an event in the unified feed. A provider-native entry is
// updated in place on the provider and nothing canonical changes; a
// canonical entry is rewritten in the store, its mirror updated through the
// tag link, and its blocked placeholders refreshed on the linked siblings.
// The updated canonical event is returned, nil for the provider-native path.
func (s *Service) UpdateEvent(ctx context.Context, userID, calendarID, eventID int64, gEventID string, from, to time.Time, title, details string, provider Provider) (*store.Event, error) {
	cal, err := s.calendars.ByID(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if cal.UserID != userID {
		return nil, zerrors.Unauthorizedf("calendar #%d", calendarID)
	}

	var cred gcal.Credential
	var mirror *gcal.ProviderEvent
	if !cal.IsDisabled {
		cred, err = credentialOf(cal)
		if err != nil {
			return nil, err
		}
		mirror, err = s.provider.GetEvent(ctx, cred, gEventID)
		if err != nil {
			return nil, err
		}
	}

	if provider == ProviderGoogle {
		if cal.IsDisabled {
			return nil, nil
		}
		payload := gcal.EventPayload{
			Summary:     firstNonEmpty(title, mirror.Summary),
			Description: firstNonEmpty(details, mirror.Description),
			Start:       from,
			End:         to,
		}
		if _, err := s.provider.UpdateEvent(ctx, cred, gEventID, payload); err != nil {
			return nil, err
		}
		return nil, nil
	}

	event, err := s.events.ByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	event.From = from
	event.To = to
	event.Title = title
	event.Details = details
	if err := s.events.Save(ctx, event); err != nil {
		return nil, err
	}

	if cal.IsDisabled {
		return event, nil
	}

	// The mirror keeps its provider-side summary and description; only the
	// time range follows the canonical edit.
	payload := gcal.EventPayload{
		Summary:       mirror.Summary,
		Description:   mirror.Description,
		Start:         from,
		End:           to,
		TagEventID:    event.ID,
		TagCalendarID: cal.ID,
	}
	if _, err := s.provider.UpdateEvent(ctx, cred, gEventID, payload); err != nil {
		return nil, err
	}
	if err := s.updateBlocked(ctx, cal, event, payload); err != nil {
		return nil, err
	}
	return event, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
