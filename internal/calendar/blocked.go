package calendar

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zenith-hq/zenith-calendar/internal/gcal"
	"github.com/zenith-hq/zenith-calendar/internal/store"
	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

// defaultShowAs labels placeholders when the visibility policy has no
// explicit label.
const defaultShowAs = "Blocked"

// propagateCreate fans blocked placeholders out to the user's other enabled
// calendars. The placeholder carries the visibility label, the source
// event's time range and the canonical tag, never the source title or
// details. Sibling inserts run concurrently; an expired credential aborts
// the whole fan-out, any other failure skips that sibling. The
// sibling-to-placeholder linkage is batch-written onto the event's metadata
// after all inserts finish.
func (s *Service) propagateCreate(ctx context.Context, source *store.Calendar, event *store.Event, payload gcal.EventPayload) error {
	siblings, err := s.calendars.Siblings(ctx, source.UserID, source.ID)
	if err != nil {
		return err
	}
	if len(siblings) == 0 {
		return nil
	}
	s.logger.Info("propagating blocked event",
		zap.Int64("calendar", source.ID),
		zap.Int64("event", event.ID),
		zap.Int("siblings", len(siblings)))

	placeholder := payload
	placeholder.Summary = showAsLabel(source)
	placeholder.AttendeeEmail = ""

	linked := make(map[int64]string, len(siblings))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := range siblings {
		sibling := siblings[i]
		g.Go(func() error {
			cred, err := credentialOf(&sibling)
			if err != nil {
				s.logger.Error("sibling calendar has no credential",
					zap.Int64("calendar", sibling.ID),
					zap.Error(err))
				return nil
			}
			inserted, err := s.provider.InsertEvent(gctx, cred, placeholder)
			if err != nil {
				if errors.Is(err, zerrors.ErrCredentialExpired) {
					return err
				}
				s.logger.Error("failed to insert blocked placeholder",
					zap.Int64("calendar", sibling.ID),
					zap.String("email", sibling.Email),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			linked[sibling.ID] = inserted.ID
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return s.events.SetMetadata(ctx, event.ID, store.EventMetadata{LinkedGGEvents: linked})
}

// updateBlocked refreshes the placeholders previously created for the event.
// Only siblings with a linkage recorded in the event's metadata are touched;
// a sibling connected after the fan-out has no placeholder to update.
func (s *Service) updateBlocked(ctx context.Context, source *store.Calendar, event *store.Event, payload gcal.EventPayload) error {
	siblings, err := s.calendars.Siblings(ctx, source.UserID, source.ID)
	if err != nil {
		return err
	}

	placeholder := payload
	placeholder.Summary = showAsLabel(source)
	placeholder.AttendeeEmail = ""

	g, gctx := errgroup.WithContext(ctx)
	for i := range siblings {
		sibling := siblings[i]
		linkedID, ok := event.Metadata.LinkedGGEvents[sibling.ID]
		if !ok || linkedID == "" {
			continue
		}
		g.Go(func() error {
			cred, err := credentialOf(&sibling)
			if err != nil {
				s.logger.Error("sibling calendar has no credential",
					zap.Int64("calendar", sibling.ID),
					zap.Error(err))
				return nil
			}
			if _, err := s.provider.UpdateEvent(gctx, cred, linkedID, placeholder); err != nil {
				if errors.Is(err, zerrors.ErrCredentialExpired) {
					return err
				}
				s.logger.Error("failed to update blocked placeholder",
					zap.Int64("calendar", sibling.ID),
					zap.String("email", sibling.Email),
					zap.Error(err))
				return nil
			}
			return nil
		})
	}
	return g.Wait()
}

func showAsLabel(source *store.Calendar) string {
	if source.Visibility != nil && source.Visibility.ShowAs != "" {
		return source.Visibility.ShowAs
	}
	return defaultShowAs
}
