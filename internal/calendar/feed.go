package calendar

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zenith-hq/zenith-calendar/internal/gcal"
	"github.com/zenith-hq/zenith-calendar/internal/store"
	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

// Provider tags a feed entry with the system the entry originates from.
type Provider string

const (
	ProviderZenith    Provider = "ZENITH"
	ProviderGoogle    Provider = "GOOGLE"
	ProviderMicrosoft Provider = "MICROSOFT"
)

// listWindow bounds the unbounded listing path to a practical range around
// now.
const listWindow = 30 * 24 * time.Hour

// FeedEntry is the unified feed shape covering both provider-native and
// canonical events. From and To are RFC 3339 timestamps, or a bare
// YYYY-MM-DD date when WholeDayBlock is set.
type FeedEntry struct {
	ID       string   `json:"id"`
	Provider Provider `json:"provider"`

	// GEventID cross-references the provider side: for a native entry it is
	// the provider event id itself, for a canonical entry it is the resolved
	// mirrored event id, empty when no mirror was found in the window.
	GEventID string `json:"gEventId"`

	From    string `json:"from"`
	To      string `json:"to"`
	Title   string `json:"title"`
	Details string `json:"details"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`

	CreatorEmail       string `json:"creatorEmail,omitempty"`
	CreatorDisplayName string `json:"creatorDisplayName,omitempty"`
	CreatedBy          string `json:"createdById"`

	EventLink     string `json:"eventLink"`
	WholeDayBlock bool   `json:"isBlockWholeDayFromGG,omitempty"`

	Calendar  *store.Calendar       `json:"calendar"`
	Attendees []store.EventAttendee `json:"attendees,omitempty"`
}

// DateFeed is the public booking-page response: the calendar owner's public
// profile plus the merged feed for the requested range.
type DateFeed struct {
	UserInfo store.PublicUser `json:"userInfo"`
	Events   []FeedEntry      `json:"events"`
}

// ListEvents merges the calendar's provider events around now with every
// canonical event the user created or attends. Provider read failures of any
// kind degrade the feed to canonical-only data; a disabled calendar skips
// the provider entirely.
func (s *Service) ListEvents(ctx context.Context, userID, calendarID int64) ([]FeedEntry, error) {
	cal, err := s.calendars.ByID(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if cal.UserID != userID {
		return nil, zerrors.Unauthorizedf("calendar #%d", calendarID)
	}

	var native []FeedEntry
	var mirrors map[string]string
	if !cal.IsDisabled {
		cred, err := credentialOf(cal)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		fallback := now.Format(time.RFC3339)
		events, err := s.provider.ListEvents(ctx, cred, now.Add(-listWindow), now.Add(listWindow))
		if err != nil {
			s.logger.Error("failed to list provider events",
				zap.Int64("calendar", cal.ID),
				zap.Error(err))
		} else {
			native, mirrors = partition(events, cal, fallback, false)
		}
	}

	created, err := s.events.CreatedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	attended, err := s.events.AttendedBy(ctx, userID)
	if err != nil {
		return nil, err
	}

	return append(native, canonicalFeed(created, attended, mirrors, cal)...), nil
}

// EventsByDate is the public booking-page feed for one calendar of one
// user, keyed by unique names. The primary provider fetch aborts the call
// on an expired credential; any other provider failure degrades to
// canonical-only data. Sibling calendars are fetched concurrently and each
// failure is isolated to its own calendar.
func (s *Service) EventsByDate(ctx context.Context, calendarNameUnique, usernameUnique string, rangeStart, rangeEnd time.Time) (*DateFeed, error) {
	user, err := s.users.ByUsername(ctx, usernameUnique)
	if err != nil {
		return nil, err
	}
	cal, err := s.calendars.ByUniqueName(ctx, user.ID, calendarNameUnique)
	if err != nil {
		return nil, err
	}
	siblings, err := s.calendars.SiblingsByUniqueName(ctx, user.ID, calendarNameUnique)
	if err != nil {
		return nil, err
	}

	var native, fromSiblings []FeedEntry
	var mirrors map[string]string
	if !cal.IsDisabled {
		cred, err := credentialOf(cal)
		if err != nil {
			return nil, err
		}
		events, err := s.provider.ListEvents(ctx, cred, rangeStart.UTC(), rangeEnd.UTC())
		switch {
		case errors.Is(err, zerrors.ErrCredentialExpired):
			// A canonical-only result would misrepresent the owner's
			// availability; surface the reconnect requirement instead.
			return nil, err
		case err != nil:
			s.logger.Error("failed to list provider events",
				zap.Int64("calendar", cal.ID),
				zap.Error(err))
		default:
			native, mirrors = partition(events, cal, "", true)
			fromSiblings = s.siblingEvents(ctx, siblings, cal, rangeStart, rangeEnd)
		}
	}

	created, err := s.events.CreatedByInRange(ctx, cal.UserID, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}
	attended, err := s.events.AttendedBy(ctx, cal.UserID)
	if err != nil {
		return nil, err
	}

	feed := append(native, canonicalFeed(created, attended, mirrors, cal)...)
	feed = append(feed, fromSiblings...)
	return &DateFeed{UserInfo: user.Public(), Events: feed}, nil
}

// siblingEvents fetches the native provider events of the user's other
// calendars for the range. Fetches run concurrently; a failing sibling is
// logged and contributes nothing. Results keep sibling order.
func (s *Service) siblingEvents(ctx context.Context, siblings []store.Calendar, primary *store.Calendar, rangeStart, rangeEnd time.Time) []FeedEntry {
	fallback := time.Now().UTC().Format(time.RFC3339)
	results := make([][]FeedEntry, len(siblings))

	var wg sync.WaitGroup
	for i := range siblings {
		sibling := &siblings[i]
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cred, err := credentialOf(sibling)
			if err != nil {
				s.logger.Error("sibling calendar has no credential",
					zap.Int64("calendar", sibling.ID),
					zap.Error(err))
				return
			}
			events, err := s.provider.ListEvents(ctx, cred, rangeStart.UTC(), rangeEnd.UTC())
			if err != nil {
				s.logger.Error("failed to list provider events for sibling calendar",
					zap.Int64("calendar", sibling.ID),
					zap.Error(err))
				return
			}
			entries := make([]FeedEntry, 0, len(events))
			for _, event := range events {
				if event.Mirrored() {
					continue
				}
				entries = append(entries, nativeEntry(event, primary, fallback, false))
			}
			results[i] = entries
		}(i)
	}
	wg.Wait()

	var merged []FeedEntry
	for _, entries := range results {
		merged = append(merged, entries...)
	}
	return merged
}

// partition splits a provider fetch into native feed entries and the
// tag-to-provider-id map used to resolve canonical cross-references.
// Partitioning is independent of return order; on duplicate tags the first
// occurrence wins.
func partition(events []gcal.ProviderEvent, cal *store.Calendar, fallback string, markWholeDay bool) ([]FeedEntry, map[string]string) {
	native := make([]FeedEntry, 0, len(events))
	mirrors := make(map[string]string)
	for _, event := range events {
		if event.Mirrored() {
			if _, ok := mirrors[event.ZenithEventID]; !ok {
				mirrors[event.ZenithEventID] = event.ID
			}
			continue
		}
		native = append(native, nativeEntry(event, cal, fallback, markWholeDay))
	}
	return native, mirrors
}

func nativeEntry(event gcal.ProviderEvent, cal *store.Calendar, fallback string, markWholeDay bool) FeedEntry {
	entry := FeedEntry{
		ID:                 event.ID,
		GEventID:           event.ID,
		Provider:           ProviderGoogle,
		From:               event.StartDateTime,
		To:                 event.EndDateTime,
		Title:              event.Summary,
		Details:            event.Description,
		CreatedAt:          event.Created,
		UpdatedAt:          event.Updated,
		CreatorEmail:       event.CreatorEmail,
		CreatorDisplayName: event.CreatorDisplayName,
		CreatedBy:          event.CreatorID,
		EventLink:          event.HTMLLink,
		Calendar:           cal,
	}
	// A provider item with only a date marker is an all-day block; surface
	// it pinned to that date instead of dropping it.
	if markWholeDay && event.StartDateTime == "" && event.EndDateTime == "" && event.StartDate != "" {
		entry.From = event.StartDate
		entry.To = event.StartDate
		entry.WholeDayBlock = true
		return entry
	}
	if entry.From == "" {
		entry.From = fallback
	}
	if entry.To == "" {
		entry.To = fallback
	}
	return entry
}

// canonicalFeed unions the created and attended result sets as returned,
// duplicates included, and resolves each event's mirrored provider id by
// tag equality.
func canonicalFeed(created, attended []store.Event, mirrors map[string]string, cal *store.Calendar) []FeedEntry {
	entries := make([]FeedEntry, 0, len(created)+len(attended))
	for _, event := range created {
		entries = append(entries, canonicalEntry(event, mirrors, cal))
	}
	for _, event := range attended {
		entries = append(entries, canonicalEntry(event, mirrors, cal))
	}
	return entries
}

func canonicalEntry(event store.Event, mirrors map[string]string, cal *store.Calendar) FeedEntry {
	return FeedEntry{
		ID:        strconv.FormatInt(event.ID, 10),
		GEventID:  mirrors[strconv.FormatInt(event.ID, 10)],
		Provider:  ProviderZenith,
		From:      event.From.UTC().Format(time.RFC3339),
		To:        event.To.UTC().Format(time.RFC3339),
		Title:     event.Title,
		Details:   event.Details,
		CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: event.UpdatedAt.UTC().Format(time.RFC3339),
		CreatedBy: strconv.FormatInt(event.CreatedByID, 10),
		EventLink: event.EventLink,
		Calendar:  cal,
		Attendees: event.Attendees,
	}
}
