// Package calendar implements the calendar core: connecting provider
// calendars to user accounts, reconciling provider-native and canonical
// events into one feed, and propagating blocked placeholders across a
// user's calendars.
package calendar

import (
	"context"
	"time"

	"github.com/zenith-hq/zenith-calendar/internal/store"
)

// The service depends on capability interfaces rather than the concrete
// stores so the pieces each collaborator actually needs stay explicit.
// store.Store satisfies all of them.

type UserStore interface {
	ByID(ctx context.Context, id int64) (*store.User, error)
	ByUsername(ctx context.Context, usernameUnique string) (*store.User, error)
}

type CredentialStore interface {
	Upsert(ctx context.Context, userID int64, provider store.ProviderType, providerUserID, accessToken, refreshToken, idToken string, expiry time.Time) (*store.ExternalAuthenticator, error)
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken, idToken string, expiry time.Time) error
}

type CalendarStore interface {
	ByID(ctx context.Context, id int64) (*store.Calendar, error)
	ByIdentity(ctx context.Context, userID int64, provider store.ProviderType, email string, authenticatorID int64) (*store.Calendar, error)
	ByUniqueName(ctx context.Context, userID int64, nameUnique string) (*store.Calendar, error)
	ListByUser(ctx context.Context, userID int64) ([]store.Calendar, error)
	Siblings(ctx context.Context, userID, excludeID int64) ([]store.Calendar, error)
	SiblingsByUniqueName(ctx context.Context, userID int64, excludeNameUnique string) ([]store.Calendar, error)
	CountNameLike(ctx context.Context, userID int64, nameUnique string) (int64, error)
	NameTakenByOther(ctx context.Context, userID int64, nameUnique string, excludeID int64) (bool, error)
	Create(ctx context.Context, cal *store.Calendar) error
	Save(ctx context.Context, cal *store.Calendar) error
	SetDisabled(ctx context.Context, id int64, disabled bool) error
	SetBackground(ctx context.Context, id int64, url string) error
}

type EventStore interface {
	ByID(ctx context.Context, id int64) (*store.Event, error)
	Create(ctx context.Context, event *store.Event) error
	Save(ctx context.Context, event *store.Event) error
	SetMetadata(ctx context.Context, id int64, metadata store.EventMetadata) error
	AddAttendee(ctx context.Context, eventID int64, email string) error
	CreatedBy(ctx context.Context, userID int64) ([]store.Event, error)
	CreatedByInRange(ctx context.Context, userID int64, from, to time.Time) ([]store.Event, error)
	AttendedBy(ctx context.Context, userID int64) ([]store.Event, error)
}

type VisibilityStore interface {
	Upsert(ctx context.Context, userID, sourceID int64, showAs string) error
	DeleteForSource(ctx context.Context, userID, sourceID int64) error
}
