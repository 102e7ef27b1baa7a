// Package gcal wraps the Google Calendar API behind a small client
// interface: list/get/insert/update events and authorization-code exchange.
// Provider failures are normalized into the zerrors taxonomy.
package gcal

import (
	"context"
	"time"
)

// Credential is the token material the adapter signs requests with. It is a
// projection of a stored ExternalAuthenticator row.
type Credential struct {
	ID           int64
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// ProviderEvent is the explicit partial shape of an event returned by the
// provider API. Optional fields are empty strings when the provider omits
// them. All-day events carry StartDate/EndDate instead of the date-times.
type ProviderEvent struct {
	ID            string
	Summary       string
	Description   string
	StartDateTime string // RFC 3339, empty for all-day events
	EndDateTime   string
	StartDate     string // YYYY-MM-DD, set for all-day events
	EndDate       string
	Created       string
	Updated       string

	CreatorEmail       string
	CreatorDisplayName string
	CreatorID          string

	HTMLLink string

	// ZenithEventID and ZenithCalendarID are the private extended
	// properties marking the event as a mirror of a canonical event.
	// Empty for native provider events.
	ZenithEventID    string
	ZenithCalendarID string
}

// Mirrored reports whether the event carries the canonical-event tag.
func (e ProviderEvent) Mirrored() bool {
	return e.ZenithEventID != ""
}

// EventPayload is the body of an insert or update call. When TagEventID is
// set the mirror tag is written into the event's private extended
// properties.
type EventPayload struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string

	TagEventID    int64
	TagCalendarID int64
}

// TokenMaterial is the result of an authorization-code exchange.
type TokenMaterial struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// Profile is the provider-side identity attached to an exchanged code.
type Profile struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	Name       string
	Picture    string
}

// Client is the provider calendar API surface the rest of the service
// depends on.
type Client interface {
	Exchange(ctx context.Context, code string) (*TokenMaterial, *Profile, error)
	ListEvents(ctx context.Context, cred Credential, timeMin, timeMax time.Time) ([]ProviderEvent, error)
	GetEvent(ctx context.Context, cred Credential, eventID string) (*ProviderEvent, error)
	InsertEvent(ctx context.Context, cred Credential, payload EventPayload) (*ProviderEvent, error)
	UpdateEvent(ctx context.Context, cred Credential, eventID string, payload EventPayload) (*ProviderEvent, error)
}
