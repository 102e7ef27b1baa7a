// Package store holds the persisted model and the typed stores over a
// single gorm connection. Correctness under concurrent requests relies on
// the database's atomic update-by-id semantics; conflicting updates to the
// same row are last-writer-wins.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProviderType identifies the external calendar provider a credential or
// calendar belongs to.
type ProviderType string

const (
	ProviderGoogle    ProviderType = "google"
	ProviderMicrosoft ProviderType = "microsoft"
)

// UniqueName normalizes a human name into the collision-free lookup key
// used for booking links: lowercased, all whitespace stripped.
func UniqueName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

type User struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Email          string `gorm:"uniqueIndex;not null"`
	Username       string
	UsernameUnique string `gorm:"uniqueIndex"`
	FirstName      string
	LastName       string
	Name           string
	AvatarURL      string

	Password string `json:"-"`
	IsActive bool

	ConfirmationToken       string     `json:"-"`
	ConfirmationTokenSentAt *time.Time `json:"-"`
	RecoveryToken           string     `json:"-"`
	RecoverySentAt          *time.Time `json:"-"`
}

// PublicUser is the caller-visible projection of a User, with credential
// and token fields omitted.
type PublicUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Name:      u.Name,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

// ExternalAuthenticator is the OAuth token triple for one
// (user, provider, provider-subject) identity. The identity triple is the
// upsert key; reconnecting refreshes tokens in place, never duplicates.
type ExternalAuthenticator struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID         int64        `gorm:"uniqueIndex:idx_authenticator_identity;not null"`
	ProviderType   ProviderType `gorm:"uniqueIndex:idx_authenticator_identity;not null"`
	ProviderUserID string       `gorm:"uniqueIndex:idx_authenticator_identity;not null"`

	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	IDToken      string `json:"-"`
	TokenExpiry  time.Time
}

// Calendar links a user to one connected provider account. Disabled
// calendars are excluded from provider sync but retained for history.
type Calendar struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID          int64 `gorm:"not null;uniqueIndex:idx_calendar_name_user"`
	AuthenticatorID int64
	Authenticator   *ExternalAuthenticator `gorm:"foreignKey:AuthenticatorID"`

	Email        string
	ProviderType ProviderType
	Name         string
	// CalendarNameUnique is unique per owning user, not globally.
	CalendarNameUnique string `gorm:"uniqueIndex:idx_calendar_name_user"`

	Colour               string
	ProfilePictureURL    string
	BackgroundPictureURL string
	LogoURL              string

	AvailableStartTime time.Time
	AvailableEndTime   time.Time
	// AvailableWeekDays is a 7-bit mask, bit0=Monday .. bit6=Sunday.
	AvailableWeekDays int

	IsDisabled bool

	Visibility *CalendarVisibility `gorm:"foreignKey:SourceID"`
}

// CalendarVisibility is the per-calendar policy controlling the label shown
// on placeholder events propagated from that calendar to its siblings.
// One row per source calendar.
type CalendarVisibility struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UserID   int64
	SourceID int64 `gorm:"uniqueIndex"`
	ShowAs   string
}

// EventMetadata is the JSON metadata column of an Event. LinkedGGEvents
// maps a sibling calendar id to the provider-side placeholder event id
// created on that calendar.
type EventMetadata struct {
	LinkedGGEvents map[int64]string `json:"linkedGGEvents,omitempty"`
}

func (m EventMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event metadata: %w", err)
	}
	return string(b), nil
}

func (m *EventMetadata) Scan(value any) error {
	if value == nil {
		*m = EventMetadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported event metadata column type %T", value)
	}
	if len(data) == 0 {
		*m = EventMetadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Event is a canonical event whose system of record is this service.
type Event struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	CalendarID  int64 `gorm:"index;not null"`
	CreatedByID int64 `gorm:"index;not null"`

	From    time.Time
	To      time.Time
	Title   string
	Details string

	EventLink string

	Metadata EventMetadata `gorm:"type:jsonb"`

	Attendees []EventAttendee `gorm:"foreignKey:EventID"`
}

type EventAttendee struct {
	ID        int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	EventID int64  `gorm:"index;not null"`
	UserID  *int64 `gorm:"index"`
	Email   string
}
