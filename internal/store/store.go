package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

// Store bundles the typed stores over one gorm connection.
type Store struct {
	db *gorm.DB

	Users        *Users
	Credentials  *Credentials
	Calendars    *Calendars
	Events       *Events
	Visibilities *Visibilities
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Users:        &Users{db: db},
		Credentials:  &Credentials{db: db},
		Calendars:    &Calendars{db: db},
		Events:       &Events{db: db},
		Visibilities: &Visibilities{db: db},
	}
}

// AutoMigrate creates or updates the schema for all models.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&User{},
		&ExternalAuthenticator{},
		&Calendar{},
		&CalendarVisibility{},
		&Event{},
		&EventAttendee{},
	)
}

func translate(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zerrors.NotFoundf(format, args...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Users provides lookups and writes for user records.
type Users struct {
	db *gorm.DB
}

func (s *Users) ByID(ctx context.Context, id int64) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "user #%d", id)
	}
	return &user, nil
}

func (s *Users) ByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, "user %q", email)
	}
	return &user, nil
}

func (s *Users) ByUsername(ctx context.Context, usernameUnique string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("username_unique = ?", usernameUnique).First(&user).Error; err != nil {
		return nil, translate(err, "user %q", usernameUnique)
	}
	return &user, nil
}

// CountUsernameLike counts users whose unique username contains the given
// normalized fragment. Used for collision-free display names at signup.
func (s *Users) CountUsernameLike(ctx context.Context, usernameUnique string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("username_unique LIKE ?", "%"+usernameUnique+"%").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count usernames: %w", err)
	}
	return count, nil
}

func (s *Users) ByConfirmationToken(ctx context.Context, token string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("confirmation_token = ?", token).First(&user).Error; err != nil {
		return nil, translate(err, "confirmation token")
	}
	return &user, nil
}

func (s *Users) ByRecoveryToken(ctx context.Context, token string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("recovery_token = ?", token).First(&user).Error; err != nil {
		return nil, translate(err, "recovery token")
	}
	return &user, nil
}

func (s *Users) Create(ctx context.Context, user *User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Users) Save(ctx context.Context, user *User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user #%d: %w", user.ID, err)
	}
	return nil
}

// Credentials is the credential vault: per-user, per-provider OAuth token
// triples with upsert-by-identity semantics.
type Credentials struct {
	db *gorm.DB
}

// Upsert stores or refreshes the token triple keyed by
// (user, provider, provider-subject). Reconnects update the existing row.
func (s *Credentials) Upsert(ctx context.Context, userID int64, provider ProviderType, providerUserID, accessToken, refreshToken, idToken string, expiry time.Time) (*ExternalAuthenticator, error) {
	cred := ExternalAuthenticator{
		UserID:         userID,
		ProviderType:   provider,
		ProviderUserID: providerUserID,
	}
	assign := ExternalAuthenticator{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IDToken:      idToken,
		TokenExpiry:  expiry,
	}
	err := s.db.WithContext(ctx).
		Where(ExternalAuthenticator{UserID: userID, ProviderType: provider, ProviderUserID: providerUserID}).
		Assign(assign).
		FirstOrCreate(&cred).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert credential for user #%d: %w", userID, err)
	}
	return &cred, nil
}

func (s *Credentials) ByID(ctx context.Context, id int64) (*ExternalAuthenticator, error) {
	var cred ExternalAuthenticator
	if err := s.db.WithContext(ctx).First(&cred, id).Error; err != nil {
		return nil, translate(err, "credential #%d", id)
	}
	return &cred, nil
}

// UpdateTokens rewrites the token fields of an existing credential.
func (s *Credentials) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken, idToken string, expiry time.Time) error {
	res := s.db.WithContext(ctx).Model(&ExternalAuthenticator{}).Where("id = ?", id).Updates(map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"id_token":      idToken,
		"token_expiry":  expiry,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update credential #%d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return zerrors.NotFoundf("credential #%d", id)
	}
	return nil
}

// SaveTokens persists a refreshed access token back onto a credential. Used
// by the provider adapter's token source after an automatic refresh.
func (s *Credentials) SaveTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiry time.Time) error {
	updates := map[string]any{
		"access_token": accessToken,
		"token_expiry": expiry,
	}
	// Google only returns a refresh token on the initial grant; keep the
	// stored one unless the refresh produced a new one.
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	if err := s.db.WithContext(ctx).Model(&ExternalAuthenticator{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to save refreshed tokens for credential #%d: %w", id, err)
	}
	return nil
}

// Calendars provides lookups and writes for calendar records.
type Calendars struct {
	db *gorm.DB
}

func (s *Calendars) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Authenticator").Preload("Visibility")
}

func (s *Calendars) ByID(ctx context.Context, id int64) (*Calendar, error) {
	var cal Calendar
	if err := s.preloaded(ctx).First(&cal, id).Error; err != nil {
		return nil, translate(err, "calendar #%d", id)
	}
	return &cal, nil
}

// ByIdentity finds the calendar created for one
// (email, provider, user, credential) identity.
func (s *Calendars) ByIdentity(ctx context.Context, userID int64, provider ProviderType, email string, authenticatorID int64) (*Calendar, error) {
	var cal Calendar
	err := s.preloaded(ctx).
		Where("user_id = ? AND provider_type = ? AND email = ? AND authenticator_id = ?", userID, provider, email, authenticatorID).
		First(&cal).Error
	if err != nil {
		return nil, translate(err, "calendar for user #%d and %s account %q", userID, provider, email)
	}
	return &cal, nil
}

func (s *Calendars) ByUniqueName(ctx context.Context, userID int64, nameUnique string) (*Calendar, error) {
	var cal Calendar
	err := s.preloaded(ctx).
		Where("user_id = ? AND calendar_name_unique = ?", userID, nameUnique).
		First(&cal).Error
	if err != nil {
		return nil, translate(err, "calendar %q", nameUnique)
	}
	return &cal, nil
}

// ListByUser returns the user's enabled calendars with visibility loaded.
func (s *Calendars) ListByUser(ctx context.Context, userID int64) ([]Calendar, error) {
	var calendars []Calendar
	err := s.preloaded(ctx).
		Where("user_id = ? AND is_disabled = ?", userID, false).
		Find(&calendars).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars for user #%d: %w", userID, err)
	}
	return calendars, nil
}

// Siblings returns the user's other enabled calendars, credential loaded.
func (s *Calendars) Siblings(ctx context.Context, userID, excludeID int64) ([]Calendar, error) {
	var calendars []Calendar
	err := s.preloaded(ctx).
		Where("user_id = ? AND id <> ? AND is_disabled = ?", userID, excludeID, false).
		Find(&calendars).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sibling calendars for user #%d: %w", userID, err)
	}
	return calendars, nil
}

// SiblingsByUniqueName returns the user's other calendars, keyed off the
// booking-link unique name rather than the id.
func (s *Calendars) SiblingsByUniqueName(ctx context.Context, userID int64, excludeNameUnique string) ([]Calendar, error) {
	var calendars []Calendar
	err := s.preloaded(ctx).
		Where("user_id = ? AND calendar_name_unique <> ?", userID, excludeNameUnique).
		Find(&calendars).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sibling calendars for user #%d: %w", userID, err)
	}
	return calendars, nil
}

// CountNameLike counts the user's calendars whose unique name contains the
// given normalized fragment. Used for collision-free default naming.
func (s *Calendars) CountNameLike(ctx context.Context, userID int64, nameUnique string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Calendar{}).
		Where("user_id = ? AND calendar_name_unique LIKE ?", userID, "%"+nameUnique+"%").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count calendar names for user #%d: %w", userID, err)
	}
	return count, nil
}

// NameTakenByOther reports whether another of the user's calendars already
// uses the normalized unique name.
func (s *Calendars) NameTakenByOther(ctx context.Context, userID int64, nameUnique string, excludeID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Calendar{}).
		Where("user_id = ? AND calendar_name_unique = ? AND id <> ?", userID, nameUnique, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check calendar name for user #%d: %w", userID, err)
	}
	return count > 0, nil
}

func (s *Calendars) Create(ctx context.Context, cal *Calendar) error {
	if err := s.db.WithContext(ctx).Create(cal).Error; err != nil {
		return fmt.Errorf("failed to create calendar: %w", err)
	}
	return nil
}

func (s *Calendars) Save(ctx context.Context, cal *Calendar) error {
	if err := s.db.WithContext(ctx).Omit("Authenticator", "Visibility").Save(cal).Error; err != nil {
		return fmt.Errorf("failed to update calendar #%d: %w", cal.ID, err)
	}
	return nil
}

// SetDisabled flips the soft-delete flag. Disabled calendars are kept for
// history and excluded from provider sync.
func (s *Calendars) SetDisabled(ctx context.Context, id int64, disabled bool) error {
	res := s.db.WithContext(ctx).Model(&Calendar{}).Where("id = ?", id).Update("is_disabled", disabled)
	if res.Error != nil {
		return fmt.Errorf("failed to update calendar #%d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return zerrors.NotFoundf("calendar #%d", id)
	}
	return nil
}

func (s *Calendars) SetBackground(ctx context.Context, id int64, url string) error {
	res := s.db.WithContext(ctx).Model(&Calendar{}).Where("id = ?", id).Update("background_picture_url", url)
	if res.Error != nil {
		return fmt.Errorf("failed to update calendar #%d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return zerrors.NotFoundf("calendar #%d", id)
	}
	return nil
}

// Events provides lookups and writes for canonical events.
type Events struct {
	db *gorm.DB
}

func (s *Events) ByID(ctx context.Context, id int64) (*Event, error) {
	var event Event
	if err := s.db.WithContext(ctx).Preload("Attendees").First(&event, id).Error; err != nil {
		return nil, translate(err, "event #%d", id)
	}
	return &event, nil
}

func (s *Events) Create(ctx context.Context, event *Event) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *Events) Save(ctx context.Context, event *Event) error {
	if err := s.db.WithContext(ctx).Omit("Attendees").Save(event).Error; err != nil {
		return fmt.Errorf("failed to update event #%d: %w", event.ID, err)
	}
	return nil
}

// SetMetadata batch-writes the event metadata after a fan-out completes.
func (s *Events) SetMetadata(ctx context.Context, id int64, metadata EventMetadata) error {
	res := s.db.WithContext(ctx).Model(&Event{}).Where("id = ?", id).Update("metadata", metadata)
	if res.Error != nil {
		return fmt.Errorf("failed to update metadata for event #%d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return zerrors.NotFoundf("event #%d", id)
	}
	return nil
}

func (s *Events) AddAttendee(ctx context.Context, eventID int64, email string) error {
	attendee := EventAttendee{EventID: eventID, Email: email}
	if err := s.db.WithContext(ctx).Create(&attendee).Error; err != nil {
		return fmt.Errorf("failed to add attendee to event #%d: %w", eventID, err)
	}
	return nil
}

// CreatedBy returns every event the user created, attendees loaded.
func (s *Events) CreatedBy(ctx context.Context, userID int64) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).Preload("Attendees").
		Where("created_by_id = ?", userID).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events created by user #%d: %w", userID, err)
	}
	return events, nil
}

// CreatedByInRange returns the user's created events fully inside the range.
func (s *Events) CreatedByInRange(ctx context.Context, userID int64, from, to time.Time) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).Preload("Attendees").
		Where(`created_by_id = ? AND "from" >= ? AND "to" <= ?`, userID, from, to).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events created by user #%d: %w", userID, err)
	}
	return events, nil
}

// AttendedBy returns every event the user attends. The result is unioned
// with CreatedBy by the caller without deduplication.
func (s *Events) AttendedBy(ctx context.Context, userID int64) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).
		Joins("JOIN event_attendees ON event_attendees.event_id = events.id").
		Where("event_attendees.user_id = ?", userID).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events attended by user #%d: %w", userID, err)
	}
	return events, nil
}

// Visibilities provides writes for per-calendar visibility policies.
type Visibilities struct {
	db *gorm.DB
}

// Upsert creates or rewrites the visibility row for a source calendar.
func (s *Visibilities) Upsert(ctx context.Context, userID, sourceID int64, showAs string) error {
	visibility := CalendarVisibility{SourceID: sourceID}
	err := s.db.WithContext(ctx).
		Where(CalendarVisibility{SourceID: sourceID}).
		Assign(CalendarVisibility{UserID: userID, ShowAs: showAs}).
		FirstOrCreate(&visibility).Error
	if err != nil {
		return fmt.Errorf("failed to upsert visibility for calendar #%d: %w", sourceID, err)
	}
	return nil
}

// DeleteForSource removes the visibility rows for a source calendar.
func (s *Visibilities) DeleteForSource(ctx context.Context, userID, sourceID int64) error {
	err := s.db.WithContext(ctx).
		Where("source_id = ? AND user_id = ?", sourceID, userID).
		Delete(&CalendarVisibility{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete visibility for calendar #%d: %w", sourceID, err)
	}
	return nil
}
