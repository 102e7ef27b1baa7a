package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zenith-hq/zenith-calendar/internal/gcal"
	"github.com/zenith-hq/zenith-calendar/internal/store"
	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

// Service is the calendar core: lifecycle of connected calendars, the
// unified event feed, and blocked-placeholder propagation.
type Service struct {
	users        UserStore
	credentials  CredentialStore
	calendars    CalendarStore
	events       EventStore
	visibilities VisibilityStore
	provider     gcal.Client
	logger       *zap.Logger
}

func NewService(
	users UserStore,
	credentials CredentialStore,
	calendars CalendarStore,
	events EventStore,
	visibilities VisibilityStore,
	provider gcal.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:        users,
		credentials:  credentials,
		calendars:    calendars,
		events:       events,
		visibilities: visibilities,
		provider:     provider,
		logger:       logger,
	}
}

// FindAll returns the user's enabled calendars.
func (s *Service) FindAll(ctx context.Context, userID int64) ([]store.Calendar, error) {
	return s.calendars.ListByUser(ctx, userID)
}

// Connect exchanges an authorization code for tokens, upserts the credential
// keyed by (user, provider, provider-subject) and finds or creates the
// calendar for that identity. Connecting the same account twice updates the
// existing credential row and returns the existing calendar.
func (s *Service) Connect(ctx context.Context, userID int64, code string) (*store.Calendar, error) {
	user, err := s.users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	material, profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("exchanged authorization code",
		zap.Int64("user", user.ID),
		zap.String("subject", profile.Subject),
		zap.String("email", profile.Email))

	cred, err := s.credentials.Upsert(ctx, user.ID, store.ProviderGoogle, profile.Subject,
		material.AccessToken, material.RefreshToken, material.IDToken, material.Expiry)
	if err != nil {
		return nil, err
	}

	return s.getOrCreate(ctx, user.ID, store.ProviderGoogle, cred.ID, profile)
}

// getOrCreate looks the calendar up by its (email, provider, user,
// credential) identity, creating it with defaults on first connect and
// re-enabling it if a previous disconnect disabled it.
func (s *Service) getOrCreate(ctx context.Context, userID int64, provider store.ProviderType, credentialID int64, profile *gcal.Profile) (*store.Calendar, error) {
	cal, err := s.calendars.ByIdentity(ctx, userID, provider, profile.Email, credentialID)
	switch {
	case err == nil:
		if cal.IsDisabled {
			if err := s.calendars.SetDisabled(ctx, cal.ID, false); err != nil {
				return nil, err
			}
			cal.IsDisabled = false
		}
		return cal, nil
	case !errors.Is(err, zerrors.ErrNotFound):
		return nil, err
	}

	name := strings.TrimSpace(fmt.Sprintf("%s %s calendar", profile.GivenName, profile.FamilyName))
	taken, err := s.calendars.CountNameLike(ctx, userID, store.UniqueName(name))
	if err != nil {
		return nil, err
	}
	if taken > 0 {
		name = fmt.Sprintf("%s %d", name, taken)
	}

	now := time.Now().UTC()
	cal = &store.Calendar{
		UserID:             userID,
		AuthenticatorID:    credentialID,
		Email:              profile.Email,
		ProviderType:       provider,
		Name:               name,
		CalendarNameUnique: store.UniqueName(name),
		ProfilePictureURL:  profile.Picture,
		AvailableStartTime: time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC),
		AvailableEndTime:   time.Date(now.Year(), now.Month(), now.Day(), 17, 0, 0, 0, time.UTC),
		AvailableWeekDays:  defaultWeekdayMask,
	}
	if err := s.calendars.Create(ctx, cal); err != nil {
		return nil, err
	}
	s.logger.Info("connected calendar",
		zap.Int64("user", userID),
		zap.Int64("calendar", cal.ID),
		zap.String("name", name))
	return cal, nil
}

// Reconnect re-exchanges an authorization code and rewrites the token fields
// of the calendar's linked credential. The calendar record itself is
// untouched.
func (s *Service) Reconnect(ctx context.Context, userID, calendarID int64, code string) (*store.Calendar, error) {
	cal, err := s.calendars.ByID(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if cal.UserID != userID {
		return nil, zerrors.Unauthorizedf("calendar #%d", calendarID)
	}

	material, _, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.credentials.UpdateTokens(ctx, cal.AuthenticatorID,
		material.AccessToken, material.RefreshToken, material.IDToken, material.Expiry); err != nil {
		return nil, err
	}
	return cal, nil
}

// Disconnect soft-disables the calendar. The credential is not revoked and
// the calendar's events are kept; a later Connect for the same identity
// re-enables it.
func (s *Service) Disconnect(ctx context.Context, userID, calendarID int64) error {
	cal, err := s.calendars.ByID(ctx, calendarID)
	if err != nil {
		return err
	}
	if cal.UserID != userID {
		return zerrors.Unauthorizedf("calendar #%d", calendarID)
	}
	return s.calendars.SetDisabled(ctx, calendarID, true)
}

// VisibilityPatch selects the label placeholders propagated from the
// calendar carry on a sibling.
type VisibilityPatch struct {
	CalendarID int64  `json:"calendarId"`
	ShowAs     string `json:"showAs"`
}

// UpdatePatch is the caller-supplied calendar update. Empty availability
// strings keep the current values; times use the "15:04" wall-clock form.
type UpdatePatch struct {
	Name                 string            `json:"name"`
	Colour               string            `json:"colour"`
	ProfilePictureURL    string            `json:"profilePictureUrl"`
	BackgroundPictureURL string            `json:"backgroundPictureUrl"`
	LogoURL              string            `json:"logoUrl"`
	AvailableStartTime   string            `json:"availableStartTime"`
	AvailableEndTime     string            `json:"availableEndTime"`
	AvailableWeekDays    Weekdays          `json:"availableWeekDays"`
	Visibilities         []VisibilityPatch `json:"visibilities"`
}

// Update rewrites the calendar from the patch. Renaming to a unique name
// another of the user's calendars already uses fails with a conflict;
// keeping the current name succeeds. An empty visibility list removes every
// visibility row for this calendar.
func (s *Service) Update(ctx context.Context, userID, calendarID int64, patch UpdatePatch) (*store.Calendar, error) {
	cal, err := s.calendars.ByID(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if cal.UserID != userID {
		return nil, zerrors.Unauthorizedf("calendar #%d", calendarID)
	}

	nameUnique := store.UniqueName(patch.Name)
	taken, err := s.calendars.NameTakenByOther(ctx, userID, nameUnique, calendarID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, zerrors.Conflictf("calendar name %q already exists", patch.Name)
	}

	cal.Name = patch.Name
	cal.CalendarNameUnique = nameUnique
	cal.Colour = patch.Colour
	cal.ProfilePictureURL = patch.ProfilePictureURL
	cal.BackgroundPictureURL = patch.BackgroundPictureURL
	cal.LogoURL = patch.LogoURL
	cal.AvailableWeekDays = patch.AvailableWeekDays.Mask()
	if patch.AvailableStartTime != "" {
		start, err := parseWallClock(patch.AvailableStartTime)
		if err != nil {
			return nil, err
		}
		cal.AvailableStartTime = start
	}
	if patch.AvailableEndTime != "" {
		end, err := parseWallClock(patch.AvailableEndTime)
		if err != nil {
			return nil, err
		}
		cal.AvailableEndTime = end
	}
	if err := s.calendars.Save(ctx, cal); err != nil {
		return nil, err
	}

	for _, visibility := range patch.Visibilities {
		if visibility.CalendarID == cal.ID {
			continue
		}
		if err := s.visibilities.Upsert(ctx, userID, cal.ID, visibility.ShowAs); err != nil {
			return nil, err
		}
	}
	if len(patch.Visibilities) == 0 {
		if err := s.visibilities.DeleteForSource(ctx, userID, cal.ID); err != nil {
			return nil, err
		}
	}
	return cal, nil
}

// UpdateBackground stores a new background picture URL on the calendar.
func (s *Service) UpdateBackground(ctx context.Context, calendarID int64, url string) (*store.Calendar, error) {
	if err := s.calendars.SetBackground(ctx, calendarID, url); err != nil {
		return nil, err
	}
	return s.calendars.ByID(ctx, calendarID)
}

// parseWallClock parses an "HH:mm" availability bound onto today's date.
func parseWallClock(value string) (time.Time, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", value, err)
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), nil
}

// credentialOf projects the calendar's loaded authenticator into the token
// material the provider adapter signs requests with.
func credentialOf(cal *store.Calendar) (gcal.Credential, error) {
	if cal.Authenticator == nil {
		return gcal.Credential{}, zerrors.NotFoundf("credential for calendar #%d", cal.ID)
	}
	return gcal.Credential{
		ID:           cal.Authenticator.ID,
		AccessToken:  cal.Authenticator.AccessToken,
		RefreshToken: cal.Authenticator.RefreshToken,
		TokenExpiry:  cal.Authenticator.TokenExpiry,
	}, nil
}
