package calendar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zenith-hq/zenith-calendar/internal/gcal"
	"github.com/zenith-hq/zenith-calendar/internal/store"
	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

type fixture struct {
	users        *fakeUsers
	credentials  *fakeCredentials
	calendars    *fakeCalendars
	events       *fakeEvents
	visibilities *fakeVisibilities
	provider     *fakeProvider
	service      *Service
}

func newFixture() *fixture {
	f := &fixture{
		users:        &fakeUsers{},
		credentials:  &fakeCredentials{},
		calendars:    &fakeCalendars{},
		events:       &fakeEvents{},
		visibilities: &fakeVisibilities{},
		provider: &fakeProvider{
			listByCred: map[int64][]gcal.ProviderEvent{},
			listErr:    map[int64]error{},
			insertErr:  map[int64]error{},
			updateErr:  map[int64]error{},
		},
	}
	f.service = NewService(f.users, f.credentials, f.calendars, f.events, f.visibilities, f.provider, zap.NewNop())
	return f
}

func (f *fixture) addUser(id int64, username string) *store.User {
	user := &store.User{
		ID:             id,
		Email:          username + "@example.com",
		Username:       username,
		UsernameUnique: store.UniqueName(username),
	}
	f.users.rows = append(f.users.rows, user)
	return user
}

// addCalendar registers an enabled calendar with a loaded credential whose
// id doubles as the key the fake provider scripts against.
func (f *fixture) addCalendar(id, userID int64, name string, credID int64) *store.Calendar {
	cal := &store.Calendar{
		ID:              id,
		UserID:          userID,
		AuthenticatorID: credID,
		Authenticator: &store.ExternalAuthenticator{
			ID:           credID,
			UserID:       userID,
			ProviderType: store.ProviderGoogle,
			AccessToken:  fmt.Sprintf("access-%d", credID),
			RefreshToken: fmt.Sprintf("refresh-%d", credID),
		},
		Email:              name + "@example.com",
		ProviderType:       store.ProviderGoogle,
		Name:               name,
		CalendarNameUnique: store.UniqueName(name),
	}
	f.calendars.rows = append(f.calendars.rows, cal)
	f.credentials.rows = append(f.credentials.rows, cal.Authenticator)
	return cal
}

type fakeUsers struct {
	rows []*store.User
}

func (f *fakeUsers) ByID(_ context.Context, id int64) (*store.User, error) {
	for _, user := range f.rows {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, zerrors.NotFoundf("user #%d", id)
}

func (f *fakeUsers) ByUsername(_ context.Context, usernameUnique string) (*store.User, error) {
	for _, user := range f.rows {
		if user.UsernameUnique == usernameUnique {
			return user, nil
		}
	}
	return nil, zerrors.NotFoundf("user %q", usernameUnique)
}

type fakeCredentials struct {
	nextID       int64
	rows         []*store.ExternalAuthenticator
	tokenUpdates []int64
}

func (f *fakeCredentials) Upsert(_ context.Context, userID int64, provider store.ProviderType, providerUserID, accessToken, refreshToken, idToken string, expiry time.Time) (*store.ExternalAuthenticator, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.ProviderType == provider && row.ProviderUserID == providerUserID {
			row.AccessToken = accessToken
			row.RefreshToken = refreshToken
			row.IDToken = idToken
			row.TokenExpiry = expiry
			return row, nil
		}
	}
	f.nextID++
	row := &store.ExternalAuthenticator{
		ID:             f.nextID,
		UserID:         userID,
		ProviderType:   provider,
		ProviderUserID: providerUserID,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		IDToken:        idToken,
		TokenExpiry:    expiry,
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakeCredentials) UpdateTokens(_ context.Context, id int64, accessToken, refreshToken, idToken string, expiry time.Time) error {
	for _, row := range f.rows {
		if row.ID == id {
			row.AccessToken = accessToken
			row.RefreshToken = refreshToken
			row.IDToken = idToken
			row.TokenExpiry = expiry
			f.tokenUpdates = append(f.tokenUpdates, id)
			return nil
		}
	}
	return zerrors.NotFoundf("credential #%d", id)
}

type fakeCalendars struct {
	nextID int64
	rows   []*store.Calendar
}

func (f *fakeCalendars) ByID(_ context.Context, id int64) (*store.Calendar, error) {
	for _, cal := range f.rows {
		if cal.ID == id {
			return cal, nil
		}
	}
	return nil, zerrors.NotFoundf("calendar #%d", id)
}

func (f *fakeCalendars) ByIdentity(_ context.Context, userID int64, provider store.ProviderType, email string, authenticatorID int64) (*store.Calendar, error) {
	for _, cal := range f.rows {
		if cal.UserID == userID && cal.ProviderType == provider && cal.Email == email && cal.AuthenticatorID == authenticatorID {
			return cal, nil
		}
	}
	return nil, zerrors.NotFoundf("calendar for user #%d and %s account %q", userID, provider, email)
}

func (f *fakeCalendars) ByUniqueName(_ context.Context, userID int64, nameUnique string) (*store.Calendar, error) {
	for _, cal := range f.rows {
		if cal.UserID == userID && cal.CalendarNameUnique == nameUnique {
			return cal, nil
		}
	}
	return nil, zerrors.NotFoundf("calendar %q", nameUnique)
}

func (f *fakeCalendars) ListByUser(_ context.Context, userID int64) ([]store.Calendar, error) {
	var out []store.Calendar
	for _, cal := range f.rows {
		if cal.UserID == userID && !cal.IsDisabled {
			out = append(out, *cal)
		}
	}
	return out, nil
}

func (f *fakeCalendars) Siblings(_ context.Context, userID, excludeID int64) ([]store.Calendar, error) {
	var out []store.Calendar
	for _, cal := range f.rows {
		if cal.UserID == userID && cal.ID != excludeID && !cal.IsDisabled {
			out = append(out, *cal)
		}
	}
	return out, nil
}

func (f *fakeCalendars) SiblingsByUniqueName(_ context.Context, userID int64, excludeNameUnique string) ([]store.Calendar, error) {
	var out []store.Calendar
	for _, cal := range f.rows {
		if cal.UserID == userID && cal.CalendarNameUnique != excludeNameUnique {
			out = append(out, *cal)
		}
	}
	return out, nil
}

func (f *fakeCalendars) CountNameLike(_ context.Context, userID int64, nameUnique string) (int64, error) {
	var count int64
	for _, cal := range f.rows {
		if cal.UserID == userID && strings.Contains(cal.CalendarNameUnique, nameUnique) {
			count++
		}
	}
	return count, nil
}

func (f *fakeCalendars) NameTakenByOther(_ context.Context, userID int64, nameUnique string, excludeID int64) (bool, error) {
	for _, cal := range f.rows {
		if cal.UserID == userID && cal.CalendarNameUnique == nameUnique && cal.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCalendars) Create(_ context.Context, cal *store.Calendar) error {
	f.nextID++
	cal.ID = f.nextID + 1000
	f.rows = append(f.rows, cal)
	return nil
}

func (f *fakeCalendars) Save(_ context.Context, cal *store.Calendar) error {
	for i, row := range f.rows {
		if row.ID == cal.ID {
			f.rows[i] = cal
			return nil
		}
	}
	return zerrors.NotFoundf("calendar #%d", cal.ID)
}

func (f *fakeCalendars) SetDisabled(_ context.Context, id int64, disabled bool) error {
	for _, cal := range f.rows {
		if cal.ID == id {
			cal.IsDisabled = disabled
			return nil
		}
	}
	return zerrors.NotFoundf("calendar #%d", id)
}

func (f *fakeCalendars) SetBackground(_ context.Context, id int64, url string) error {
	for _, cal := range f.rows {
		if cal.ID == id {
			cal.BackgroundPictureURL = url
			return nil
		}
	}
	return zerrors.NotFoundf("calendar #%d", id)
}

type fakeEvents struct {
	nextID int64
	rows   []*store.Event
}

func (f *fakeEvents) ByID(_ context.Context, id int64) (*store.Event, error) {
	for _, event := range f.rows {
		if event.ID == id {
			loaded := *event
			return &loaded, nil
		}
	}
	return nil, zerrors.NotFoundf("event #%d", id)
}

func (f *fakeEvents) Create(_ context.Context, event *store.Event) error {
	f.nextID++
	event.ID = f.nextID
	stored := *event
	f.rows = append(f.rows, &stored)
	return nil
}

func (f *fakeEvents) Save(_ context.Context, event *store.Event) error {
	for i, row := range f.rows {
		if row.ID == event.ID {
			stored := *event
			stored.Attendees = row.Attendees
			f.rows[i] = &stored
			return nil
		}
	}
	return zerrors.NotFoundf("event #%d", event.ID)
}

func (f *fakeEvents) SetMetadata(_ context.Context, id int64, metadata store.EventMetadata) error {
	for _, event := range f.rows {
		if event.ID == id {
			event.Metadata = metadata
			return nil
		}
	}
	return zerrors.NotFoundf("event #%d", id)
}

func (f *fakeEvents) AddAttendee(_ context.Context, eventID int64, email string) error {
	for _, event := range f.rows {
		if event.ID == eventID {
			event.Attendees = append(event.Attendees, store.EventAttendee{EventID: eventID, Email: email})
			return nil
		}
	}
	return zerrors.NotFoundf("event #%d", eventID)
}

func (f *fakeEvents) CreatedBy(_ context.Context, userID int64) ([]store.Event, error) {
	var out []store.Event
	for _, event := range f.rows {
		if event.CreatedByID == userID {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (f *fakeEvents) CreatedByInRange(_ context.Context, userID int64, from, to time.Time) ([]store.Event, error) {
	var out []store.Event
	for _, event := range f.rows {
		if event.CreatedByID == userID && !event.From.Before(from) && !event.To.After(to) {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (f *fakeEvents) AttendedBy(_ context.Context, userID int64) ([]store.Event, error) {
	var out []store.Event
	for _, event := range f.rows {
		for _, attendee := range event.Attendees {
			if attendee.UserID != nil && *attendee.UserID == userID {
				out = append(out, *event)
				break
			}
		}
	}
	return out, nil
}

type visibilityWrite struct {
	userID   int64
	sourceID int64
	showAs   string
}

type fakeVisibilities struct {
	upserts []visibilityWrite
	deletes []int64
}

func (f *fakeVisibilities) Upsert(_ context.Context, userID, sourceID int64, showAs string) error {
	f.upserts = append(f.upserts, visibilityWrite{userID: userID, sourceID: sourceID, showAs: showAs})
	return nil
}

func (f *fakeVisibilities) DeleteForSource(_ context.Context, _, sourceID int64) error {
	f.deletes = append(f.deletes, sourceID)
	return nil
}

type insertCall struct {
	credID  int64
	payload gcal.EventPayload
}

type updateCall struct {
	credID  int64
	eventID string
	payload gcal.EventPayload
}

// fakeProvider scripts the provider per credential id and records every
// write. Safe for the concurrent fan-out and sibling-fetch paths.
type fakeProvider struct {
	mu sync.Mutex

	exchangeMaterial *gcal.TokenMaterial
	exchangeProfile  *gcal.Profile
	exchangeErr      error

	listByCred map[int64][]gcal.ProviderEvent
	listErr    map[int64]error
	listCalls  []int64

	getResult *gcal.ProviderEvent
	getErr    error

	insertErr map[int64]error
	inserts   []insertCall

	updateErr map[int64]error
	updates   []updateCall
}

func (f *fakeProvider) Exchange(_ context.Context, _ string) (*gcal.TokenMaterial, *gcal.Profile, error) {
	if f.exchangeErr != nil {
		return nil, nil, f.exchangeErr
	}
	return f.exchangeMaterial, f.exchangeProfile, nil
}

func (f *fakeProvider) ListEvents(_ context.Context, cred gcal.Credential, _, _ time.Time) ([]gcal.ProviderEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, cred.ID)
	if err := f.listErr[cred.ID]; err != nil {
		return nil, err
	}
	return f.listByCred[cred.ID], nil
}

func (f *fakeProvider) GetEvent(_ context.Context, _ gcal.Credential, _ string) (*gcal.ProviderEvent, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getResult != nil {
		return f.getResult, nil
	}
	return &gcal.ProviderEvent{}, nil
}

func (f *fakeProvider) InsertEvent(_ context.Context, cred gcal.Credential, payload gcal.EventPayload) (*gcal.ProviderEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insertErr[cred.ID]; err != nil {
		return nil, err
	}
	f.inserts = append(f.inserts, insertCall{credID: cred.ID, payload: payload})
	return &gcal.ProviderEvent{ID: fmt.Sprintf("g%d-%d", cred.ID, len(f.inserts))}, nil
}

func (f *fakeProvider) UpdateEvent(_ context.Context, cred gcal.Credential, eventID string, payload gcal.EventPayload) (*gcal.ProviderEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[cred.ID]; err != nil {
		return nil, err
	}
	f.updates = append(f.updates, updateCall{credID: cred.ID, eventID: eventID, payload: payload})
	return &gcal.ProviderEvent{ID: eventID}, nil
}

// insertsFor filters recorded inserts down to one credential.
func (f *fakeProvider) insertsFor(credID int64) []insertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []insertCall
	for _, call := range f.inserts {
		if call.credID == credID {
			out = append(out, call)
		}
	}
	return out
}
