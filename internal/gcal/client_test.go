package gcal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

func TestClassifyInvalidGrant(t *testing.T) {
	err := classify("failed to list events", errors.New(`oauth2: "invalid_grant" "Token has been expired or revoked."`))
	assert.True(t, errors.Is(err, zerrors.ErrCredentialExpired))
	assert.True(t, errors.Is(err, zerrors.ErrUnauthorized))
}

func TestClassifyOtherFailure(t *testing.T) {
	err := classify("failed to list events", errors.New("googleapi: Error 503: backend error"))
	assert.True(t, errors.Is(err, zerrors.ErrProviderUnavailable))
	assert.False(t, errors.Is(err, zerrors.ErrCredentialExpired))
	assert.Contains(t, err.Error(), "backend error")
}

func TestFromGoogleEventTagged(t *testing.T) {
	event := fromGoogleEvent(&calendar.Event{
		Id:      "g-1",
		Summary: "Standup",
		Start:   &calendar.EventDateTime{DateTime: "2024-01-15T10:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2024-01-15T11:00:00Z"},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				"zenithEventId":    "42",
				"zenithCalendarId": "7",
			},
		},
	})

	assert.True(t, event.Mirrored())
	assert.Equal(t, "42", event.ZenithEventID)
	assert.Equal(t, "7", event.ZenithCalendarID)
	assert.Equal(t, "2024-01-15T10:00:00Z", event.StartDateTime)
}

func TestFromGoogleEventAllDay(t *testing.T) {
	event := fromGoogleEvent(&calendar.Event{
		Id:    "g-2",
		Start: &calendar.EventDateTime{Date: "2024-01-15"},
		End:   &calendar.EventDateTime{Date: "2024-01-16"},
	})

	assert.False(t, event.Mirrored())
	assert.Empty(t, event.StartDateTime)
	assert.Equal(t, "2024-01-15", event.StartDate)
}

func TestToGoogleEventWritesTag(t *testing.T) {
	from := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	payload := EventPayload{
		Summary:       "Standup",
		Start:         from,
		End:           from.Add(time.Hour),
		AttendeeEmail: "guest@example.com",
		TagEventID:    42,
		TagCalendarID: 7,
	}

	event := toGoogleEvent(payload)
	require.NotNil(t, event.ExtendedProperties)
	assert.Equal(t, "42", event.ExtendedProperties.Private["zenithEventId"])
	assert.Equal(t, "7", event.ExtendedProperties.Private["zenithCalendarId"])
	require.Len(t, event.Attendees, 1)
	assert.Equal(t, "guest@example.com", event.Attendees[0].Email)
}

func TestToGoogleEventNoTagWithoutEventID(t *testing.T) {
	event := toGoogleEvent(EventPayload{Summary: "Busy", Start: time.Now(), End: time.Now().Add(time.Hour)})
	assert.Nil(t, event.ExtendedProperties)
	assert.Empty(t, event.Attendees)
}

type recordingSink struct {
	saved []string
	err   error
}

func (r *recordingSink) SaveTokens(_ context.Context, _ int64, accessToken, _ string, _ time.Time) error {
	r.saved = append(r.saved, accessToken)
	return r.err
}

type staticTokenSource struct {
	token *oauth2.Token
}

func (s staticTokenSource) Token() (*oauth2.Token, error) { return s.token, nil }

func TestPersistingTokenSourceSavesOnRefresh(t *testing.T) {
	sink := &recordingSink{}
	stale := &oauth2.Token{AccessToken: "stale"}
	fresh := &oauth2.Token{AccessToken: "fresh"}

	source := &persistingTokenSource{
		source:       staticTokenSource{token: fresh},
		sink:         sink,
		credentialID: 1,
		lastToken:    stale,
		logger:       zap.NewNop(),
	}

	token, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", token.AccessToken)
	assert.Equal(t, []string{"fresh"}, sink.saved)

	// Unchanged token is not saved again.
	_, err = source.Token()
	require.NoError(t, err)
	assert.Len(t, sink.saved, 1)
}
