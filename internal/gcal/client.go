package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/zenith-hq/zenith-calendar/internal/zerrors"
)

const (
	// primaryCalendarID addresses the account's default calendar.
	primaryCalendarID = "primary"

	tagEventID    = "zenithEventId"
	tagCalendarID = "zenithCalendarId"

	userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// TokenSink receives refreshed token material so a refresh performed during
// a provider call survives the request.
type TokenSink interface {
	SaveTokens(ctx context.Context, credentialID int64, accessToken, refreshToken string, expiry time.Time) error
}

// GoogleClient is the Google Calendar implementation of Client.
type GoogleClient struct {
	config *oauth2.Config
	sink   TokenSink
	logger *zap.Logger
}

func NewGoogleClient(clientID, clientSecret, redirectURL string, sink TokenSink, logger *zap.Logger) *GoogleClient {
	return &GoogleClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				calendar.CalendarScope,
				calendar.CalendarEventsScope,
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		sink:   sink,
		logger: logger,
	}
}

// service builds a calendar service signing requests with the credential's
// tokens. An expired access token is refreshed once via the refresh token;
// refreshed tokens are written back through the sink.
func (c *GoogleClient) service(ctx context.Context, cred Credential) (*calendar.Service, error) {
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.TokenExpiry,
	}
	source := &persistingTokenSource{
		source:       oauth2.ReuseTokenSource(token, c.config.TokenSource(ctx, token)),
		sink:         c.sink,
		credentialID: cred.ID,
		lastToken:    token,
		logger:       c.logger,
	}
	service, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return service, nil
}

// Exchange trades an authorization code for tokens and fetches the Google
// profile of the granting account.
func (c *GoogleClient) Exchange(ctx context.Context, code string) (*TokenMaterial, *Profile, error) {
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, classify("failed to exchange authorization code", err)
	}

	client := c.config.Client(ctx, token)
	resp, err := client.Get(userinfoURL)
	if err != nil {
		return nil, nil, classify("failed to fetch user info", err)
	}
	defer resp.Body.Close()

	var info struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		Name       string `json:"name"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, nil, fmt.Errorf("failed to parse user info: %w", err)
	}

	idToken, _ := token.Extra("id_token").(string)
	material := &TokenMaterial{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      idToken,
		Expiry:       token.Expiry,
	}
	profile := &Profile{
		Subject:    info.ID,
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		Name:       info.Name,
		Picture:    info.Picture,
	}
	return material, profile, nil
}

// ListEvents returns the events of the credential's primary calendar in the
// window, recurring events expanded to single occurrences.
func (c *GoogleClient) ListEvents(ctx context.Context, cred Credential, timeMin, timeMax time.Time) ([]ProviderEvent, error) {
	service, err := c.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	list, err := service.Events.List(primaryCalendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true). // Expand recurring events
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("failed to list events", err)
	}
	events := make([]ProviderEvent, 0, len(list.Items))
	for _, item := range list.Items {
		events = append(events, fromGoogleEvent(item))
	}
	return events, nil
}

func (c *GoogleClient) GetEvent(ctx context.Context, cred Credential, eventID string) (*ProviderEvent, error) {
	service, err := c.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	item, err := service.Events.Get(primaryCalendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, classify("failed to get event", err)
	}
	event := fromGoogleEvent(item)
	return &event, nil
}

func (c *GoogleClient) InsertEvent(ctx context.Context, cred Credential, payload EventPayload) (*ProviderEvent, error) {
	service, err := c.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	item, err := service.Events.Insert(primaryCalendarID, toGoogleEvent(payload)).
		SendUpdates("none"). // Disable notifications
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("failed to insert event", err)
	}
	event := fromGoogleEvent(item)
	return &event, nil
}

func (c *GoogleClient) UpdateEvent(ctx context.Context, cred Credential, eventID string, payload EventPayload) (*ProviderEvent, error) {
	service, err := c.service(ctx, cred)
	if err != nil {
		return nil, err
	}
	item, err := service.Events.Update(primaryCalendarID, eventID, toGoogleEvent(payload)).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("failed to update event", err)
	}
	event := fromGoogleEvent(item)
	return &event, nil
}

// classify translates provider failures into the taxonomy: an invalidated
// refresh token means the calendar must be reconnected, everything else is
// a transient provider failure.
func classify(op string, err error) error {
	if strings.Contains(err.Error(), "invalid_grant") {
		return zerrors.CredentialExpiredf("%s", op)
	}
	return fmt.Errorf("%s: %v: %w", op, err, zerrors.ErrProviderUnavailable)
}

func fromGoogleEvent(item *calendar.Event) ProviderEvent {
	event := ProviderEvent{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Created:     item.Created,
		Updated:     item.Updated,
		HTMLLink:    item.HtmlLink,
	}
	if item.Start != nil {
		event.StartDateTime = item.Start.DateTime
		event.StartDate = item.Start.Date
	}
	if item.End != nil {
		event.EndDateTime = item.End.DateTime
		event.EndDate = item.End.Date
	}
	if item.Creator != nil {
		event.CreatorEmail = item.Creator.Email
		event.CreatorDisplayName = item.Creator.DisplayName
		event.CreatorID = item.Creator.Id
	}
	if item.ExtendedProperties != nil && item.ExtendedProperties.Private != nil {
		event.ZenithEventID = item.ExtendedProperties.Private[tagEventID]
		event.ZenithCalendarID = item.ExtendedProperties.Private[tagCalendarID]
	}
	return event
}

func toGoogleEvent(payload EventPayload) *calendar.Event {
	event := &calendar.Event{
		Summary:     payload.Summary,
		Description: payload.Description,
		Start:       &calendar.EventDateTime{DateTime: payload.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: payload.End.Format(time.RFC3339)},
	}
	if payload.AttendeeEmail != "" {
		event.Attendees = []*calendar.EventAttendee{
			{Email: payload.AttendeeEmail, DisplayName: payload.AttendeeEmail},
		}
	}
	if payload.TagEventID != 0 {
		event.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: map[string]string{
				tagEventID:    strconv.FormatInt(payload.TagEventID, 10),
				tagCalendarID: strconv.FormatInt(payload.TagCalendarID, 10),
			},
		}
	}
	return event
}
