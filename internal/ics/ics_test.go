package ics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenith-hq/zenith-calendar/internal/calendar"
)

func TestRenderTimedAndWholeDayEntries(t *testing.T) {
	entries := []calendar.FeedEntry{
		{
			ID:       "42",
			Provider: calendar.ProviderZenith,
			From:     "2024-01-15T10:00:00Z",
			To:       "2024-01-15T11:00:00Z",
			Title:    "Standup",
			Details:  "Daily sync",
		},
		{
			ID:            "g-1",
			Provider:      calendar.ProviderGoogle,
			From:          "2024-01-16",
			To:            "2024-01-16",
			Title:         "OOO",
			WholeDayBlock: true,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, entries))
	out := buf.String()

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "UID:ZENITH-42@zenith")
	assert.Contains(t, out, "SUMMARY:Standup")
	assert.Contains(t, out, "DTSTART:20240115T100000Z")
	assert.Contains(t, out, "UID:GOOGLE-g-1@zenith")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20240116")
}

func TestRenderSkipsUnparseableEntries(t *testing.T) {
	entries := []calendar.FeedEntry{
		{ID: "bad", Provider: calendar.ProviderGoogle, From: "not-a-time", To: "not-a-time"},
		{ID: "ok", Provider: calendar.ProviderZenith, From: "2024-01-15T10:00:00Z", To: "2024-01-15T11:00:00Z", Title: "Kept"},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, entries))
	out := buf.String()

	assert.NotContains(t, out, "bad@zenith")
	assert.Contains(t, out, "UID:ZENITH-ok@zenith")
}
