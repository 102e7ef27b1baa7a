// Package ics renders a unified event feed as an iCalendar document so a
// booking page can be subscribed to from any calendar client.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/zenith-hq/zenith-calendar/internal/calendar"
)

const (
	productID = "-//Zenith//Calendar//EN"
	dateLayout = "2006-01-02"
)

// Render writes the feed entries as VEVENTs. Whole-day blocks become
// all-day events; entries whose timestamps cannot be parsed are skipped.
func Render(w io.Writer, entries []calendar.FeedEntry) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	now := time.Now().UTC()
	for _, entry := range entries {
		vevent, err := toVEvent(entry, now)
		if err != nil {
			continue
		}
		cal.Children = append(cal.Children, vevent)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func toVEvent(entry calendar.FeedEntry, now time.Time) (*ical.Component, error) {
	vevent := ical.NewComponent(ical.CompEvent)
	vevent.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s@zenith", entry.Provider, entry.ID))
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, now)
	if entry.Title != "" {
		vevent.Props.SetText(ical.PropSummary, entry.Title)
	}
	if entry.Details != "" {
		vevent.Props.SetText(ical.PropDescription, entry.Details)
	}

	if entry.WholeDayBlock {
		day, err := time.Parse(dateLayout, entry.From)
		if err != nil {
			return nil, err
		}
		dtstart := ical.NewProp(ical.PropDateTimeStart)
		dtstart.SetDate(day)
		vevent.Props.Set(dtstart)
		dtend := ical.NewProp(ical.PropDateTimeEnd)
		dtend.SetDate(day.AddDate(0, 0, 1))
		vevent.Props.Set(dtend)
		return vevent, nil
	}

	from, err := time.Parse(time.RFC3339, entry.From)
	if err != nil {
		return nil, err
	}
	to, err := time.Parse(time.RFC3339, entry.To)
	if err != nil {
		return nil, err
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStart, from.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, to.UTC())
	return vevent, nil
}
