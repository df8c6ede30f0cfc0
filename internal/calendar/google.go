package calendar

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pfrederiksen/fourscal/internal/event"
)

// GoogleRenderURL is the Google Calendar "add event" endpoint.
const GoogleRenderURL = "https://calendar.google.com/calendar/render"

const googleTimeLayout = "20060102T150405Z"

// GoogleCalendarURL builds a deep link that opens Google Calendar's event
// form prefilled with rec. The description already carries the citation line
// and is passed through unchanged.
func GoogleCalendarURL(rec event.Record) string {
	params := []struct{ key, value string }{
		{"action", "TEMPLATE"},
		{"text", rec.Title},
		{"dates", formatGoogleTime(rec.Start) + "/" + formatGoogleTime(rec.End)},
		{"details", rec.Description},
		{"location", rec.Location},
		{"ctz", rec.TimeZone},
	}

	var query strings.Builder
	for i, p := range params {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(p.key)
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(p.value))
	}

	return GoogleRenderURL + "?" + query.String()
}

func formatGoogleTime(t time.Time) string {
	return t.UTC().Format(googleTimeLayout)
}

// ParseGoogleCalendarURL reads a deep link produced by GoogleCalendarURL
// back into a Record. Instants are returned in the link's ctz zone, or UTC
// when the zone is unknown. SourceURL is not part of the link and stays empty.
func ParseGoogleCalendarURL(link string) (event.Record, error) {
	u, err := url.Parse(link)
	if err != nil {
		return event.Record{}, fmt.Errorf("parsing calendar URL: %w", err)
	}
	if base := u.Scheme + "://" + u.Host + u.Path; base != GoogleRenderURL {
		return event.Record{}, fmt.Errorf("not a Google Calendar render URL: %s", base)
	}

	q := u.Query()
	if action := q.Get("action"); action != "TEMPLATE" {
		return event.Record{}, fmt.Errorf("unexpected action %q", action)
	}

	startText, endText, ok := strings.Cut(q.Get("dates"), "/")
	if !ok {
		return event.Record{}, fmt.Errorf("malformed dates %q", q.Get("dates"))
	}
	start, err := time.Parse(googleTimeLayout, startText)
	if err != nil {
		return event.Record{}, fmt.Errorf("parsing start: %w", err)
	}
	end, err := time.Parse(googleTimeLayout, endText)
	if err != nil {
		return event.Record{}, fmt.Errorf("parsing end: %w", err)
	}

	zone := q.Get("ctz")
	loc := time.UTC
	if zone == event.TimeZoneID {
		loc = event.Location()
	} else if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}

	return event.Record{
		Title:       q.Get("text"),
		Start:       start.In(loc),
		End:         end.In(loc),
		Description: q.Get("details"),
		Location:    q.Get("location"),
		TimeZone:    zone,
	}, nil
}
