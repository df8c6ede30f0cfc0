package calendar

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/fourscal/internal/event"
)

func TestGoogleCalendarURL(t *testing.T) {
	rec := testRecord()
	link := GoogleCalendarURL(rec)

	if !strings.HasPrefix(link, GoogleRenderURL+"?action=TEMPLATE&text=") {
		t.Errorf("link = %q, want render URL with action first", link)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	q := u.Query()

	tests := []struct {
		param string
		want  string
	}{
		{"action", "TEMPLATE"},
		{"text", rec.Title},
		{"dates", "20250627T070000Z/20250627T080000Z"},
		{"details", rec.Description},
		{"location", rec.Location},
		{"ctz", "Asia/Tokyo"},
	}
	for _, tt := range tests {
		if got := q.Get(tt.param); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.param, got, tt.want)
		}
	}

	if n := strings.Count(q.Get("details"), event.CitationLabel); n != 1 {
		t.Errorf("details carries the citation %d times, want once", n)
	}
}

func TestGoogleCalendarURL_RoundTrip(t *testing.T) {
	loc := event.Location()
	records := []event.Record{
		testRecord(),
		event.Assemble(event.Fields{
			Title: "夜間イベント & 交流会 = 100% 楽しい",
			Span: event.Span{
				Start: time.Date(2025, 12, 31, 22, 0, 0, 0, loc),
				End:   time.Date(2026, 1, 1, 1, 30, 0, 0, loc),
			},
		}, "https://4s.link/ja/events/night?ref=top"),
		event.Assemble(event.Fields{}, "https://4s.link/ja/events/empty"),
	}

	for _, rec := range records {
		t.Run(rec.Title, func(t *testing.T) {
			got, err := ParseGoogleCalendarURL(GoogleCalendarURL(rec))
			if err != nil {
				t.Fatalf("ParseGoogleCalendarURL() error = %v", err)
			}

			if got.Title != rec.Title || got.Description != rec.Description ||
				got.Location != rec.Location || got.TimeZone != rec.TimeZone {
				t.Errorf("round trip = %+v, want %+v", got, rec)
			}
			if !got.Start.Equal(rec.Start) || !got.End.Equal(rec.End) {
				t.Errorf("span = %v - %v, want %v - %v", got.Start, got.End, rec.Start, rec.End)
			}
			if got.Start.Location() != loc {
				t.Errorf("start zone = %v, want %v", got.Start.Location(), loc)
			}
		})
	}
}

func TestParseGoogleCalendarURL_Errors(t *testing.T) {
	tests := []struct {
		name string
		link string
	}{
		{"other host", "https://example.com/calendar/render?action=TEMPLATE&dates=20250627T070000Z/20250627T080000Z"},
		{"wrong action", GoogleRenderURL + "?action=VIEW&dates=20250627T070000Z/20250627T080000Z"},
		{"missing dates", GoogleRenderURL + "?action=TEMPLATE&text=x"},
		{"bad start", GoogleRenderURL + "?action=TEMPLATE&dates=2025-06-27/20250627T080000Z"},
		{"bad end", GoogleRenderURL + "?action=TEMPLATE&dates=20250627T070000Z/later"},
		{"unparseable", "://nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGoogleCalendarURL(tt.link); err == nil {
				t.Errorf("ParseGoogleCalendarURL(%q) should fail", tt.link)
			}
		})
	}
}
