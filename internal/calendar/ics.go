package calendar

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pfrederiksen/fourscal/internal/event"
)

// maxLineOctets is the RFC 5545 content line limit, excluding CRLF.
const maxLineOctets = 75

// GenerateICS generates an iCalendar (.ics) file for an event
func GenerateICS(rec event.Record) string {
	return generateICS(rec, time.Now())
}

func generateICS(rec event.Record, stamp time.Time) string {
	var ics strings.Builder

	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:-//fourscal//fourscal//JA")
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	if rec.TimeZone != "" {
		writeLine(&ics, "X-WR-TIMEZONE:"+rec.TimeZone)
	}
	writeLine(&ics, "BEGIN:VEVENT")

	// UID is stable for a given page and start time
	writeLine(&ics, fmt.Sprintf("UID:%s@%s", rec.ID(), event.SourceHost))

	// DTSTAMP - when this calendar entry was created
	writeLine(&ics, "DTSTAMP:"+formatICSTime(stamp))

	writeLine(&ics, "DTSTART:"+formatICSTime(rec.Start))
	writeLine(&ics, "DTEND:"+formatICSTime(rec.End))

	writeLine(&ics, "SUMMARY:"+escapeICS(rec.Title))
	writeLine(&ics, "DESCRIPTION:"+escapeICS(rec.Description))
	writeLine(&ics, "LOCATION:"+escapeICS(rec.Location))
	if rec.SourceURL != "" {
		writeLine(&ics, "URL:"+rec.SourceURL)
	}

	writeLine(&ics, "STATUS:CONFIRMED")
	writeLine(&ics, "SEQUENCE:0")
	writeLine(&ics, "TRANSP:OPAQUE")

	writeLine(&ics, "END:VEVENT")
	writeLine(&ics, "END:VCALENDAR")

	return ics.String()
}

// writeLine writes one content line, folded at 75 octets without splitting
// a UTF-8 sequence. Continuation lines start with a single space.
func writeLine(b *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// the leading space counts towards the next line
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
