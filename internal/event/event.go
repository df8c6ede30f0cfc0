package event

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // Asia/Tokyo must resolve on minimal images
)

// TimeZoneID is the zone every event of the source site is expressed in.
const TimeZoneID = "Asia/Tokyo"

// SourceHost is the event site records are extracted from.
const SourceHost = "4s.link"

// Sentinel values substituted when a field cannot be extracted.
const (
	UnknownTitle           = "不明なイベント"
	DefaultLocation        = "オンライン"
	DescriptionPlaceholder = "イベントの詳細情報"
	CitationLabel          = "詳細: "
)

// Location returns the fixed event time zone.
var Location = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation(TimeZoneID)
	if err != nil {
		// tzdata is embedded, so this only happens with a corrupt build
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
})

// Record is one event extracted from a source page.
// Build it with Assemble; treat it as a read-only value afterwards.
type Record struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"startDate"`
	End         time.Time `json:"endDate"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	TimeZone    string    `json:"timezone"`
	SourceURL   string    `json:"originalUrl"`
}

// ID returns a deterministic identifier for the record, stable across
// extractions of the same page as long as the start time does not change.
func (r Record) ID() string {
	return GenerateID(r.SourceURL, r.Start.UTC().Format(time.RFC3339))
}

// GenerateID creates a deterministic ID from a source URL and a discriminator
func GenerateID(sourceURL, discriminator string) string {
	h := sha1.New()
	h.Write([]byte(sourceURL + "|" + discriminator))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Fields holds the raw outputs of the field extractors.
type Fields struct {
	Title       string
	Location    string
	Description string
	Span        Span
}

// Citation returns the line every description starts with.
func Citation(sourceURL string) string {
	return CitationLabel + sourceURL
}

// WithCitation prefixes body with the citation line for sourceURL.
// An empty body is replaced by DescriptionPlaceholder.
func WithCitation(sourceURL, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		body = DescriptionPlaceholder
	}
	return Citation(sourceURL) + "\n\n" + body
}

// Assemble combines extracted fields into a Record. Missing fields are
// replaced by their sentinels, instants are moved into the event zone and the
// end is never earlier than the start.
func Assemble(f Fields, sourceURL string) Record {
	loc := Location()

	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = UnknownTitle
	}

	location := strings.TrimSpace(f.Location)
	if location == "" {
		location = DefaultLocation
	}

	description := f.Description
	if !strings.HasPrefix(description, Citation(sourceURL)+"\n") {
		description = WithCitation(sourceURL, description)
	}

	start := f.Span.Start.In(loc)
	end := f.Span.End.In(loc)
	if end.Before(start) {
		end = start
	}

	return Record{
		Title:       title,
		Start:       start,
		End:         end,
		Description: description,
		Location:    location,
		TimeZone:    TimeZoneID,
		SourceURL:   sourceURL,
	}
}
