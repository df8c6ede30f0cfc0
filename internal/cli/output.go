package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pfrederiksen/fourscal/internal/calendar"
	"github.com/pfrederiksen/fourscal/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	Event       event.Record `json:"event"`
	CalendarURL string       `json:"calendarUrl"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult) error {
	rec := result.Event

	fmt.Fprintf(w, "%s\n", rec.Title)
	fmt.Fprintf(w, "  日時: %s\n", calendar.FormatPeriod(rec.Start, rec.End))
	fmt.Fprintf(w, "  場所: %s\n", rec.Location)
	fmt.Fprintf(w, "  URL:  %s\n", rec.SourceURL)
	fmt.Fprintf(w, "\n%s\n", rec.Description)
	_, err := fmt.Fprintf(w, "\nGoogle Calendar: %s\n", result.CalendarURL)
	return err
}
