package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pfrederiksen/fourscal/internal/calendar"
	"github.com/pfrederiksen/fourscal/internal/event"
)

func main() {
	// Create a sample event
	loc := event.Location()
	rec := event.Assemble(event.Fields{
		Title:       "羽田イノベーションミートアップ Vol.3",
		Location:    "羽田イノベーションシティ Zone K 2階",
		Description: "スタートアップと大企業をつなぐミートアップです。\n参加費は無料です。",
		Span: event.Span{
			Start: time.Date(2025, 6, 27, 16, 0, 0, 0, loc),
			End:   time.Date(2025, 6, 27, 17, 0, 0, 0, loc),
		},
	}, "https://4s.link/ja/events/sample")

	// Generate .ics file
	icsContent := calendar.GenerateICS(rec)

	// Write to file (owner read/write only for security)
	filename := "test-fourscal-event.ics"
	if err := os.WriteFile(filename, []byte(icsContent), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Generated calendar file: %s\n\n", filename)
	fmt.Println("Test it by:")
	fmt.Println("1. Open the .ics file with your calendar app (double-click)")
	fmt.Println("2. Or open the Google Calendar link below in a browser")
	fmt.Printf("\n%s\n%s\n", calendar.FormatPeriod(rec.Start, rec.End), calendar.GoogleCalendarURL(rec))
	fmt.Println("\nFile contents preview:")
	fmt.Println("---")
	fmt.Println(icsContent)
}
