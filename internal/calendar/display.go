package calendar

import (
	"fmt"
	"time"

	"github.com/pfrederiksen/fourscal/internal/event"
)

// FormatDateTime renders t in the event zone as "2025年6月27日 16:00".
func FormatDateTime(t time.Time) string {
	t = t.In(event.Location())
	return fmt.Sprintf("%s %s", formatDate(t), t.Format("15:04"))
}

// FormatPeriod renders a span for display. Same-day spans show the date once:
//
//	2025年6月27日 16:00 - 17:00
//	2025年7月2日 10:00 - 2025年7月4日 17:00
func FormatPeriod(start, end time.Time) string {
	loc := event.Location()
	start, end = start.In(loc), end.In(loc)

	if sameDay(start, end) {
		return fmt.Sprintf("%s %s - %s", formatDate(start), start.Format("15:04"), end.Format("15:04"))
	}
	return FormatDateTime(start) + " - " + FormatDateTime(end)
}

func formatDate(t time.Time) string {
	return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
