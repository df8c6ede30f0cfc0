package calendar

import (
	"testing"
	"time"

	"github.com/pfrederiksen/fourscal/internal/event"
)

func TestFormatPeriod(t *testing.T) {
	jst := event.Location()

	tests := []struct {
		name       string
		start, end time.Time
		want       string
	}{
		{
			name:  "same day",
			start: time.Date(2025, 6, 27, 16, 0, 0, 0, jst),
			end:   time.Date(2025, 6, 27, 17, 0, 0, 0, jst),
			want:  "2025年6月27日 16:00 - 17:00",
		},
		{
			name:  "cross day",
			start: time.Date(2025, 7, 2, 10, 0, 0, 0, jst),
			end:   time.Date(2025, 7, 4, 17, 0, 0, 0, jst),
			want:  "2025年7月2日 10:00 - 2025年7月4日 17:00",
		},
		{
			name:  "UTC input shown in event zone",
			start: time.Date(2025, 6, 27, 7, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 6, 27, 8, 5, 0, 0, time.UTC),
			want:  "2025年6月27日 16:00 - 17:05",
		},
		{
			name:  "same UTC day but different event day",
			start: time.Date(2025, 6, 27, 14, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 6, 27, 16, 0, 0, 0, time.UTC),
			want:  "2025年6月27日 23:00 - 2025年6月28日 01:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPeriod(tt.start, tt.end); got != tt.want {
				t.Errorf("FormatPeriod() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDateTime(t *testing.T) {
	got := FormatDateTime(time.Date(2026, 1, 5, 0, 3, 0, 0, time.UTC))
	if want := "2026年1月5日 09:03"; got != want {
		t.Errorf("FormatDateTime() = %q, want %q", got, want)
	}
}
