package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pfrederiksen/fourscal/internal/calendar"
	"github.com/pfrederiksen/fourscal/internal/event"
	"github.com/pfrederiksen/fourscal/internal/logger"
	"github.com/pfrederiksen/fourscal/internal/scraper"
)

const (
	fixturePage = "../scraper/testdata/event_page.html"
	fixtureURL  = "https://4s.link/ja/events/a1b2c3"
)

// run executes the root command and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("FOURSCAL_CONFIG", "")
	previous := logger.Default()
	t.Cleanup(func() { logger.SetDefault(previous) })

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestExtract_JSON(t *testing.T) {
	stdout, _, err := run(t, "extract", "--format", "json", "--html-file", fixturePage, fixtureURL)
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}

	var out struct {
		Event struct {
			Title       string `json:"title"`
			StartDate   string `json:"startDate"`
			EndDate     string `json:"endDate"`
			Location    string `json:"location"`
			Timezone    string `json:"timezone"`
			OriginalURL string `json:"originalUrl"`
		} `json:"event"`
		CalendarURL string `json:"calendarUrl"`
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}

	if out.Event.Title != "羽田イノベーションミートアップ Vol.3" {
		t.Errorf("title = %q", out.Event.Title)
	}
	if out.Event.StartDate != "2025-06-27T16:00:00+09:00" || out.Event.EndDate != "2025-06-27T17:00:00+09:00" {
		t.Errorf("dates = %s - %s", out.Event.StartDate, out.Event.EndDate)
	}
	if out.Event.OriginalURL != fixtureURL || out.Event.Timezone != event.TimeZoneID {
		t.Errorf("event = %+v", out.Event)
	}
	if !strings.HasPrefix(out.CalendarURL, calendar.GoogleRenderURL+"?") {
		t.Errorf("calendarUrl = %q", out.CalendarURL)
	}
}

func TestExtract_Text(t *testing.T) {
	stdout, _, err := run(t, "extract", "--html-file", fixturePage, fixtureURL)
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}

	for _, want := range []string{
		"羽田イノベーションミートアップ Vol.3",
		"日時: 2025年6月27日 16:00 - 17:00",
		"場所: 羽田イノベーションシティ Zone K 2階",
		"詳細: " + fixtureURL,
		"Google Calendar: https://calendar.google.com/calendar/render?",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestLink(t *testing.T) {
	stdout, _, err := run(t, "link", "--html-file", fixturePage, fixtureURL)
	if err != nil {
		t.Fatalf("link error = %v", err)
	}

	rec, err := calendar.ParseGoogleCalendarURL(strings.TrimSpace(stdout))
	if err != nil {
		t.Fatalf("output is not a calendar link: %v", err)
	}
	if rec.Title != "羽田イノベーションミートアップ Vol.3" {
		t.Errorf("link title = %q", rec.Title)
	}
}

func TestICS_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.ics")

	stdout, _, err := run(t, "ics", "-o", path, "--html-file", fixturePage, fixtureURL)
	if err != nil {
		t.Fatalf("ics error = %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want nothing when writing a file", stdout)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading ics: %v", err)
	}
	if !strings.Contains(string(data), "DTSTART:20250627T070000Z") {
		t.Errorf("ics missing start:\n%s", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %v, want 0600", perm)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"rejected url", []string{"extract", "--html-file", fixturePage, "https://example.com/e"}, ExitInput},
		{"bad format", []string{"extract", "--format", "xml", "--html-file", fixturePage, fixtureURL}, ExitInput},
		{"bad renderer flag", []string{"--renderer", "firefox", "extract", fixtureURL}, ExitInput},
		{"missing html file", []string{"extract", "--html-file", "no-such-file.html", fixtureURL}, ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := ExitCode(err); got != tt.wantCode {
				t.Errorf("ExitCode(%v) = %d, want %d", err, got, tt.wantCode)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrapped: %w", &scraper.FetchError{Kind: scraper.Timeout, URL: fixtureURL, Err: errors.New("deadline")}), scraper.UserMessage},
		{&event.DateParseError{Text: "TBA"}, "イベントの日時を特定できませんでした"},
		{&scraper.InputError{Reason: "URLが提供されていません"}, "URLが提供されていません"},
	}

	for _, tt := range tests {
		if got := userMessage(tt.err); got != tt.want {
			t.Errorf("userMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
	if ExitCode(nil) != ExitSuccess {
		t.Error("ExitCode(nil) should be ExitSuccess")
	}
}
