package scraper

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestFetchError_Is(t *testing.T) {
	tests := []struct {
		kind             FetchErrorKind
		wantTimeout      bool
		wantNotRendered  bool
		wantKindInString string
	}{
		{Network, false, false, "network"},
		{Status, false, false, "status"},
		{Timeout, true, false, "timeout"},
		{ContentNotRendered, false, true, "content-not-rendered"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("extracting: %w", &FetchError{Kind: tt.kind, URL: testEventURL, Err: errors.New("boom")})

			if got := errors.Is(err, ErrTimeout); got != tt.wantTimeout {
				t.Errorf("errors.Is(ErrTimeout) = %v, want %v", got, tt.wantTimeout)
			}
			if got := errors.Is(err, ErrContentNotRendered); got != tt.wantNotRendered {
				t.Errorf("errors.Is(ErrContentNotRendered) = %v, want %v", got, tt.wantNotRendered)
			}
			if tt.kind != Status && !strings.Contains(err.Error(), tt.wantKindInString) {
				t.Errorf("Error() = %q, should mention %q", err.Error(), tt.wantKindInString)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &FetchError{Kind: Network, URL: testEventURL, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("FetchError should unwrap to its cause")
	}

	status := &FetchError{Kind: Status, URL: testEventURL, StatusCode: 503}
	if !strings.Contains(status.Error(), "503") {
		t.Errorf("Error() = %q, should include the status code", status.Error())
	}
}
