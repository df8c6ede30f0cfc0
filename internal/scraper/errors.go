package scraper

import (
	"errors"
	"fmt"
)

// InputError reports a URL rejected before any fetching happens.
type InputError struct {
	URL    string
	Reason string
}

func (e *InputError) Error() string {
	return e.Reason
}

// FetchErrorKind classifies why a page could not be retrieved.
type FetchErrorKind int

const (
	// Network covers transport failures and browser crashes.
	Network FetchErrorKind = iota
	// Status means the server answered with a non-success status.
	Status
	// Timeout means the page did not settle in time.
	Timeout
	// ContentNotRendered means the title marker never appeared.
	ContentNotRendered
)

func (k FetchErrorKind) String() string {
	switch k {
	case Network:
		return "network"
	case Status:
		return "status"
	case Timeout:
		return "timeout"
	case ContentNotRendered:
		return "content-not-rendered"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels matched by FetchError.Is.
var (
	ErrTimeout            = errors.New("page did not settle before the timeout")
	ErrContentNotRendered = errors.New("event content was not rendered")
)

// FetchError reports a failed page retrieval. Its message is meant for
// operators; end users should only see UserMessage.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

// UserMessage is the text shown to end users for any fetch failure.
const UserMessage = "イベント情報の取得に失敗しました"

func (e *FetchError) Error() string {
	switch {
	case e.Kind == Status:
		return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetching %s (%s): %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetching %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == Timeout
	case ErrContentNotRendered:
		return e.Kind == ContentNotRendered
	}
	return false
}
