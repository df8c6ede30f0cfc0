package scraper

import (
	"net/url"
	"strings"

	"github.com/pfrederiksen/fourscal/internal/event"
)

// Messages returned in InputError.Reason.
const (
	msgMissingURL = "URLが提供されていません"
	msgInvalidURL = "有効な4s.linkのURLを入力してください"
)

// ValidateURL checks that rawURL is an absolute http(s) URL on one of the
// allowed hosts or their subdomains. With no hosts given, event.SourceHost is used.
func ValidateURL(rawURL string, allowedHosts ...string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return &InputError{URL: rawURL, Reason: msgMissingURL}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &InputError{URL: rawURL, Reason: msgInvalidURL}
	}

	if len(allowedHosts) == 0 {
		allowedHosts = []string{event.SourceHost}
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(allowed)
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}

	return &InputError{URL: rawURL, Reason: msgInvalidURL}
}
