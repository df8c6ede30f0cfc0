package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// chromePath returns a local Chrome binary or skips the test.
func chromePath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome binary found")
	return ""
}

const renderedPage = `<!DOCTYPE html>
<html><head><title>loading</title></head>
<body><div id="app"></div>
<script>
setTimeout(function () {
  var h = document.createElement("h1");
  h.className = "EventDetailOverviewScreen_title__Xy12z";
  h.textContent = "Rendered Event";
  document.getElementById("app").appendChild(h);
}, 100);
</script>
</body></html>`

const staticPage = `<!DOCTYPE html><html><body><p>never renders</p></body></html>`

func TestRenderFetcher_Fetch(t *testing.T) {
	exe := chromePath(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/rendered", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(renderedPage))
	})
	mux.HandleFunc("/static", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(staticPage))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewRenderFetcher(RenderOptions{
		ExecPath:      exe,
		SettleTimeout: 20 * time.Second,
		MarkerTimeout: 2 * time.Second,
	})

	t.Run("waits for client-side render", func(t *testing.T) {
		html, err := f.Fetch(context.Background(), server.URL+"/rendered")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !strings.Contains(html, "Rendered Event") {
			t.Errorf("rendered DOM is missing the title: %s", html)
		}
	})

	t.Run("marker never appears", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), server.URL+"/static")
		if !errors.Is(err, ErrContentNotRendered) {
			t.Errorf("Fetch() error = %v, want ErrContentNotRendered", err)
		}
	})

	t.Run("error status", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), server.URL+"/gone")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) || fetchErr.Kind != Status || fetchErr.StatusCode != http.StatusGone {
			t.Errorf("Fetch() error = %v, want status 410", err)
		}
	})
}

func TestNewRenderFetcher_Defaults(t *testing.T) {
	f := NewRenderFetcher(RenderOptions{})

	if f.opts.Marker != TitleMarker {
		t.Errorf("Marker = %q, want %q", f.opts.Marker, TitleMarker)
	}
	if f.opts.SettleTimeout != SettleTimeout || f.opts.MarkerTimeout != MarkerTimeout {
		t.Errorf("timeouts = %v/%v, want %v/%v", f.opts.SettleTimeout, f.opts.MarkerTimeout, SettleTimeout, MarkerTimeout)
	}
	if f.opts.UserAgent != UserAgent {
		t.Errorf("UserAgent = %q, want default", f.opts.UserAgent)
	}
}
