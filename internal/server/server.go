// Package server exposes event extraction over HTTP.
//
// Routes:
//
//	POST /api/parse-event  {"url": "..."} -> {"success": true, "event": {...}, "calendarUrl": "..."}
//	GET  /healthz
//	GET  /metrics          Prometheus exposition
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pfrederiksen/fourscal/internal/calendar"
	"github.com/pfrederiksen/fourscal/internal/event"
	"github.com/pfrederiksen/fourscal/internal/logger"
	"github.com/pfrederiksen/fourscal/internal/scraper"
)

// User-facing error messages.
const (
	msgBadRequest       = "リクエストの形式が正しくありません"
	msgMissingURL       = "URLが提供されていません"
	msgDateNotFound     = "イベントの日時を特定できませんでした"
	msgMethodNotAllowed = "Method not allowed"
)

const maxRequestBody = 1 << 20

// Extractor turns an event page URL into a record.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (event.Record, error)
}

type parseRequest struct {
	URL string `json:"url"`
}

type parseResponse struct {
	Success     bool          `json:"success"`
	Event       *event.Record `json:"event,omitempty"`
	CalendarURL string        `json:"calendarUrl,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Server serves the extraction API.
type Server struct {
	extractor      Extractor
	gatherer       prometheus.Gatherer
	requestTimeout time.Duration
	log            *logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves the given registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRequestTimeout bounds each extraction. Zero means no extra bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithLogger sets the request logger. The default is logger.Default().
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// New creates a Server.
func New(ex Extractor, opts ...Option) *Server {
	s := &Server{
		extractor: ex,
		gatherer:  prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/parse-event", s.handleParseEvent)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", logger.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.log.Info("Server shutting down", nil)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleParseEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, parseResponse{Error: msgMethodNotAllowed})
		return
	}

	var req parseRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, parseResponse{Error: msgBadRequest})
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, parseResponse{Error: msgMissingURL})
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	rec, err := s.extractor.Extract(ctx, req.URL)
	if err != nil {
		status, message := classify(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("Event extraction failed", logger.Fields{"url": req.URL, "status": status}, err)
		}
		writeJSON(w, status, parseResponse{Error: message})
		return
	}

	writeJSON(w, http.StatusOK, parseResponse{
		Success:     true,
		Event:       &rec,
		CalendarURL: calendar.GoogleCalendarURL(rec),
	})
}

// classify maps an extraction error to a status code and a message that is
// safe to show to users.
func classify(err error) (int, string) {
	var inputErr *scraper.InputError
	var dateErr *event.DateParseError
	var fetchErr *scraper.FetchError

	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, inputErr.Reason
	case errors.As(err, &dateErr):
		return http.StatusUnprocessableEntity, msgDateNotFound
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, scraper.UserMessage
	default:
		return http.StatusInternalServerError, scraper.UserMessage
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
