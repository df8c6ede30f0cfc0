package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pfrederiksen/fourscal/internal/event"
	"github.com/pfrederiksen/fourscal/internal/logger"
	"github.com/pfrederiksen/fourscal/internal/metrics"
)

// Scraper turns event page URLs into event records. It holds only
// configuration, so one Scraper can serve concurrent Extract calls.
type Scraper struct {
	fetcher      Fetcher
	renderer     string
	interp       *event.Interpreter
	limiter      *rate.Limiter
	allowedHosts []string
	metrics      *metrics.Recorder
	log          *logger.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithInterpreter replaces the default date interpreter.
func WithInterpreter(in *event.Interpreter) Option {
	return func(s *Scraper) {
		s.interp = in
	}
}

// WithLimiter bounds how often the upstream site is fetched.
func WithLimiter(l *rate.Limiter) Option {
	return func(s *Scraper) {
		s.limiter = l
	}
}

// WithAllowedHosts overrides the hosts ValidateURL accepts.
func WithAllowedHosts(hosts ...string) Option {
	return func(s *Scraper) {
		s.allowedHosts = hosts
	}
}

// WithMetrics records extraction results and fetch timings on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Scraper) {
		s.metrics = r
	}
}

// WithLogger sets the logger. The default is logger.Default().
func WithLogger(l *logger.Logger) Option {
	return func(s *Scraper) {
		s.log = l
	}
}

// WithRendererName sets the label used for fetch timings and logs.
func WithRendererName(name string) Option {
	return func(s *Scraper) {
		s.renderer = name
	}
}

// New creates a Scraper that retrieves pages with f.
func New(f Fetcher, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:  f,
		renderer: "custom",
	}
	switch f.(type) {
	case *RenderFetcher:
		s.renderer = "chrome"
	case *HTTPFetcher:
		s.renderer = "http"
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interp == nil {
		s.interp = event.NewInterpreter(nil)
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	return s
}

// Extract validates rawURL, fetches the page and parses the event on it.
func (s *Scraper) Extract(ctx context.Context, rawURL string) (event.Record, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := ValidateURL(rawURL, s.allowedHosts...); err != nil {
		s.metrics.Extraction(metrics.ResultInputError)
		return event.Record{}, err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.metrics.Extraction(metrics.ResultFetchError)
			return event.Record{}, &FetchError{Kind: classifyTransportError(err), URL: rawURL, Err: fmt.Errorf("waiting for rate limiter: %w", err)}
		}
	}

	started := time.Now()
	html, err := s.fetcher.Fetch(ctx, rawURL)
	s.metrics.Fetch(s.renderer, time.Since(started))
	if err != nil {
		s.metrics.Extraction(metrics.ResultFetchError)
		s.log.Error("Fetch failed", logger.Fields{
			"url":      rawURL,
			"renderer": s.renderer,
			"kind":     fetchKind(err),
		}, err)
		return event.Record{}, err
	}

	s.log.Debug("Page fetched", logger.Fields{
		"url":      rawURL,
		"renderer": s.renderer,
		"bytes":    len(html),
		"duration": time.Since(started).String(),
	})

	return s.Parse(strings.NewReader(html), rawURL)
}

// Parse extracts an event from already fetched markup. sourceURL is used for
// the citation line and is not validated.
func (s *Scraper) Parse(r io.Reader, sourceURL string) (event.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		s.metrics.Extraction(metrics.ResultParseError)
		return event.Record{}, fmt.Errorf("parsing HTML: %w", err)
	}

	var f event.Fields
	var ok bool

	if f.Title, ok = extractTitle(doc); !ok {
		s.fallback("title", sourceURL)
	}
	if f.Location, ok = extractLocation(doc); !ok {
		s.fallback("location", sourceURL)
	}
	if f.Description, ok = extractDescription(doc, sourceURL); !ok {
		s.fallback("description", sourceURL)
	}

	dateText, ok := extractDateText(doc)
	if !ok {
		s.log.Debug("No date text found", logger.Fields{"url": sourceURL})
	}
	f.Span, ok, err = s.interp.Interpret(dateText)
	if err != nil {
		s.metrics.Extraction(metrics.ResultDateError)
		s.log.Warn("Could not interpret event date", logger.Fields{
			"url":       sourceURL,
			"date_text": dateText,
		})
		return event.Record{}, err
	}
	if !ok {
		s.fallback("date", sourceURL)
	}

	rec := event.Assemble(f, sourceURL)
	s.metrics.Extraction(metrics.ResultSuccess)
	s.log.Info("Event extracted", logger.Fields{
		"url":   sourceURL,
		"title": rec.Title,
		"start": rec.Start.Format(time.RFC3339),
	})
	return rec, nil
}

func (s *Scraper) fallback(field, sourceURL string) {
	s.metrics.Fallback(field)
	s.log.Debug("Field fell back to default", logger.Fields{
		"url":   sourceURL,
		"field": field,
	})
}

func fetchKind(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "unknown"
}
