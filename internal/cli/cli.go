package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/fourscal/internal/calendar"
	"github.com/pfrederiksen/fourscal/internal/config"
	"github.com/pfrederiksen/fourscal/internal/event"
	"github.com/pfrederiksen/fourscal/internal/logger"
	"github.com/pfrederiksen/fourscal/internal/metrics"
	"github.com/pfrederiksen/fourscal/internal/scraper"
	"github.com/pfrederiksen/fourscal/internal/server"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	// ExitInput is returned for rejected URLs and bad flags.
	ExitInput = 2
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	renderer   string
	envFile    string

	cfg *config.Config
	log *logger.Logger
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "fourscal",
		Short: "Turn 4s.link event pages into calendar entries",
		Long: `fourscal reads a 4s.link event page, extracts the event's title, time,
place and description, and renders it as a Google Calendar link, an .ics
file or JSON. It can also serve the same extraction over HTTP.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", config.Path(), "Path to a YAML config file (or env: FOURSCAL_CONFIG)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&a.renderer, "renderer", "", "Page renderer: chrome or http")
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Optional .env file to load")

	cmd.AddCommand(
		newExtractCmd(a),
		newLinkCmd(a),
		newICSCmd(a),
		newServeCmd(a),
	)

	return cmd
}

// setup loads configuration, applies flag overrides and installs the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.renderer != "" {
		cfg.Renderer = strings.ToLower(a.renderer)
	}
	if err := cfg.Validate(); err != nil {
		return &usageError{err: err}
	}

	a.cfg = cfg
	// stdout carries results only
	a.log = logger.New(cfg.Level(), cmd.ErrOrStderr())
	logger.SetDefault(a.log)
	return nil
}

// newScraper builds a Scraper for the configured renderer.
func (a *app) newScraper(rec *metrics.Recorder) *scraper.Scraper {
	cfg := a.cfg

	var fetcher scraper.Fetcher
	switch cfg.Renderer {
	case config.RendererHTTP:
		fetcher = scraper.NewHTTPFetcher(cfg.HTTPTimeout, cfg.UserAgent)
	default:
		fetcher = scraper.NewRenderFetcher(scraper.RenderOptions{
			ExecPath:      cfg.ChromePath,
			UserAgent:     cfg.UserAgent,
			SettleTimeout: cfg.SettleTimeout,
			MarkerTimeout: cfg.MarkerTimeout,
		})
	}

	opts := []scraper.Option{
		scraper.WithInterpreter(event.NewInterpreter(nil, event.WithNoMatchPolicy(cfg.NoMatchPolicy()))),
		scraper.WithAllowedHosts(cfg.AllowedHosts...),
		scraper.WithRendererName(cfg.Renderer),
		scraper.WithMetrics(rec),
		scraper.WithLogger(a.log),
	}
	if limiter := cfg.Limiter(); limiter != nil {
		opts = append(opts, scraper.WithLimiter(limiter))
	}
	return scraper.New(fetcher, opts...)
}

// record fetches the event at rawURL, or parses htmlFile when one is given.
func (a *app) record(ctx context.Context, rawURL, htmlFile string) (event.Record, error) {
	s := a.newScraper(nil)
	if htmlFile == "" {
		return s.Extract(ctx, rawURL)
	}

	rawURL = strings.TrimSpace(rawURL)
	if err := scraper.ValidateURL(rawURL, a.cfg.AllowedHosts...); err != nil {
		return event.Record{}, err
	}
	f, err := os.Open(htmlFile)
	if err != nil {
		return event.Record{}, fmt.Errorf("opening HTML file: %w", err)
	}
	defer f.Close()
	return s.Parse(f, rawURL)
}

func newExtractCmd(a *app) *cobra.Command {
	var format, htmlFile string

	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract the event on a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat := OutputFormat(strings.ToLower(format))
			if outFormat != FormatText && outFormat != FormatJSON {
				return &usageError{err: fmt.Errorf("invalid format: %s (must be 'text' or 'json')", format)}
			}

			rec, err := a.record(cmd.Context(), args[0], htmlFile)
			if err != nil {
				return err
			}

			result := &OutputResult{
				Event:       rec,
				CalendarURL: calendar.GoogleCalendarURL(rec),
			}
			if err := WriteOutput(cmd.OutOrStdout(), result, outFormat); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&htmlFile, "html-file", "", "Parse a saved page instead of fetching the URL")
	return cmd
}

func newLinkCmd(a *app) *cobra.Command {
	var htmlFile string

	cmd := &cobra.Command{
		Use:   "link <url>",
		Short: "Print a Google Calendar link for the event on a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.record(cmd.Context(), args[0], htmlFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), calendar.GoogleCalendarURL(rec))
			return nil
		},
	}

	cmd.Flags().StringVar(&htmlFile, "html-file", "", "Parse a saved page instead of fetching the URL")
	return cmd
}

func newICSCmd(a *app) *cobra.Command {
	var output, htmlFile string

	cmd := &cobra.Command{
		Use:   "ics <url>",
		Short: "Write an iCalendar file for the event on a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.record(cmd.Context(), args[0], htmlFile)
			if err != nil {
				return err
			}

			ics := calendar.GenerateICS(rec)
			if output == "" || output == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), ics)
				return err
			}

			// Write to file (owner read/write only)
			if err := os.WriteFile(output, []byte(ics), 0600); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			a.log.Info("Calendar file written", logger.Fields{"path": output, "title": rec.Title})
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&htmlFile, "html-file", "", "Parse a saved page instead of fetching the URL")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			rec := metrics.New(reg)

			srv := server.New(a.newScraper(rec),
				server.WithGatherer(reg),
				server.WithRequestTimeout(a.cfg.Server.RequestTimeout),
				server.WithLogger(a.log),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

// usageError marks errors caused by bad flags or configuration values.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// ExitCode maps an error returned by the root command to a process exit code.
func ExitCode(err error) int {
	var inputErr *scraper.InputError
	var usageErr *usageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &inputErr), errors.As(err, &usageErr):
		return ExitInput
	default:
		return ExitError
	}
}

// userMessage returns the text printed for err. Fetch failures print the
// generic message; details are already in the log.
func userMessage(err error) string {
	var fetchErr *scraper.FetchError
	var dateErr *event.DateParseError
	switch {
	case errors.As(err, &fetchErr):
		return scraper.UserMessage
	case errors.As(err, &dateErr):
		return "イベントの日時を特定できませんでした"
	default:
		return err.Error()
	}
}

// Execute runs the CLI
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
		os.Exit(ExitCode(err))
	}
}
