package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/libcal-rooms/internal/calendar"
	"github.com/pfrederiksen/libcal-rooms/internal/config"
	"github.com/pfrederiksen/libcal-rooms/internal/libcal"
	"github.com/pfrederiksen/libcal-rooms/internal/logger"
	"github.com/pfrederiksen/libcal-rooms/internal/room"
	"github.com/pfrederiksen/libcal-rooms/internal/scraper"
	"github.com/pfrederiksen/libcal-rooms/internal/storage"
	"github.com/pfrederiksen/libcal-rooms/internal/timezone"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// scrapeOptions holds the scrape command's flags
type scrapeOptions struct {
	outputDir       string
	databaseURL     string
	calendar        bool
	timezone        string
	concurrency     int
	rate            float64
	timeout         time.Duration
	onBuildingError string
	format          string
	logLevel        string
	verbose         bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "libcal-rooms",
		Short: "Scrape library room bookings from LibCal",
		Long: `A CLI tool to scrape room availability for the configured library buildings.
Writes the rooms and their current bookings for the next two weeks as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newBuildingsCmd())

	return cmd
}

func newScrapeCmd() *cobra.Command {
	opts := &scrapeOptions{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape every configured building and save rooms and bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.outputDir, "output-dir", defaults.OutputDir, "Directory for rooms.json and bookings.json")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "Postgres URL; also save to the database when set")
	cmd.Flags().BoolVar(&opts.calendar, "calendar", false, "Also write bookings.ics to the output directory")
	cmd.Flags().StringVar(&opts.timezone, "timezone", defaults.Timezone, "IANA timezone bookings are converted into")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", defaults.Concurrency, "Room pages fetched at once per building")
	cmd.Flags().Float64Var(&opts.rate, "rate", defaults.RatePerSecond, "Maximum portal requests per second")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	cmd.Flags().StringVar(&opts.onBuildingError, "on-building-error", string(defaults.OnBuildingError), "What a failed building does: abort or skip")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose output and debug logging")

	return cmd
}

func newBuildingsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "buildings",
		Short: "List the configured library buildings",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format)
			if err != nil {
				return err
			}
			return WriteBuildings(cmd.OutOrStdout(), config.Default().Buildings, f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")

	return cmd
}

func parseFormat(name string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(name))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", name)
	}
	return format, nil
}

// resolveConfig layers flags that were explicitly set over the environment
func resolveConfig(cmd *cobra.Command, opts *scrapeOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL = opts.databaseURL
	}
	if flags.Changed("calendar") {
		cfg.Calendar = opts.calendar
	}
	if flags.Changed("timezone") {
		cfg.Timezone = opts.timezone
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("rate") {
		cfg.RatePerSecond = opts.rate
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("on-building-error") {
		p, err := config.ParsePolicy(opts.onBuildingError)
		if err != nil {
			return nil, err
		}
		cfg.OnBuildingError = p
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if opts.verbose {
		cfg.LogLevel = string(logger.LevelDebug)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runScrape is the main command logic
func runScrape(cmd *cobra.Command, opts *scrapeOptions) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)
	metrics := logger.NewMetrics()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jsonSink, sink, closeSink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	previous := loadPrevious(jsonSink, log)

	tz, err := timezone.New(cfg.Timezone)
	if err != nil {
		return err
	}

	s := scraper.New(libcal.NewWithOptions(cfg.ClientOptions()), tz, scraper.Options{
		Concurrency: cfg.Concurrency,
		Logger:      log,
		Metrics:     metrics,
	})
	job := scraper.NewJob(s, cfg.Buildings, sink, cfg.OnBuildingError)

	if opts.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Scraping %d buildings into %s\n", len(cfg.Buildings), cfg.OutputDir)
	}

	report, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("running scrape: %w", err)
	}

	result := &OutputResult{Report: report}
	if report.Saved {
		current, err := jsonSink.LoadBookings()
		if err != nil {
			return fmt.Errorf("reading saved bookings: %w", err)
		}
		result.Changes = storage.DiffBookings(previous, current)
	}
	if opts.verbose {
		result.Metrics = metrics.GetSnapshot()
	}

	if err := WriteOutput(cmd.OutOrStdout(), result, format, opts.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}

// openSink builds the JSON sink, adding the calendar feed and Postgres when configured.
// The JSON sink is also returned on its own so the previous run can be read back.
func openSink(ctx context.Context, cfg *config.Config) (*storage.JSONSink, storage.Sink, func(), error) {
	jsonSink, err := storage.NewJSONSink(cfg.OutputDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing output: %w", err)
	}

	sinks := storage.MultiSink{jsonSink}
	if cfg.Calendar {
		sinks = append(sinks, calendar.NewSink(jsonSink.Dir()))
	}

	if cfg.DatabaseURL == "" {
		return jsonSink, sinks, func() {}, nil
	}

	pg, err := storage.NewPostgresSink(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing database: %w", err)
	}
	sinks = append(sinks, pg)

	return jsonSink, sinks, func() { pg.Close() }, nil
}

// loadPrevious returns the bookings saved by the last run, or nil on a first run
func loadPrevious(sink *storage.JSONSink, log *logger.Logger) []*room.RoomBooking {
	previous, err := sink.LoadBookings()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Ignoring unreadable previous bookings", logger.Fields{
				"path": sink.BookingsPath(),
			}, err)
		}
		return nil
	}
	return previous
}

// Execute runs the CLI
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
