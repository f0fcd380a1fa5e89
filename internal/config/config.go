// Package config holds the compiled-in building list and the runtime knobs of a scrape.
//
// Defaults come from Default. Load overlays LIBCAL_* environment variables, reading a
// .env file first when one is present; the CLI applies its flags last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/pfrederiksen/libcal-rooms/internal/libcal"
	"github.com/pfrederiksen/libcal-rooms/internal/timezone"
)

// EnvPrefix namespaces every environment override
const EnvPrefix = "LIBCAL"

// Policy decides what a failed building does to the rest of the job
type Policy string

const (
	// PolicyAbort stops the job on the first failed building without saving anything
	PolicyAbort Policy = "abort"

	// PolicySkip drops the failed building and saves the rest
	PolicySkip Policy = "skip"
)

// ParsePolicy converts a policy name into a Policy
func ParsePolicy(name string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case PolicyAbort, PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("invalid building error policy: %q (must be 'abort' or 'skip')", name)
	}
}

// Building is one library scraped from the portal
type Building struct {
	Name       string `json:"name"`
	LibcalCode string `json:"libcal_code"`
	BuildingID string `json:"building_id"`
}

// Buildings is the compiled-in list of libraries
var Buildings = []Building{
	{Name: "Main Library", LibcalCode: "6581", BuildingID: "K-F21"},
	{Name: "Law Library", LibcalCode: "6584", BuildingID: "K-E8"},
}

// Portal holds the booking portal endpoints
type Portal struct {
	GridURL string
	RoomURL string
	Referer string
}

// Config is the full configuration of a scrape job
type Config struct {
	Buildings       []Building
	Portal          Portal
	Timezone        string
	OutputDir       string
	DatabaseURL     string
	Calendar        bool
	Concurrency     int
	RatePerSecond   float64
	Timeout         time.Duration
	OnBuildingError Policy
	LogLevel        string
}

// env mirrors the overridable fields; unset variables leave defaults alone
type env struct {
	GridURL         string        `envconfig:"GRID_URL"`
	RoomURL         string        `envconfig:"ROOM_URL"`
	Referer         string        `envconfig:"REFERER"`
	Timezone        string        `envconfig:"TIMEZONE"`
	OutputDir       string        `envconfig:"OUTPUT_DIR"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	Calendar        bool          `envconfig:"CALENDAR"`
	Concurrency     int           `envconfig:"CONCURRENCY"`
	RatePerSecond   float64       `envconfig:"RATE_PER_SECOND"`
	Timeout         time.Duration `envconfig:"TIMEOUT"`
	OnBuildingError string        `envconfig:"ON_BUILDING_ERROR"`
	LogLevel        string        `envconfig:"LOG_LEVEL"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	buildings := make([]Building, len(Buildings))
	copy(buildings, Buildings)

	return &Config{
		Buildings: buildings,
		Portal: Portal{
			GridURL: libcal.GridURL,
			RoomURL: libcal.RoomURL,
			Referer: libcal.PortalURL,
		},
		Timezone:        timezone.Default,
		OutputDir:       ".",
		Concurrency:     4,
		RatePerSecond:   5,
		Timeout:         libcal.Timeout,
		OnBuildingError: PolicyAbort,
		LogLevel:        "info",
	}
}

// Load returns Default overlaid with the environment.
// envFiles are read with godotenv first; missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
	}

	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	cfg := Default()
	if err := cfg.apply(e); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(e env) error {
	if e.GridURL != "" {
		c.Portal.GridURL = e.GridURL
	}
	if e.RoomURL != "" {
		c.Portal.RoomURL = e.RoomURL
	}
	if e.Referer != "" {
		c.Portal.Referer = e.Referer
	}
	if e.Timezone != "" {
		c.Timezone = e.Timezone
	}
	if e.OutputDir != "" {
		c.OutputDir = e.OutputDir
	}
	if e.DatabaseURL != "" {
		c.DatabaseURL = e.DatabaseURL
	}
	if e.Calendar {
		c.Calendar = true
	}
	if e.Concurrency != 0 {
		c.Concurrency = e.Concurrency
	}
	if e.RatePerSecond != 0 {
		c.RatePerSecond = e.RatePerSecond
	}
	if e.Timeout != 0 {
		c.Timeout = e.Timeout
	}
	if e.OnBuildingError != "" {
		p, err := ParsePolicy(e.OnBuildingError)
		if err != nil {
			return err
		}
		c.OnBuildingError = p
	}
	if e.LogLevel != "" {
		c.LogLevel = e.LogLevel
	}
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if len(c.Buildings) == 0 {
		return errors.New("no buildings configured")
	}

	seen := make(map[string]bool)
	for _, b := range c.Buildings {
		if b.BuildingID == "" || b.LibcalCode == "" {
			return fmt.Errorf("building %q: building id and libcal code are required", b.Name)
		}
		if seen[b.BuildingID] {
			return fmt.Errorf("duplicate building id: %s", b.BuildingID)
		}
		seen[b.BuildingID] = true
	}

	if c.Portal.GridURL == "" || c.Portal.RoomURL == "" {
		return errors.New("portal grid and room URLs are required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.RatePerSecond <= 0 {
		return fmt.Errorf("rate must be positive, got %v", c.RatePerSecond)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if _, err := ParsePolicy(string(c.OnBuildingError)); err != nil {
		return err
	}
	if _, err := timezone.New(c.Timezone); err != nil {
		return err
	}

	return nil
}

// ClientOptions returns the portal client options for this configuration
func (c *Config) ClientOptions() libcal.Options {
	return libcal.Options{
		GridURL:       c.Portal.GridURL,
		RoomURL:       c.Portal.RoomURL,
		Referer:       c.Portal.Referer,
		Timeout:       c.Timeout,
		RatePerSecond: c.RatePerSecond,
		Burst:         c.Concurrency,
	}
}
