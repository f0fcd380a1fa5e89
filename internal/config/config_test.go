package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/libcal-rooms/internal/libcal"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error: %v", err)
	}

	want := []Building{
		{Name: "Main Library", LibcalCode: "6581", BuildingID: "K-F21"},
		{Name: "Law Library", LibcalCode: "6584", BuildingID: "K-E8"},
	}
	if len(cfg.Buildings) != len(want) {
		t.Fatalf("got %d buildings, want %d", len(cfg.Buildings), len(want))
	}
	for i, b := range want {
		if cfg.Buildings[i] != b {
			t.Errorf("building %d = %+v, want %+v", i, cfg.Buildings[i], b)
		}
	}

	if cfg.OnBuildingError != PolicyAbort {
		t.Errorf("OnBuildingError = %q, want abort", cfg.OnBuildingError)
	}
	if cfg.Portal.GridURL != libcal.GridURL {
		t.Errorf("GridURL = %q, want %q", cfg.Portal.GridURL, libcal.GridURL)
	}

	// Callers must not be able to mutate the compiled-in list
	cfg.Buildings[0].Name = "changed"
	if Buildings[0].Name != "Main Library" {
		t.Error("Default() shares the compiled-in building slice")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LIBCAL_TIMEZONE", "UTC")
	t.Setenv("LIBCAL_OUTPUT_DIR", "/tmp/out")
	t.Setenv("LIBCAL_CONCURRENCY", "8")
	t.Setenv("LIBCAL_RATE_PER_SECOND", "2.5")
	t.Setenv("LIBCAL_TIMEOUT", "10s")
	t.Setenv("LIBCAL_ON_BUILDING_ERROR", "SKIP")
	t.Setenv("LIBCAL_GRID_URL", "http://localhost/grid")
	t.Setenv("LIBCAL_CALENDAR", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", cfg.Timezone)
	}
	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("OutputDir = %q, want /tmp/out", cfg.OutputDir)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.RatePerSecond != 2.5 {
		t.Errorf("RatePerSecond = %v, want 2.5", cfg.RatePerSecond)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.OnBuildingError != PolicySkip {
		t.Errorf("OnBuildingError = %q, want skip", cfg.OnBuildingError)
	}
	if cfg.Portal.GridURL != "http://localhost/grid" {
		t.Errorf("GridURL = %q", cfg.Portal.GridURL)
	}
	if cfg.Portal.RoomURL != libcal.RoomURL {
		t.Errorf("RoomURL = %q, want default", cfg.Portal.RoomURL)
	}
	if !cfg.Calendar {
		t.Error("Calendar = false, want true")
	}

}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "LIBCAL_DATABASE_URL=postgres://localhost/rooms?sslmode=disable\nLIBCAL_LOG_LEVEL=debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("LIBCAL_DATABASE_URL")
		os.Unsetenv("LIBCAL_LOG_LEVEL")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://localhost/rooms?sslmode=disable" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("LIBCAL_ON_BUILDING_ERROR", "retry")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Load() expected error for invalid policy, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no buildings",
			mutate:  func(c *Config) { c.Buildings = nil },
			wantErr: "no buildings",
		},
		{
			name: "duplicate building",
			mutate: func(c *Config) {
				c.Buildings = append(c.Buildings, Building{Name: "Copy", LibcalCode: "1", BuildingID: "K-E8"})
			},
			wantErr: "duplicate building id",
		},
		{
			name:    "missing code",
			mutate:  func(c *Config) { c.Buildings[0].LibcalCode = "" },
			wantErr: "required",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Concurrency = 0 },
			wantErr: "concurrency",
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.RatePerSecond = -1 },
			wantErr: "rate",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: "timeout",
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.OnBuildingError = "ignore" },
			wantErr: "policy",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Timezone = "Nowhere/Special" },
			wantErr: "timezone",
		},
		{
			name:    "missing grid url",
			mutate:  func(c *Config) { c.Portal.GridURL = "" },
			wantErr: "URLs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"abort", PolicyAbort, false},
		{" Skip ", PolicySkip, false},
		{"continue", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClientOptions(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 6
	cfg.RatePerSecond = 3

	opts := cfg.ClientOptions()
	if opts.Burst != 6 || opts.RatePerSecond != 3 {
		t.Errorf("ClientOptions() = %+v", opts)
	}
	if opts.GridURL != cfg.Portal.GridURL || opts.RoomURL != cfg.Portal.RoomURL || opts.Referer != cfg.Portal.Referer {
		t.Errorf("ClientOptions() endpoints = %+v", opts)
	}
}
