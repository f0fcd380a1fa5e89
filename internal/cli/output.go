package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pfrederiksen/libcal-rooms/internal/config"
	"github.com/pfrederiksen/libcal-rooms/internal/scraper"
	"github.com/pfrederiksen/libcal-rooms/internal/storage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	*scraper.Report
	Changes *storage.BookingDiff   `json:"changes,omitempty"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	fmt.Fprintf(w, "Run %s\n", result.RunID)

	for _, b := range result.Buildings {
		fmt.Fprintf(w, "\n%s (%s): %d rooms, %d bookings\n", b.Name, b.BuildingID, b.Rooms, b.Bookings)
		if verbose || b.Failed > 0 {
			fmt.Fprintf(w, "  items: %d, not rooms: %d, failed: %d\n", b.Items, b.Rejected, b.Failed)
		}
		if verbose {
			fmt.Fprintf(w, "  elapsed: %s\n", b.Elapsed.Round(time.Millisecond))
		}
	}

	for _, f := range result.Failed {
		fmt.Fprintf(w, "\nFAILED %s: %s\n", f.BuildingID, f.Error)
	}

	fmt.Fprintf(w, "\nTotal: %d rooms, %d bookings across %d buildings in %s\n",
		result.Rooms, result.Bookings, len(result.Buildings), result.Elapsed.Round(time.Millisecond))

	if result.Changes != nil {
		fmt.Fprintf(w, "Changes since last run: %d new, %d gone\n", len(result.Changes.Added), len(result.Changes.Removed))
		if verbose {
			for _, b := range result.Changes.Added {
				fmt.Fprintf(w, "  + %s %s - %s\n", b.RoomID, b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339))
			}
			for _, b := range result.Changes.Removed {
				fmt.Fprintf(w, "  - %s %s - %s\n", b.RoomID, b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339))
			}
		}
	}

	if verbose && result.Metrics != nil {
		if counters, ok := result.Metrics["counters"].(map[string]int64); ok && len(counters) > 0 {
			names := make([]string, 0, len(counters))
			for name := range counters {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Fprintln(w, "\nCounters:")
			for _, name := range names {
				fmt.Fprintf(w, "  %s: %d\n", name, counters[name])
			}
		}
	}

	return nil
}

// WriteBuildings lists buildings in the specified format
func WriteBuildings(w io.Writer, buildings []config.Building, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, buildings)
	}

	for _, b := range buildings {
		fmt.Fprintf(w, "%-8s %-6s %s\n", b.BuildingID, b.LibcalCode, b.Name)
	}
	return nil
}
