package timezone

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// Default is the zone the library buildings operate in
const Default = "Australia/Sydney"

// civilLayouts are zone-less timestamp formats interpreted in the target zone
var civilLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// Normalizer converts timestamps into a fixed target timezone
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

// New creates a Normalizer for the named IANA zone.
// An empty name selects Default.
func New(name string) (*Normalizer, error) {
	if name == "" {
		name = Default
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}

	return &Normalizer{
		loc: loc,
		now: time.Now,
	}, nil
}

// NewWithClock creates a Normalizer whose Now reads from clock
func NewWithClock(name string, clock func() time.Time) (*Normalizer, error) {
	n, err := New(name)
	if err != nil {
		return nil, err
	}
	n.now = clock
	return n, nil
}

// Location returns the target zone
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Now returns the current time in the target zone
func (n *Normalizer) Now() time.Time {
	return n.now().In(n.loc)
}

// ToLocal converts an instant into the target zone
func (n *Normalizer) ToLocal(t time.Time) time.Time {
	return t.In(n.loc)
}

// Normalize parses a raw portal timestamp into the target zone.
// RFC3339 values keep their instant; zone-less values are read as civil time in the zone.
func (n *Normalizer) Normalize(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(n.loc), nil
	}

	for _, layout := range civilLayouts {
		if t, err := time.ParseInLocation(layout, value, n.loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}
