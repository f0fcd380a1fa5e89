package libcal

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pfrederiksen/libcal-rooms/internal/room"
)

var (
	// ErrMalformedHeading is returned when a heading doesn't follow the name/location/capacity layout
	ErrMalformedHeading = errors.New("malformed room heading")

	// Runs of two or more spaces separate heading fields; pages pad with &nbsp; too
	fieldSeparator = regexp.MustCompile(`[\s\x{00A0}]{2,}`)

	leadingDigits = regexp.MustCompile(`^\d+`)
)

const (
	roomMarker = "RM"
	podMarker  = "POD"
)

// OutcomeKind classifies the result of scraping one room
type OutcomeKind int

const (
	OutcomeFailed OutcomeKind = iota
	OutcomeRoom
	OutcomeRejected
)

// String returns the outcome name used in logs
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRoom:
		return "room"
	case OutcomeRejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Outcome is the tagged result of scraping one room.
// Room is set only for OutcomeRoom and Err only for OutcomeFailed.
type Outcome struct {
	Kind OutcomeKind
	Room *room.Room
	Err  error
}

func roomOutcome(r *room.Room) Outcome {
	return Outcome{Kind: OutcomeRoom, Room: r}
}

func rejected() Outcome {
	return Outcome{Kind: OutcomeRejected}
}

func failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// Heading holds the three raw fields of a room page heading
type Heading struct {
	Name     string
	Location string
	Capacity string
}

// SplitHeading splits heading text into name, location and capacity fields
func SplitHeading(text string) (Heading, error) {
	fields := fieldSeparator.Split(strings.TrimSpace(text), -1)
	if len(fields) != 3 {
		return Heading{}, fmt.Errorf("%w: want 3 fields, got %d in %q", ErrMalformedHeading, len(fields), text)
	}
	return Heading{Name: fields[0], Location: fields[1], Capacity: fields[2]}, nil
}

// ParseHeading turns a room page heading into a Room for buildingID.
// Entities whose name has no RM or POD token are rejected rather than failed.
//
// Example: "LAW RM 101     (Law Library: Level 2)     Capacity: 6" in K-E8
// yields room K-E8-101 named "Law Library LAW RM 101".
func ParseHeading(text, buildingID string) Outcome {
	h, err := SplitHeading(text)
	if err != nil {
		return failed(err)
	}

	tokens := strings.Fields(h.Name)
	marker := markerIndex(tokens)
	if marker < 0 {
		return rejected()
	}

	capacity, err := parseCapacity(h.Capacity)
	if err != nil {
		return failed(err)
	}

	if marker+1 >= len(tokens) {
		return failed(fmt.Errorf("%w: no room number after %s in %q", ErrMalformedHeading, tokens[marker], h.Name))
	}
	roomNumber := tokens[marker+1]
	if tokens[marker] == podMarker {
		// Pods are numbered 1..8 per library, so keep them apart from room numbers
		roomNumber = podMarker + roomNumber
	}

	libraryName, err := parseLibraryName(h.Location)
	if err != nil {
		return failed(err)
	}

	return roomOutcome(room.New(buildingID, roomNumber, libraryName, h.Name, capacity))
}

// markerIndex returns the index of the first RM or POD token, or -1
func markerIndex(tokens []string) int {
	for i, tok := range tokens {
		if tok == roomMarker || tok == podMarker {
			return i
		}
	}
	return -1
}

// parseCapacity reads the integer after ": " in e.g. "Capacity: 6"
func parseCapacity(field string) (int, error) {
	_, value, ok := strings.Cut(field, ": ")
	if !ok {
		return 0, fmt.Errorf("%w: no capacity in %q", ErrMalformedHeading, field)
	}

	digits := leadingDigits.FindString(strings.TrimSpace(value))
	if digits == "" {
		return 0, fmt.Errorf("%w: non-numeric capacity %q", ErrMalformedHeading, value)
	}

	capacity, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: capacity %q: %v", ErrMalformedHeading, digits, err)
	}
	if capacity <= 0 {
		return 0, fmt.Errorf("%w: capacity must be positive, got %d", ErrMalformedHeading, capacity)
	}

	return capacity, nil
}

// parseLibraryName reads "Law Library" out of "(Law Library: Level 2)"
func parseLibraryName(field string) (string, error) {
	stripped := strings.NewReplacer("(", "", ")", "").Replace(field)
	name, _, _ := strings.Cut(stripped, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: no library name in %q", ErrMalformedHeading, field)
	}
	return name, nil
}
