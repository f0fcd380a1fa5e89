package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/libcal-rooms/internal/room"
)

const (
	RoomsFile    = "rooms.json"
	BookingsFile = "bookings.json"

	jsonIndent = "    "
)

// Sink accepts the final rooms and bookings of a job
type Sink interface {
	Save(ctx context.Context, rooms []*room.Room, bookings []*room.RoomBooking) error
}

// JSONSink writes rooms and bookings as two JSON files in a directory
type JSONSink struct {
	dir string
}

// NewJSONSink creates a JSONSink writing into dir, creating it if needed
func NewJSONSink(dir string) (*JSONSink, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &JSONSink{dir: dir}, nil
}

// Dir returns the output directory
func (s *JSONSink) Dir() string {
	return s.dir
}

// RoomsPath returns the path of the rooms file
func (s *JSONSink) RoomsPath() string {
	return filepath.Join(s.dir, RoomsFile)
}

// BookingsPath returns the path of the bookings file
func (s *JSONSink) BookingsPath() string {
	return filepath.Join(s.dir, BookingsFile)
}

// Save writes both files. Nil slices are written as empty arrays.
func (s *JSONSink) Save(ctx context.Context, rooms []*room.Room, bookings []*room.RoomBooking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if rooms == nil {
		rooms = []*room.Room{}
	}
	if bookings == nil {
		bookings = []*room.RoomBooking{}
	}

	if err := writeJSON(s.RoomsPath(), rooms); err != nil {
		return fmt.Errorf("writing rooms: %w", err)
	}
	if err := writeJSON(s.BookingsPath(), bookings); err != nil {
		return fmt.Errorf("writing bookings: %w", err)
	}

	return nil
}

// LoadRooms reads the rooms file back
func (s *JSONSink) LoadRooms() ([]*room.Room, error) {
	var rooms []*room.Room
	if err := readJSON(s.RoomsPath(), &rooms); err != nil {
		return nil, fmt.Errorf("reading rooms: %w", err)
	}
	return rooms, nil
}

// LoadBookings reads the bookings file back
func (s *JSONSink) LoadBookings() ([]*room.RoomBooking, error) {
	var bookings []*room.RoomBooking
	if err := readJSON(s.BookingsPath(), &bookings); err != nil {
		return nil, fmt.Errorf("reading bookings: %w", err)
	}
	return bookings, nil
}

// writeJSON writes through a temp file so readers never see a half-written array
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", jsonIndent)
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// MultiSink saves to every sink in order, stopping at the first error
type MultiSink []Sink

// Save implements Sink
func (m MultiSink) Save(ctx context.Context, rooms []*room.Room, bookings []*room.RoomBooking) error {
	if len(m) == 0 {
		return errors.New("no sinks configured")
	}
	for _, s := range m {
		if err := s.Save(ctx, rooms, bookings); err != nil {
			return err
		}
	}
	return nil
}
