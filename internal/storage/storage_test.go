package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/libcal-rooms/internal/room"
)

func sampleData(t *testing.T) ([]*room.Room, []*room.RoomBooking) {
	t.Helper()
	sydney, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatalf("LoadLocation() error: %v", err)
	}

	rooms := []*room.Room{
		room.New("K-E8", "101", "Law Library", "LAW RM 101", 6),
		room.New("K-F21", "POD3", "Main Library", "POD 3", 2),
	}
	start := time.Date(2024, 1, 20, 9, 0, 0, 0, sydney)
	bookings := []*room.RoomBooking{
		room.NewBooking("K-E8-101", start, start.Add(30*time.Minute)),
		room.NewBooking("K-E8-101", start.Add(time.Hour), start.Add(90*time.Minute)),
		room.NewBooking("K-F21-POD3", start, start.Add(2*time.Hour)),
	}
	return rooms, bookings
}

func TestJSONSink_RoundTrip(t *testing.T) {
	sink, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink() error: %v", err)
	}

	rooms, bookings := sampleData(t)
	if err := sink.Save(context.Background(), rooms, bookings); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	gotRooms, err := sink.LoadRooms()
	if err != nil {
		t.Fatalf("LoadRooms() error: %v", err)
	}
	if len(gotRooms) != len(rooms) {
		t.Fatalf("LoadRooms() returned %d rooms, want %d", len(gotRooms), len(rooms))
	}
	for i := range rooms {
		if *gotRooms[i] != *rooms[i] {
			t.Errorf("room %d = %+v, want %+v", i, *gotRooms[i], *rooms[i])
		}
	}

	gotBookings, err := sink.LoadBookings()
	if err != nil {
		t.Fatalf("LoadBookings() error: %v", err)
	}
	if len(gotBookings) != len(bookings) {
		t.Fatalf("LoadBookings() returned %d bookings, want %d", len(gotBookings), len(bookings))
	}
	for i, want := range bookings {
		got := gotBookings[i]
		if got.RoomID != want.RoomID || got.BookingType != want.BookingType || got.Name != want.Name {
			t.Errorf("booking %d = %+v, want %+v", i, *got, *want)
		}
		if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
			t.Errorf("booking %d interval = [%v, %v], want [%v, %v]", i, got.Start, got.End, want.Start, want.End)
		}
		if got.Start.Format(time.RFC3339) != want.Start.Format(time.RFC3339) {
			t.Errorf("booking %d start string = %s, want %s", i, got.Start.Format(time.RFC3339), want.Start.Format(time.RFC3339))
		}
	}
}

func TestJSONSink_Format(t *testing.T) {
	sink, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink() error: %v", err)
	}

	rooms, bookings := sampleData(t)
	if err := sink.Save(context.Background(), rooms, bookings); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(sink.RoomsPath())
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	text := string(data)

	if !strings.HasPrefix(text, "[\n    {\n        \"id\": \"K-E8-101\"") {
		t.Errorf("rooms.json not pretty-printed with 4 spaces:\n%s", text)
	}

	data, err = os.ReadFile(sink.BookingsPath())
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), `"start": "2024-01-20T09:00:00+11:00"`) {
		t.Errorf("bookings.json missing Sydney-offset start:\n%s", data)
	}

	if _, err := os.Stat(sink.RoomsPath() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestJSONSink_EmptyRun(t *testing.T) {
	sink, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink() error: %v", err)
	}

	if err := sink.Save(context.Background(), nil, nil); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	for _, path := range []string{sink.RoomsPath(), sink.BookingsPath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) error: %v", path, err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("%s = %q, want []", filepath.Base(path), data)
		}
	}
}

func TestJSONSink_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	sink, err := NewJSONSink(dir)
	if err != nil {
		t.Fatalf("NewJSONSink() error: %v", err)
	}
	if sink.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", sink.Dir(), dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("output directory not created: %v", err)
	}
}

func TestJSONSink_CancelledContext(t *testing.T) {
	sink, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sink.Save(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(sink.RoomsPath()); !os.IsNotExist(err) {
		t.Error("rooms.json written despite cancelled context")
	}
}

func TestJSONSink_LoadMissing(t *testing.T) {
	sink, err := NewJSONSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONSink() error: %v", err)
	}

	if _, err := sink.LoadRooms(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadRooms() error = %v, want not exist", err)
	}
}

type recordingSink struct {
	calls int
	err   error
}

func (r *recordingSink) Save(ctx context.Context, rooms []*room.Room, bookings []*room.RoomBooking) error {
	r.calls++
	return r.err
}

func TestMultiSink(t *testing.T) {
	first := &recordingSink{}
	failing := &recordingSink{err: errors.New("disk full")}
	last := &recordingSink{}

	err := MultiSink{first, failing, last}.Save(context.Background(), nil, nil)
	if err == nil || err.Error() != "disk full" {
		t.Errorf("Save() error = %v, want disk full", err)
	}
	if first.calls != 1 || failing.calls != 1 || last.calls != 0 {
		t.Errorf("calls = (%d, %d, %d), want (1, 1, 0)", first.calls, failing.calls, last.calls)
	}

	if err := (MultiSink{}).Save(context.Background(), nil, nil); err == nil {
		t.Error("empty MultiSink.Save() expected error, got nil")
	}
}
