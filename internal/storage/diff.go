package storage

import (
	"sort"

	"github.com/pfrederiksen/libcal-rooms/internal/room"
)

// BookingDiff lists bookings that appeared or disappeared between two runs.
// Bookings that aged out of the scrape window count as removed.
type BookingDiff struct {
	Added   []*room.RoomBooking `json:"added"`
	Removed []*room.RoomBooking `json:"removed"`
}

// Empty reports whether nothing changed
func (d *BookingDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// bookingKey identifies a booking by room and interval
type bookingKey struct {
	roomID string
	start  int64
	end    int64
}

func keyOf(b *room.RoomBooking) bookingKey {
	return bookingKey{roomID: b.RoomID, start: b.Start.Unix(), end: b.End.Unix()}
}

// DiffBookings compares the current bookings against a previous run's
func DiffBookings(previous, current []*room.RoomBooking) *BookingDiff {
	result := &BookingDiff{
		Added:   make([]*room.RoomBooking, 0),
		Removed: make([]*room.RoomBooking, 0),
	}

	prev := make(map[bookingKey]bool, len(previous))
	for _, b := range previous {
		prev[keyOf(b)] = true
	}
	cur := make(map[bookingKey]bool, len(current))
	for _, b := range current {
		k := keyOf(b)
		if cur[k] {
			continue
		}
		cur[k] = true
		if !prev[k] {
			result.Added = append(result.Added, b)
		}
	}

	for _, b := range previous {
		k := keyOf(b)
		if !cur[k] {
			result.Removed = append(result.Removed, b)
			// a duplicated previous entry is reported once
			cur[k] = true
		}
	}

	sortBookings(result.Added)
	sortBookings(result.Removed)

	return result
}

// sortBookings orders by room, then start time
func sortBookings(bookings []*room.RoomBooking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].RoomID != bookings[j].RoomID {
			return bookings[i].RoomID < bookings[j].RoomID
		}
		return bookings[i].Start.Before(bookings[j].Start)
	})
}
