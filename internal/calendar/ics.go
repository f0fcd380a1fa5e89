// Package calendar exports scraped bookings as an iCalendar feed.
package calendar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/libcal-rooms/internal/room"
)

// FileName is the feed written by Sink
const FileName = "bookings.ics"

// GenerateICS builds one VCALENDAR with a VEVENT per booking.
// Bookings whose room is missing from rooms are skipped.
func GenerateICS(rooms []*room.Room, bookings []*room.RoomBooking, stamp time.Time) string {
	byID := make(map[string]*room.Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}

	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//libcal-rooms//Library Bookings//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")

	for _, b := range bookings {
		r, ok := byID[b.RoomID]
		if !ok {
			continue
		}

		ics.WriteString("BEGIN:VEVENT\r\n")
		// Stable across runs so calendar clients update rather than duplicate
		ics.WriteString(fmt.Sprintf("UID:%s-%d@libcal-rooms\r\n", b.RoomID, b.Start.Unix()))
		ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(stamp)))
		ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(b.Start)))
		ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(b.End)))
		ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(b.Name+" - "+r.Abbr)))
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(r.Name)))
		ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(fmt.Sprintf("Room %s\nCapacity: %d", r.ID, r.Capacity))))
		ics.WriteString("STATUS:CONFIRMED\r\n")
		ics.WriteString("TRANSP:OPAQUE\r\n")
		ics.WriteString("END:VEVENT\r\n")
	}

	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes text values per RFC 5545
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// Sink writes the bookings feed into a directory
type Sink struct {
	dir string
	now func() time.Time
}

// NewSink creates a Sink writing FileName into dir
func NewSink(dir string) *Sink {
	return &Sink{dir: dir, now: time.Now}
}

// Path returns the feed's path
func (s *Sink) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Save writes the feed, replacing any previous one
func (s *Sink) Save(ctx context.Context, rooms []*room.Room, bookings []*room.RoomBooking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating calendar directory: %w", err)
	}

	data := GenerateICS(rooms, bookings, s.now())
	if err := os.WriteFile(s.Path(), []byte(data), 0644); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}
