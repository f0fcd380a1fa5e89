package room

import "time"

const (
	// Usage tags every room scraped from the library portal
	Usage = "LIB"

	// BookingType tags every booking scraped from the library portal
	BookingType = "LIB"

	// BookingName is the display label shared by all library bookings
	BookingName = "Library Booking"

	// SchoolPlaceholder fills the reserved school field
	SchoolPlaceholder = " "
)

// Room represents a bookable library room or pod
type Room struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Abbr     string `json:"abbr"`
	Usage    string `json:"usage"`
	Capacity int    `json:"capacity"`
	School   string `json:"school"`
}

// RoomBooking represents one occupied interval for a room
type RoomBooking struct {
	BookingType string    `json:"bookingType"`
	Name        string    `json:"name"`
	RoomID      string    `json:"roomId"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// GenerateID creates the room ID from the building identifier and room number
func GenerateID(buildingID, roomNumber string) string {
	return buildingID + "-" + roomNumber
}

// New creates a Room with ID, Name and the fixed tags populated
func New(buildingID, roomNumber, libraryName, rawName string, capacity int) *Room {
	return &Room{
		ID:       GenerateID(buildingID, roomNumber),
		Name:     libraryName + " " + rawName,
		Abbr:     rawName,
		Usage:    Usage,
		Capacity: capacity,
		School:   SchoolPlaceholder,
	}
}

// NewBooking creates a RoomBooking for the given room and interval
func NewBooking(roomID string, start, end time.Time) *RoomBooking {
	return &RoomBooking{
		BookingType: BookingType,
		Name:        BookingName,
		RoomID:      roomID,
		Start:       start,
		End:         end,
	}
}

// Duration returns the length of the booking
func (b *RoomBooking) Duration() time.Duration {
	return b.End.Sub(b.Start)
}
