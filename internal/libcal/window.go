package libcal

import "time"

const (
	// DateLayout is the portal's date format for window bounds
	DateLayout = "2006-01-02"

	// WindowDays is how far ahead the portal accepts bookings
	WindowDays = 14
)

// Window is the date range requested from the availability grid
type Window struct {
	from time.Time
	to   time.Time
}

// NewWindow returns the window starting on now's calendar day and ending WindowDays later.
// The end is computed with calendar arithmetic in now's location so month and year
// rollovers land on the right civil date.
func NewWindow(now time.Time) Window {
	return Window{
		from: now,
		to:   now.AddDate(0, 0, WindowDays),
	}
}

// Start returns the first day of the window as YYYY-MM-DD
func (w Window) Start() string {
	return w.from.Format(DateLayout)
}

// End returns the last day of the window as YYYY-MM-DD
func (w Window) End() string {
	return w.to.Format(DateLayout)
}
