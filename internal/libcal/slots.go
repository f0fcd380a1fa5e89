package libcal

import (
	"fmt"
	"sort"
	"time"

	"github.com/pfrederiksen/libcal-rooms/internal/timezone"
)

// OccupiedClass is the class label the grid uses for checked-out slots
const OccupiedClass = "s-lc-eq-checkout"

// Slot is one time unit from the availability grid
type Slot struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	ItemID    int    `json:"itemId"`
	Checksum  string `json:"checksum"`
	ClassName string `json:"className"` // null in the grid decodes to ""
}

// Occupied reports whether the slot is checked out
func (s Slot) Occupied() bool {
	return s.ClassName == OccupiedClass
}

// Interval is one occupied period in the target timezone
type Interval struct {
	Start time.Time
	End   time.Time
}

// Availability maps grid item IDs to their occupied intervals
type Availability struct {
	intervals map[int][]Interval
}

// RoomIDs returns every item ID seen in the grid in ascending order,
// including items with no occupied slots
func (a *Availability) RoomIDs() []int {
	ids := make([]int, 0, len(a.intervals))
	for id := range a.intervals {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Intervals returns the occupied intervals for an item in grid order
func (a *Availability) Intervals(itemID int) []Interval {
	return a.intervals[itemID]
}

// Len returns the number of distinct items
func (a *Availability) Len() int {
	return len(a.intervals)
}

// NormalizeSlots groups slots by item and keeps only occupied ones, converting their
// bounds into tz's zone. Unparseable or non-positive intervals are errors.
func NormalizeSlots(slots []Slot, tz *timezone.Normalizer) (*Availability, error) {
	intervals := make(map[int][]Interval)

	for i, slot := range slots {
		if _, ok := intervals[slot.ItemID]; !ok {
			intervals[slot.ItemID] = nil
		}

		if !slot.Occupied() {
			continue
		}

		start, err := tz.Normalize(slot.Start)
		if err != nil {
			return nil, fmt.Errorf("slot %d (item %d) start: %w", i, slot.ItemID, err)
		}
		end, err := tz.Normalize(slot.End)
		if err != nil {
			return nil, fmt.Errorf("slot %d (item %d) end: %w", i, slot.ItemID, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("slot %d (item %d): end %s not after start %s",
				i, slot.ItemID, slot.End, slot.Start)
		}

		intervals[slot.ItemID] = append(intervals[slot.ItemID], Interval{Start: start, End: end})
	}

	return &Availability{intervals: intervals}, nil
}
