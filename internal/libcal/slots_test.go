package libcal

import (
	"encoding/json"
	"os"
	"reflect"
	"testing"

	"github.com/pfrederiksen/libcal-rooms/internal/timezone"
)

func sydney(t *testing.T) *timezone.Normalizer {
	t.Helper()
	tz, err := timezone.New("Australia/Sydney")
	if err != nil {
		t.Fatalf("timezone.New() error: %v", err)
	}
	return tz
}

func loadGridFixture(t *testing.T) []Slot {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/grid.json")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	var grid gridResponse
	if err := json.Unmarshal(data, &grid); err != nil {
		t.Fatalf("failed to decode test fixture: %v", err)
	}
	return grid.Slots
}

func TestNormalizeSlots_Fixture(t *testing.T) {
	tz := sydney(t)

	avail, err := NormalizeSlots(loadGridFixture(t), tz)
	if err != nil {
		t.Fatalf("NormalizeSlots() error: %v", err)
	}

	if got, want := avail.RoomIDs(), []int{1001, 1002, 1003}; !reflect.DeepEqual(got, want) {
		t.Errorf("RoomIDs() = %v, want %v", got, want)
	}

	tests := []struct {
		itemID     int
		wantStarts []string
	}{
		{1001, []string{"09:00", "10:00"}},
		{1002, nil},
		{1003, []string{"09:00"}},
	}

	for _, tt := range tests {
		intervals := avail.Intervals(tt.itemID)
		if len(intervals) != len(tt.wantStarts) {
			t.Errorf("item %d: %d intervals, want %d", tt.itemID, len(intervals), len(tt.wantStarts))
			continue
		}
		for i, iv := range intervals {
			if got := iv.Start.Format("15:04"); got != tt.wantStarts[i] {
				t.Errorf("item %d interval %d start = %s, want %s", tt.itemID, i, got, tt.wantStarts[i])
			}
			if !iv.Start.Before(iv.End) {
				t.Errorf("item %d interval %d: start %v not before end %v", tt.itemID, i, iv.Start, iv.End)
			}
			if iv.Start.Location() != tz.Location() {
				t.Errorf("item %d interval %d location = %v, want %v", tt.itemID, i, iv.Start.Location(), tz.Location())
			}
		}
	}
}

func TestNormalizeSlots_OnlyOccupiedKept(t *testing.T) {
	classes := []string{"", "s-lc-eq-avail", "s-lc-eq-period-unavailable", "s-lc-eq-r-unavailable", "S-LC-EQ-CHECKOUT"}

	for _, class := range classes {
		t.Run("class "+class, func(t *testing.T) {
			slots := []Slot{{
				Start:     "2024-01-20 09:00:00",
				End:       "2024-01-20 09:30:00",
				ItemID:    42,
				ClassName: class,
			}}

			avail, err := NormalizeSlots(slots, sydney(t))
			if err != nil {
				t.Fatalf("NormalizeSlots() error: %v", err)
			}
			if n := len(avail.Intervals(42)); n != 0 {
				t.Errorf("class %q kept %d intervals, want 0", class, n)
			}
			if avail.Len() != 1 {
				t.Errorf("Len() = %d, want 1 (item still discovered)", avail.Len())
			}
		})
	}
}

func TestNormalizeSlots_PreservesSourceOrder(t *testing.T) {
	slots := []Slot{
		{Start: "2024-01-21 15:00:00", End: "2024-01-21 15:30:00", ItemID: 7, ClassName: OccupiedClass},
		{Start: "2024-01-20 09:00:00", End: "2024-01-20 09:30:00", ItemID: 7, ClassName: OccupiedClass},
		{Start: "2024-01-20 12:00:00", End: "2024-01-20 13:00:00", ItemID: 7, ClassName: OccupiedClass},
	}

	avail, err := NormalizeSlots(slots, sydney(t))
	if err != nil {
		t.Fatalf("NormalizeSlots() error: %v", err)
	}

	want := []string{"2024-01-21 15:00", "2024-01-20 09:00", "2024-01-20 12:00"}
	intervals := avail.Intervals(7)
	if len(intervals) != len(want) {
		t.Fatalf("got %d intervals, want %d", len(intervals), len(want))
	}
	for i, iv := range intervals {
		if got := iv.Start.Format("2006-01-02 15:04"); got != want[i] {
			t.Errorf("interval %d start = %s, want %s", i, got, want[i])
		}
	}
}

func TestNormalizeSlots_Errors(t *testing.T) {
	tests := []struct {
		name string
		slot Slot
	}{
		{
			name: "malformed start",
			slot: Slot{Start: "not a time", End: "2024-01-20 09:30:00", ItemID: 1, ClassName: OccupiedClass},
		},
		{
			name: "malformed end",
			slot: Slot{Start: "2024-01-20 09:00:00", End: "", ItemID: 1, ClassName: OccupiedClass},
		},
		{
			name: "inverted interval",
			slot: Slot{Start: "2024-01-20 10:00:00", End: "2024-01-20 09:30:00", ItemID: 1, ClassName: OccupiedClass},
		},
		{
			name: "empty interval",
			slot: Slot{Start: "2024-01-20 10:00:00", End: "2024-01-20 10:00:00", ItemID: 1, ClassName: OccupiedClass},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NormalizeSlots([]Slot{tt.slot}, sydney(t)); err == nil {
				t.Error("NormalizeSlots() expected error, got nil")
			}
		})
	}
}

func TestNormalizeSlots_MalformedFreeSlotIgnored(t *testing.T) {
	slots := []Slot{{Start: "garbage", End: "garbage", ItemID: 3, ClassName: "s-lc-eq-avail"}}

	avail, err := NormalizeSlots(slots, sydney(t))
	if err != nil {
		t.Fatalf("NormalizeSlots() error: %v", err)
	}
	if avail.Len() != 1 {
		t.Errorf("Len() = %d, want 1", avail.Len())
	}
}

func TestNormalizeSlots_Empty(t *testing.T) {
	avail, err := NormalizeSlots(nil, sydney(t))
	if err != nil {
		t.Fatalf("NormalizeSlots() error: %v", err)
	}
	if avail.Len() != 0 || len(avail.RoomIDs()) != 0 {
		t.Errorf("empty input produced %d rooms", avail.Len())
	}
}
