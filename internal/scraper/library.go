package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pfrederiksen/libcal-rooms/internal/config"
	"github.com/pfrederiksen/libcal-rooms/internal/libcal"
	"github.com/pfrederiksen/libcal-rooms/internal/logger"
	"github.com/pfrederiksen/libcal-rooms/internal/room"
	"github.com/pfrederiksen/libcal-rooms/internal/timezone"
)

// Portal is the booking portal as seen by the scraper
type Portal interface {
	FetchSlots(ctx context.Context, lid string, w libcal.Window) ([]libcal.Slot, error)
	FetchRoom(ctx context.Context, itemID int, buildingID string) libcal.Outcome
}

// BuildingError is returned when a building cannot be scraped at all
type BuildingError struct {
	BuildingID string
	Err        error
}

func (e *BuildingError) Error() string {
	return fmt.Sprintf("scraping building %s: %v", e.BuildingID, e.Err)
}

func (e *BuildingError) Unwrap() error {
	return e.Err
}

// Options configures a Scraper
type Options struct {
	// Concurrency bounds simultaneous room page fetches per building
	Concurrency int
	Logger      *logger.Logger
	Metrics     *logger.Metrics
}

// Scraper scrapes one building at a time
type Scraper struct {
	portal      Portal
	tz          *timezone.Normalizer
	concurrency int
	log         *logger.Logger
	metrics     *logger.Metrics
}

// New creates a Scraper reading from portal and normalizing times with tz
func New(portal Portal, tz *timezone.Normalizer, opts Options) *Scraper {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = logger.NewMetrics()
	}

	return &Scraper{
		portal:      portal,
		tz:          tz,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
		metrics:     opts.Metrics,
	}
}

// BuildingSummary counts what one building contributed
type BuildingSummary struct {
	BuildingID string        `json:"building_id"`
	Name       string        `json:"name"`
	Items      int           `json:"items"`
	Rooms      int           `json:"rooms"`
	Bookings   int           `json:"bookings"`
	Rejected   int           `json:"rejected"`
	Failed     int           `json:"failed"`
	Elapsed    time.Duration `json:"elapsed"`
}

// LibraryResult is the output of one building
type LibraryResult struct {
	Rooms    []*room.Room
	Bookings []*room.RoomBooking
	Summary  BuildingSummary
}

// ScrapeLibrary fetches the building's grid, then every room in it, and assembles the
// rooms and bookings. Individual room failures are logged and skipped; grid failures and
// cancellation fail the building with a *BuildingError.
func (s *Scraper) ScrapeLibrary(ctx context.Context, b config.Building) (*LibraryResult, error) {
	started := time.Now()
	log := s.log.With(logger.Fields{"building_id": b.BuildingID})

	window := libcal.NewWindow(s.tz.Now())
	log.Debug("Fetching availability", logger.Fields{
		"libcal_code": b.LibcalCode,
		"start":       window.Start(),
		"end":         window.End(),
	})

	slots, err := s.portal.FetchSlots(ctx, b.LibcalCode, window)
	if err != nil {
		return nil, &BuildingError{BuildingID: b.BuildingID, Err: fmt.Errorf("fetching availability: %w", err)}
	}

	avail, err := libcal.NormalizeSlots(slots, s.tz)
	if err != nil {
		return nil, &BuildingError{BuildingID: b.BuildingID, Err: fmt.Errorf("normalizing slots: %w", err)}
	}

	ids := avail.RoomIDs()
	outcomes := s.fetchRooms(ctx, ids, b.BuildingID)
	if err := ctx.Err(); err != nil {
		return nil, &BuildingError{BuildingID: b.BuildingID, Err: err}
	}

	result := &LibraryResult{
		Summary: BuildingSummary{
			BuildingID: b.BuildingID,
			Name:       b.Name,
			Items:      len(ids),
		},
	}
	emitted := make(map[string]int)

	for i, outcome := range outcomes {
		itemID := ids[i]

		switch outcome.Kind {
		case libcal.OutcomeFailed:
			log.Warn("Failed to scrape room", logger.Fields{"room_id": itemID}, outcome.Err)
			s.metrics.IncrCounter("rooms.failed")
			result.Summary.Failed++
			continue

		case libcal.OutcomeRejected:
			log.Debug("Skipping non-room", logger.Fields{"room_id": itemID})
			s.metrics.IncrCounter("rooms.rejected")
			result.Summary.Rejected++
			continue
		}

		r := outcome.Room
		if first, dup := emitted[r.ID]; dup {
			log.Warn("Skipping duplicate room", logger.Fields{
				"room_id":    itemID,
				"first_item": first,
				"derived_id": r.ID,
			}, nil)
			s.metrics.IncrCounter("rooms.duplicate")
			result.Summary.Failed++
			continue
		}
		emitted[r.ID] = itemID

		result.Rooms = append(result.Rooms, r)
		for _, iv := range avail.Intervals(itemID) {
			result.Bookings = append(result.Bookings, room.NewBooking(r.ID, iv.Start, iv.End))
		}
		s.metrics.IncrCounter("rooms.scraped")
	}

	result.Summary.Rooms = len(result.Rooms)
	result.Summary.Bookings = len(result.Bookings)
	result.Summary.Elapsed = time.Since(started)
	s.metrics.AddCounter("bookings.scraped", int64(len(result.Bookings)))
	s.metrics.RecordTiming("scrape.building", result.Summary.Elapsed)

	log.Info("Scraped building", logger.Fields{
		"items":    result.Summary.Items,
		"rooms":    result.Summary.Rooms,
		"bookings": result.Summary.Bookings,
		"rejected": result.Summary.Rejected,
		"failed":   result.Summary.Failed,
	})

	return result, nil
}

// fetchRooms fetches every item with at most s.concurrency requests in flight.
// outcomes[i] belongs to ids[i] regardless of completion order.
func (s *Scraper) fetchRooms(ctx context.Context, ids []int, buildingID string) []libcal.Outcome {
	outcomes := make([]libcal.Outcome, len(ids))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				outcomes[i] = libcal.Outcome{Kind: libcal.OutcomeFailed, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			outcomes[i] = s.portal.FetchRoom(ctx, id, buildingID)
		}(i, id)
	}

	wg.Wait()
	return outcomes
}
