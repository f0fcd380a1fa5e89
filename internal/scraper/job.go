package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/libcal-rooms/internal/config"
	"github.com/pfrederiksen/libcal-rooms/internal/logger"
	"github.com/pfrederiksen/libcal-rooms/internal/room"
	"github.com/pfrederiksen/libcal-rooms/internal/storage"
)

// BuildingFailure records a building dropped under config.PolicySkip
type BuildingFailure struct {
	BuildingID string `json:"building_id"`
	Error      string `json:"error"`
}

// Report describes a finished run
type Report struct {
	RunID     string            `json:"run_id"`
	StartedAt time.Time         `json:"started_at"`
	Elapsed   time.Duration     `json:"elapsed"`
	Buildings []BuildingSummary `json:"buildings"`
	Failed    []BuildingFailure `json:"failed,omitempty"`
	Rooms     int               `json:"rooms"`
	Bookings  int               `json:"bookings"`
	Saved     bool              `json:"saved"`
}

// Job scrapes every configured building and saves the combined result
type Job struct {
	scraper   *Scraper
	buildings []config.Building
	sink      storage.Sink
	policy    config.Policy
}

// NewJob creates a Job. An empty policy means config.PolicyAbort.
func NewJob(s *Scraper, buildings []config.Building, sink storage.Sink, policy config.Policy) *Job {
	if policy == "" {
		policy = config.PolicyAbort
	}
	return &Job{
		scraper:   s,
		buildings: buildings,
		sink:      sink,
		policy:    policy,
	}
}

// Run scrapes the buildings in order and saves the result once.
// Under PolicyAbort the first building failure is returned and nothing is saved.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	if j.sink == nil {
		return nil, errors.New("no sink configured")
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Buildings: make([]BuildingSummary, 0, len(j.buildings)),
	}

	// Every log line of this run carries the run ID
	s := *j.scraper
	s.log = j.scraper.log.With(logger.Fields{"run_id": report.RunID})
	log := s.log

	log.Info("Starting scrape", logger.Fields{
		"buildings": len(j.buildings),
		"policy":    string(j.policy),
	})

	var (
		rooms    []*room.Room
		bookings []*room.RoomBooking
	)

	for _, b := range j.buildings {
		result, err := s.ScrapeLibrary(ctx, b)
		if err != nil {
			s.metrics.IncrCounter("buildings.failed")

			if j.policy == config.PolicyAbort || ctx.Err() != nil {
				log.Error("Aborting scrape", logger.Fields{"building_id": b.BuildingID}, err)
				report.Elapsed = time.Since(report.StartedAt)
				return report, err
			}

			log.Error("Skipping building", logger.Fields{"building_id": b.BuildingID}, err)
			report.Failed = append(report.Failed, BuildingFailure{BuildingID: b.BuildingID, Error: err.Error()})
			continue
		}

		rooms = append(rooms, result.Rooms...)
		bookings = append(bookings, result.Bookings...)
		report.Buildings = append(report.Buildings, result.Summary)
	}

	report.Rooms = len(rooms)
	report.Bookings = len(bookings)

	if err := j.sink.Save(ctx, rooms, bookings); err != nil {
		report.Elapsed = time.Since(report.StartedAt)
		return report, fmt.Errorf("saving results: %w", err)
	}
	report.Saved = true
	report.Elapsed = time.Since(report.StartedAt)

	s.metrics.SetGauge("rooms.total", float64(report.Rooms))
	s.metrics.SetGauge("bookings.total", float64(report.Bookings))
	s.metrics.RecordTiming("scrape.job", report.Elapsed)

	log.Info("Finished scrape", logger.Fields{
		"rooms":    report.Rooms,
		"bookings": report.Bookings,
		"failed":   len(report.Failed),
		"elapsed":  report.Elapsed.String(),
	})

	return report, nil
}
