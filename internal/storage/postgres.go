package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/pfrederiksen/libcal-rooms/internal/room"
)

const schema = `
CREATE TABLE IF NOT EXISTS library_rooms (
	id        TEXT PRIMARY KEY,
	name      TEXT    NOT NULL,
	abbr      TEXT    NOT NULL,
	usage     TEXT    NOT NULL,
	capacity  INTEGER NOT NULL CHECK (capacity > 0),
	school    TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS library_bookings (
	id           SERIAL PRIMARY KEY,
	booking_type TEXT        NOT NULL,
	name         TEXT        NOT NULL,
	room_id      TEXT        NOT NULL REFERENCES library_rooms (id) ON DELETE CASCADE,
	starts_at    TIMESTAMPTZ NOT NULL,
	ends_at      TIMESTAMPTZ NOT NULL,
	CHECK (starts_at < ends_at)
);

CREATE INDEX IF NOT EXISTS idx_library_bookings_room ON library_bookings (room_id);
`

// PostgresSink replaces the stored rooms and bookings on every save
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink opens and pings the database and ensures the tables exist
func NewPostgresSink(ctx context.Context, connStr string) (*PostgresSink, error) {
	if connStr == "" {
		return nil, errors.New("database URL is empty")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &PostgresSink{db: db}, nil
}

// Save replaces both tables inside one transaction
func (s *PostgresSink) Save(ctx context.Context, rooms []*room.Room, bookings []*room.RoomBooking) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Bookings go with their rooms through ON DELETE CASCADE
	if _, err = tx.ExecContext(ctx, `DELETE FROM library_rooms`); err != nil {
		return fmt.Errorf("clearing rooms: %w", err)
	}

	if err = insertRooms(ctx, tx, rooms); err != nil {
		return err
	}
	if err = insertBookings(ctx, tx, bookings); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertRooms(ctx context.Context, tx *sql.Tx, rooms []*room.Room) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO library_rooms (id, name, abbr, usage, capacity, school)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("preparing room insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rooms {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Name, r.Abbr, r.Usage, r.Capacity, r.School); err != nil {
			return fmt.Errorf("inserting room %s: %w", r.ID, err)
		}
	}
	return nil
}

func insertBookings(ctx context.Context, tx *sql.Tx, bookings []*room.RoomBooking) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO library_bookings (booking_type, name, room_id, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("preparing booking insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bookings {
		if _, err := stmt.ExecContext(ctx, b.BookingType, b.Name, b.RoomID, b.Start, b.End); err != nil {
			return fmt.Errorf("inserting booking for %s: %w", b.RoomID, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
