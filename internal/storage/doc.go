// Package storage persists the rooms and bookings of a scrape run.
//
// A Sink receives both collections once, at the end of a successful job. JSONSink writes
// rooms.json and bookings.json as pretty-printed arrays; PostgresSink replaces the
// contents of two tables in one transaction. Neither keeps history between runs;
// DiffBookings compares a run only with the file it replaces.
package storage
