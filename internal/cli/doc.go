// Package cli implements the command-line interface for libcal-rooms.
//
// The cli package provides the Cobra-based commands: scrape runs a full job against the
// booking portal and writes rooms.json and bookings.json (optionally bookings.ics and
// Postgres), then reports what changed since the previous bookings.json; buildings lists
// the compiled-in libraries. Configuration is layered as defaults, then
// LIBCAL_* environment variables, then flags.
package cli
