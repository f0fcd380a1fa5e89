// Package scraper assembles rooms and bookings for the configured library buildings.
//
// ScrapeLibrary reconciles a building's availability grid with its per-room detail pages:
// every item in the grid gets its page fetched and classified, and only items classified
// as rooms contribute a Room and their bookings. A room whose page fails is logged and
// dropped on its own; a failed grid fails the whole building. Job runs every building in
// configured order and hands the concatenated result to a storage.Sink exactly once.
package scraper
