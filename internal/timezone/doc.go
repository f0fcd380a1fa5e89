// Package timezone converts portal timestamps into the library's civil timezone.
//
// The booking portal reports slot times either as zone-less wall-clock strings
// ("2024-01-20 09:00:00") or as RFC3339 instants. A Normalizer reads the former as
// local time in its target zone and converts the latter into it, so every booking
// leaves the scraper carrying the same offset.
//
// Usage:
//
//	tz, err := timezone.New("Australia/Sydney")
//	start, err := tz.Normalize("2024-01-20 09:00:00")
//	today := tz.Now()
//
// The IANA database is embedded so zones resolve on hosts without tzdata installed.
package timezone
