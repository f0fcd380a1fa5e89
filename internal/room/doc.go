// Package room provides the two record types produced by a scrape run.
//
// A Room is a bookable library space or pod whose ID is derived deterministically from the
// owning building's identifier and the room number parsed from its detail page, so unchanged
// source pages always yield the same IDs across runs. A RoomBooking is one occupied interval
// for a Room and always references a Room emitted by the same run.
package room
