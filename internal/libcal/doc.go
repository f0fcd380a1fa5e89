// Package libcal fetches and parses room availability from a LibCal booking portal.
//
// Two independent sources are read per building: the availability grid, a JSON list of
// time slots keyed by item ID, and one HTML detail page per item whose heading encodes
// the room's name, location and capacity. The grid is normalized into per-room occupied
// intervals by NormalizeSlots, and each heading is classified by ParseHeading into a
// room, a rejected non-room entity, or a parse failure.
package libcal
