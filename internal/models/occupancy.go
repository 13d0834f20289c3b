package models

import "time"

// BookedSlot is one active reservation's span on a day, for availability reads.
type BookedSlot struct {
	ReservationID string `json:"reservation_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

// DayOccupancy is the read model served by the availability endpoint and
// cached per (resource, date).
type DayOccupancy struct {
	ResourceID int64        `json:"resource_id"`
	Date       string       `json:"date"`
	Capacity   int64        `json:"capacity"`
	Booked     []BookedSlot `json:"booked"`
}

// NewDayOccupancy builds the read model from the active reservations of one
// resource/date partition.
func NewDayOccupancy(resource *Resource, date time.Time, active []Reservation) *DayOccupancy {
	occ := &DayOccupancy{
		Date:   date.Format(DateLayout),
		Booked: make([]BookedSlot, 0, len(active)),
	}
	if resource != nil {
		occ.ResourceID = resource.ID
		occ.Capacity = resource.Capacity
	}
	for _, r := range active {
		occ.Booked = append(occ.Booked, BookedSlot{
			ReservationID: r.ID,
			Start:         FormatClock(r.Start),
			End:           FormatClock(r.End),
		})
	}
	return occ
}
