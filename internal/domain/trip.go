package domain

import "time"

// Trip is a ride requested by a consumer and optionally assigned to a driver.
//
// Coordinates are stored as supplied by the caller ("lat,lng").
type Trip struct {
	ID TripID

	StartCoords string
	EndCoords   string

	ConsumerID SubjectID
	// DriverID is nil until a driver is assigned.
	DriverID *SubjectID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participants returns the subjects recorded as owning the trip.
func (t Trip) Participants() []SubjectID {
	out := []SubjectID{t.ConsumerID}
	if t.DriverID != nil && *t.DriverID != "" {
		out = append(out, *t.DriverID)
	}
	return out
}
