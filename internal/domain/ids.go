package domain

// SubjectID is the authenticated principal carried in an access token ("uuid" claim).
// It is opaque to this service; for users it equals the user's ID.
type SubjectID string

// UserID is the identifier of a user record.
type UserID string

// TripID is the identifier of a trip record.
type TripID string

// Subject returns the subject a user authenticates as.
func (id UserID) Subject() SubjectID { return SubjectID(id) }
