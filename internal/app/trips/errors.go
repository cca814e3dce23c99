package trips

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

var (
	// ErrNotFound is returned both when a trip does not exist and when the
	// caller is not one of its participants.
	ErrNotFound = &Error{Status: 404, Message: "Trip not found"}

	// ErrForbidden is returned when a non-elevated caller books a trip for someone else.
	ErrForbidden = &Error{Status: 403, Message: "Forbidden"}
)

func validationError(msg string) *Error {
	return &Error{Status: 400, Message: msg}
}
