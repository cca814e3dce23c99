package users

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
	// ErrNotFound is returned both when a user does not exist and when the
	// caller may not see it.
	ErrNotFound = &Error{Status: 404, Message: "User not found"}

	// ErrForbidden is returned when the caller's role may not create users.
	ErrForbidden = &Error{Status: 403, Message: "Forbidden"}
)

func validationError(msg string) *Error {
	return &Error{Status: 400, Message: msg}
}
