package domain

import "time"

// User is the domain representation of a user account.
type User struct {
	ID       UserID
	UserName string
	Role     Role

	CreatedAt time.Time
	UpdatedAt time.Time
}
