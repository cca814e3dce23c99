package domain

import "time"

// Claims is the identity asserted by a verified access token.
//
// Claims are built once per request by the verifier and passed by value;
// nothing in the service stores them.
type Claims struct {
	SubjectID SubjectID
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
