package domain

import "fmt"

// Role is the closed set of principal roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleDriver   Role = "driver"
	RoleCustomer Role = "customer"
)

// ParseRole returns the Role for s, or an error if s is not one of the known roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleManager, RoleDriver, RoleCustomer:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Elevated reports whether the role may act on resources it does not own.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleManager
}

func (r Role) String() string { return string(r) }

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return []byte(r), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
