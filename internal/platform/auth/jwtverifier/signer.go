package jwtverifier

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
)

// Signer mints HS256 access tokens that a Verifier with the same secret accepts.
type Signer struct {
	secret []byte
	clock  Clock
}

func NewSigner(secret []byte, clock Clock) *Signer {
	if clock == nil {
		clock = realClock{}
	}
	return &Signer{secret: append([]byte(nil), secret...), clock: clock}
}

// Issue builds claims for subject/role valid for ttl from now and signs them.
// Timestamps are truncated to whole seconds, matching the token encoding.
func (s *Signer) Issue(subject domain.SubjectID, role domain.Role, ttl time.Duration) (domain.Claims, string, error) {
	if ttl <= 0 {
		return domain.Claims{}, "", fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	now := s.clock.Now().UTC().Truncate(time.Second)
	c := domain.Claims{
		SubjectID: subject,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	tok, err := s.Sign(c)
	if err != nil {
		return domain.Claims{}, "", err
	}
	return c, tok, nil
}

// Sign encodes and signs c as-is.
func (s *Signer) Sign(c domain.Claims) (string, error) {
	if c.SubjectID == "" {
		return "", errors.New("missing subject")
	}
	if !c.Role.Valid() {
		return "", fmt.Errorf("invalid role %q", string(c.Role))
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		UUID: c.SubjectID,
		Role: c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	})
	return tok.SignedString(s.secret)
}
