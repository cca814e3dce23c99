package jwtverifier

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
)

var (
	// ErrMissing indicates the Authorization header is absent or is not "Bearer <token>".
	ErrMissing = errors.New("missing bearer token")

	// ErrMalformed indicates the token or its payload does not have the access token shape.
	ErrMalformed = errors.New("malformed token")

	// ErrInvalid indicates the signature does not verify against the shared secret.
	ErrInvalid = errors.New("invalid token")

	// ErrExpired indicates the token's exp is in the past.
	ErrExpired = errors.New("token expired")
)

const bearerPrefix = "Bearer "

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// accessTokenClaims is the wire shape of the token payload.
type accessTokenClaims struct {
	UUID domain.SubjectID `json:"uuid"`
	Role domain.Role      `json:"role"`
	jwt.RegisteredClaims
}

// Validate is invoked by the jwt parser after the signature has been checked.
func (c accessTokenClaims) Validate() error {
	if c.UUID == "" {
		return errors.New("missing uuid claim")
	}
	if !c.Role.Valid() {
		return errors.New("missing role claim")
	}
	if c.IssuedAt == nil {
		return errors.New("missing iat claim")
	}
	return nil
}

// Verifier verifies HS256 access tokens signed with a shared secret.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func New(secret []byte) *Verifier {
	return NewWithOptions(secret, nil)
}

func NewWithOptions(secret []byte, clock Clock) *Verifier {
	if clock == nil {
		clock = realClock{}
	}
	return &Verifier{
		secret: append([]byte(nil), secret...),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(clock.Now),
		),
	}
}

// VerifyHeader extracts the token from an Authorization header value and verifies it.
func (v *Verifier) VerifyHeader(authorization string) (domain.Claims, error) {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return domain.Claims{}, ErrMissing
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authorization, bearerPrefix))
	if raw == "" {
		return domain.Claims{}, ErrMissing
	}
	return v.Verify(raw)
}

// Verify verifies a compact JWT and returns its claims.
//
// Verification:
// - HS256 signature over header.payload using the shared secret
// - payload carries uuid, role, iat and exp
// - exp is in the future (no leeway)
func (v *Verifier) Verify(token string) (domain.Claims, error) {
	var c accessTokenClaims
	_, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.Claims{}, classify(err)
	}
	return domain.Claims{
		SubjectID: c.UUID,
		Role:      c.Role,
		IssuedAt:  c.IssuedAt.Time.UTC(),
		ExpiresAt: c.ExpiresAt.Time.UTC(),
	}, nil
}

// classify maps jwt parser errors onto the verifier's taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrInvalid
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return ErrMalformed
	default:
		return ErrInvalid
	}
}
