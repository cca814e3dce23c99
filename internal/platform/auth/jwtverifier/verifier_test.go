package jwtverifier_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/jwttestutil"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/jwtverifier"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

var (
	testSecret = []byte("FAKE_JWT_SECRET")
	testNow    = time.Unix(1700000000, 0).UTC()
)

func newVerifier() (*jwtverifier.Verifier, *fakeClock) {
	clk := &fakeClock{now: testNow}
	return jwtverifier.NewWithOptions(testSecret, clk), clk
}

func sameClaims(a, b domain.Claims) bool {
	return a.SubjectID == b.SubjectID &&
		a.Role == b.Role &&
		a.IssuedAt.Equal(b.IssuedAt) &&
		a.ExpiresAt.Equal(b.ExpiresAt)
}

func mint(t *testing.T, secret []byte, claims map[string]any) string {
	t.Helper()
	tok, err := jwttestutil.MintHS256(secret, claims)
	if err != nil {
		t.Fatalf("MintHS256: %v", err)
	}
	return tok
}

func TestVerifier_Verify_ValidTokenRoundTrips(t *testing.T) {
	t.Parallel()

	v, _ := newVerifier()
	roles := []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleDriver, domain.RoleCustomer}
	for i := 0; i < 20; i++ {
		sub := uuid.NewString()
		role := roles[i%len(roles)]
		ttl := time.Duration(i+1) * time.Minute

		got, err := v.Verify(mint(t, testSecret, jwttestutil.Claims(sub, string(role), testNow, ttl)))
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		want := domain.Claims{
			SubjectID: domain.SubjectID(sub),
			Role:      role,
			IssuedAt:  testNow,
			ExpiresAt: testNow.Add(ttl),
		}
		if !sameClaims(got, want) {
			t.Fatalf("claims: got %+v want %+v", got, want)
		}
	}
}

func TestVerifier_Verify_WrongSecretIsInvalid(t *testing.T) {
	t.Parallel()

	v, _ := newVerifier()
	for i := 0; i < 20; i++ {
		other := []byte(fmt.Sprintf("other-secret-%d", i))
		tok := mint(t, other, jwttestutil.Claims("user-123", "admin", testNow, time.Minute))
		if _, err := v.Verify(tok); !errors.Is(err, jwtverifier.ErrInvalid) {
			t.Fatalf("Verify with secret %q: got %v want %v", other, err, jwtverifier.ErrInvalid)
		}
	}
}

func TestVerifier_Verify_TamperedPayloadIsInvalid(t *testing.T) {
	t.Parallel()

	v, _ := newVerifier()
	tok := mint(t, testSecret, jwttestutil.Claims("user-123", "customer", testNow, time.Minute))
	forged := mint(t, testSecret, jwttestutil.Claims("user-123", "admin", testNow, time.Minute))

	parts := strings.Split(tok, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	if _, err := v.Verify(spliced); !errors.Is(err, jwtverifier.ErrInvalid) {
		t.Fatalf("got %v want %v", err, jwtverifier.ErrInvalid)
	}
}

func TestVerifier_Verify_Expired(t *testing.T) {
	t.Parallel()

	v, clk := newVerifier()
	tok := mint(t, testSecret, jwttestutil.Claims("user-123", "driver", testNow, 5*time.Minute))
	if _, err := v.Verify(tok); err != nil {
		t.Fatalf("Verify before expiry: %v", err)
	}

	clk.Advance(5*time.Minute + time.Second)
	if _, err := v.Verify(tok); !errors.Is(err, jwtverifier.ErrExpired) {
		t.Fatalf("got %v want %v", err, jwtverifier.ErrExpired)
	}
}

func TestVerifier_Verify_MalformedPayloads(t *testing.T) {
	t.Parallel()

	v, _ := newVerifier()
	base := func() map[string]any { return jwttestutil.Claims("user-123", "driver", testNow, time.Minute) }

	cases := map[string]func(map[string]any){
		"missing uuid": func(c map[string]any) { delete(c, "uuid") },
		"missing role": func(c map[string]any) { delete(c, "role") },
		"unknown role": func(c map[string]any) { c["role"] = "superuser" },
		"missing exp":  func(c map[string]any) { delete(c, "exp") },
		"missing iat":  func(c map[string]any) { delete(c, "iat") },
		"string exp":   func(c map[string]any) { c["exp"] = "tomorrow" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			if _, err := v.Verify(mint(t, testSecret, c)); !errors.Is(err, jwtverifier.ErrMalformed) {
				t.Fatalf("got %v want %v", err, jwtverifier.ErrMalformed)
			}
		})
	}

	for _, raw := range []string{"", "abc", "a.b", "a.b.c.d", "!!!.???.***"} {
		if _, err := v.Verify(raw); !errors.Is(err, jwtverifier.ErrMalformed) {
			t.Fatalf("Verify(%q): got %v want %v", raw, err, jwtverifier.ErrMalformed)
		}
	}
}

func TestVerifier_Verify_ToleratesExtraRegisteredClaims(t *testing.T) {
	t.Parallel()

	v, _ := newVerifier()
	c := jwttestutil.Claims("user-123", "manager", testNow, time.Minute)
	c["sub"] = "alice@example.com"

	got, err := v.Verify(mint(t, testSecret, c))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.SubjectID != "user-123" || got.Role != domain.RoleManager {
		t.Fatalf("claims: %+v", got)
	}
}

func TestVerifier_Verify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	v, _ := newVerifier()
	claims := jwttestutil.Claims("user-123", "admin", testNow, time.Minute)
	for _, alg := range []string{"none", "RS256", "HS512"} {
		tok, err := jwttestutil.Mint(testSecret, map[string]any{"alg": alg, "typ": "JWT"}, claims)
		if err != nil {
			t.Fatalf("Mint: %v", err)
		}
		if _, err := v.Verify(tok); !errors.Is(err, jwtverifier.ErrInvalid) {
			t.Fatalf("alg=%s: got %v want %v", alg, err, jwtverifier.ErrInvalid)
		}
	}
}

func TestVerifier_VerifyHeader(t *testing.T) {
	t.Parallel()

	v, _ := newVerifier()
	tok := mint(t, testSecret, jwttestutil.Claims("user-123", "customer", testNow, time.Minute))

	for _, h := range []string{"", "Bearer", "Bearer ", "Bearer    ", "Basic abc", "bearer " + tok, tok} {
		if _, err := v.VerifyHeader(h); !errors.Is(err, jwtverifier.ErrMissing) {
			t.Fatalf("VerifyHeader(%q): got %v want %v", h, err, jwtverifier.ErrMissing)
		}
	}

	got, err := v.VerifyHeader("Bearer " + tok)
	if err != nil {
		t.Fatalf("VerifyHeader: %v", err)
	}
	if got.SubjectID != "user-123" {
		t.Fatalf("subject: got %q", got.SubjectID)
	}
}

func TestSigner_IssueVerifies(t *testing.T) {
	t.Parallel()

	v, clk := newVerifier()
	s := jwtverifier.NewSigner(testSecret, clk)

	c, tok, err := s.Issue("user-1", domain.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !sameClaims(got, c) {
		t.Fatalf("claims: got %+v want %+v", got, c)
	}

	if _, _, err := s.Issue("user-1", domain.Role("root"), time.Hour); err == nil {
		t.Fatalf("expected error for invalid role")
	}
	if _, _, err := s.Issue("user-1", domain.RoleAdmin, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestVerifier_Verify_NotYetValidIsInvalid(t *testing.T) {
	t.Parallel()

	v, clk := newVerifier()
	c := jwttestutil.Claims("user-123", "driver", testNow, time.Hour)
	c["nbf"] = testNow.Add(time.Minute).Unix()
	tok := mint(t, testSecret, c)

	if _, err := v.Verify(tok); !errors.Is(err, jwtverifier.ErrInvalid) {
		t.Fatalf("got %v want %v", err, jwtverifier.ErrInvalid)
	}
	clk.Advance(2 * time.Minute)
	if _, err := v.Verify(tok); err != nil {
		t.Fatalf("Verify after nbf: %v", err)
	}
}
