package httpapi

import (
	"context"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
)

type claimsKey struct{}

// WithClaims stores the verified claims for the rest of the request.
func WithClaims(ctx context.Context, c domain.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (domain.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(domain.Claims)
	return c, ok && c.SubjectID != ""
}
