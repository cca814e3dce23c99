// Package jwttestutil builds raw HS256 tokens with arbitrary headers and payloads,
// including shapes a well-behaved signer would refuse to produce.
package jwttestutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"
)

// Claims returns a valid access token payload for subject/role at now with the given lifetime.
func Claims(subject, role string, now time.Time, expDelta time.Duration) map[string]any {
	return map[string]any{
		"uuid": subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(expDelta).Unix(),
	}
}

// MintHS256 signs claims with secret using an HS256 header.
func MintHS256(secret []byte, claims map[string]any) (string, error) {
	return Mint(secret, map[string]any{"alg": "HS256", "typ": "JWT"}, claims)
}

// Mint encodes header and claims as given and signs them with HMAC-SHA256,
// whatever the header's alg says.
func Mint(secret []byte, header map[string]any, claims map[string]any) (string, error) {
	hb, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	cb, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding
	signingInput := enc.EncodeToString(hb) + "." + enc.EncodeToString(cb)
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(signingInput))
	return signingInput + "." + enc.EncodeToString(mac.Sum(nil)), nil
}
