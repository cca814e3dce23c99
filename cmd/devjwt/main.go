package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/ride-api/internal/domain"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/jwtverifier"
	"github.com/Overland-East-Bay/ride-api/internal/platform/config"
	"github.com/Overland-East-Bay/ride-api/internal/platform/logging"
)

// Tiny dev-only token issuer.
//
// It signs HS256 access tokens with the same shared secret the API verifies,
// so local clients can obtain a token for any subject and role without the
// master key.

func main() {
	log, err := logging.New(os.Stderr, "info", "console")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "5556")
	secret := getenv("JWT_SECRET", config.DevJWTSecret)
	ttl := getenvDuration("TTL", 30*time.Minute)

	signer := jwtverifier.NewSigner([]byte(secret), nil)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Mint a token:
	//   GET /token?uuid=1b4e...&role=customer
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("uuid"))
		if sub == "" {
			http.Error(w, "missing uuid", http.StatusBadRequest)
			return
		}
		role, err := domain.ParseRole(getOr(r.URL.Query().Get("role"), string(domain.RoleCustomer)))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		c, token, err := signer.Issue(domain.SubjectID(sub), role, ttl)
		if err != nil {
			log.Error("failed to mint token", zap.Error(err))
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": token,
			"uuid":  c.SubjectID,
			"role":  c.Role,
			"exp":   c.ExpiresAt.Unix(),
		})
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("devjwt listening", zap.String("port", port), zap.Duration("ttl", ttl))
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("listen", zap.Error(err))
	}
}

func getOr(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func getenv(k, def string) string {
	return getOr(os.Getenv(k), def)
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
