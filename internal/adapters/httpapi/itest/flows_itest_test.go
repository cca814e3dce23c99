package itest

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/ride-api/internal/platform/ratelimit"
)

func TestUsersAndTrips_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b, serverOptions{})

			// Missing or bogus credentials => 400 with the same body.
			for _, auth := range []string{"", "Bearer nope", "Bearer " + itestMasterKey} {
				status, body, _ := srv.doJSON(t, http.MethodGet, "/v1/users/"+uuid.NewString(), auth, nil)
				requireMessage(t, status, body, http.StatusBadRequest, "Invalid Authorization header")
			}

			admin := srv.issueToken(t, uuid.NewString(), "admin")

			// Admin creates a customer.
			var customerID string
			{
				status, body, hdr := srv.doJSON(t, http.MethodPost, "/v1/users", admin, map[string]any{
					"userName": "Carol Customer",
					"role":     "customer",
				})
				requireStatus(t, status, body, http.StatusCreated)
				requireHeaderPresent(t, hdr, "Location")
				customerID = mustUnmarshal[createdResponse](t, body).UUID
				if customerID == "" {
					t.Fatalf("expected uuid; body=%s", string(body))
				}
			}
			customer := srv.issueToken(t, customerID, "customer")

			// The customer reads their own record.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/v1/users/"+customerID, customer, nil)
				requireStatus(t, status, body, http.StatusOK)
				got := mustUnmarshal[struct {
					UUID     string `json:"uuid"`
					UserName string `json:"userName"`
					Role     string `json:"role"`
				}](t, body)
				if got.UUID != customerID || got.UserName != "Carol Customer" || got.Role != "customer" {
					t.Fatalf("unexpected user: %+v", got)
				}
			}

			// Customers cannot create users.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/v1/users", customer, map[string]any{
					"userName": "Mallory",
					"role":     "admin",
				})
				requireMessage(t, status, body, http.StatusForbidden, "Forbidden")
			}

			// Another customer cannot see Carol.
			stranger := srv.issueToken(t, uuid.NewString(), "customer")
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/v1/users/"+customerID, stranger, nil)
				requireMessage(t, status, body, http.StatusNotFound, "User not found")
			}

			// Carol books a trip; a driver is assigned by a manager on a second trip.
			var tripID string
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/v1/trips", customer, map[string]any{
					"startCoords": "37.7749,-122.4194",
					"endCoords":   "37.8044,-122.2712",
				})
				requireStatus(t, status, body, http.StatusCreated)
				tripID = mustUnmarshal[createdResponse](t, body).UUID
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/v1/trips/"+tripID, customer, nil)
				requireStatus(t, status, body, http.StatusOK)
				got := mustUnmarshal[map[string]any](t, body)
				if got["consumerUuid"] != customerID {
					t.Fatalf("consumerUuid=%v want=%s", got["consumerUuid"], customerID)
				}
				if _, ok := got["driverUuid"]; ok {
					t.Fatalf("expected no driverUuid; body=%s", string(body))
				}
			}
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/v1/trips/"+tripID, stranger, nil)
				requireMessage(t, status, body, http.StatusNotFound, "Trip not found")
			}

			driverID := uuid.NewString()
			manager := srv.issueToken(t, uuid.NewString(), "manager")
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/v1/trips", manager, map[string]any{
					"startCoords":  "0,0",
					"endCoords":    "1,1",
					"consumerUuid": customerID,
					"driverUuid":   driverID,
				})
				requireStatus(t, status, body, http.StatusCreated)
				assigned := mustUnmarshal[createdResponse](t, body).UUID

				driver := srv.issueToken(t, driverID, "driver")
				status, body, _ = srv.doJSON(t, http.MethodGet, "/v1/trips/"+assigned, driver, nil)
				requireStatus(t, status, body, http.StatusOK)
				if got := mustUnmarshal[map[string]any](t, body); got["driverUuid"] != driverID {
					t.Fatalf("driverUuid=%v want=%s", got["driverUuid"], driverID)
				}

				// The driver is not a participant of Carol's first trip.
				status, body, _ = srv.doJSON(t, http.MethodGet, "/v1/trips/"+tripID, driver, nil)
				requireMessage(t, status, body, http.StatusNotFound, "Trip not found")
			}
		})
	}
}

func TestIdempotency_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b, serverOptions{})
			customer := srv.issueToken(t, uuid.NewString(), "customer")
			key := uuid.NewString()
			req := map[string]any{"startCoords": "10,10", "endCoords": "11,11"}

			status, body, hdr := srv.doJSON(t, http.MethodPost, "/v1/trips", customer, req, "Idempotency-Key", key)
			requireStatus(t, status, body, http.StatusCreated)
			first := mustUnmarshal[createdResponse](t, body).UUID
			location := hdr.Get("Location")

			status, body, hdr = srv.doJSON(t, http.MethodPost, "/v1/trips", customer, req, "Idempotency-Key", key)
			requireStatus(t, status, body, http.StatusCreated)
			if got := mustUnmarshal[createdResponse](t, body).UUID; got != first {
				t.Fatalf("replayed uuid=%s want=%s", got, first)
			}
			if hdr.Get("Idempotent-Replayed") != "true" || hdr.Get("Location") != location {
				t.Fatalf("unexpected replay headers: %v", hdr)
			}

			status, body, _ = srv.doJSON(t, http.MethodPost, "/v1/trips", customer, map[string]any{
				"startCoords": "10,10",
				"endCoords":   "12,12",
			}, "Idempotency-Key", key)
			requireMessage(t, status, body, http.StatusConflict, "Idempotency key reused with a different payload")
		})
	}
}

func TestRateLimit_ITest(t *testing.T) {
	srv := newTestServer(t, backendMemory, serverOptions{rateLimit: ratelimit.Config{RefillPerSecond: 2, Burst: 5}})

	for i := 0; i < 5; i++ {
		status, body, _ := srv.doJSON(t, http.MethodGet, "/v1/trips/"+uuid.NewString(), "", nil)
		requireStatus(t, status, body, http.StatusBadRequest)
	}
	status, body, _ := srv.doJSON(t, http.MethodGet, "/v1/trips/"+uuid.NewString(), "", nil)
	requireMessage(t, status, body, http.StatusTooManyRequests, "Too many requests")

	// Health checks are outside the limited prefix.
	status, body, _ = srv.doJSON(t, http.MethodGet, "/healthz", "", nil)
	requireStatus(t, status, body, http.StatusOK)

	srv.clock.Advance(500 * time.Millisecond)
	status, body, _ = srv.doJSON(t, http.MethodGet, "/v1/trips/"+uuid.NewString(), "", nil)
	requireStatus(t, status, body, http.StatusBadRequest)
	status, body, _ = srv.doJSON(t, http.MethodGet, "/v1/trips/"+uuid.NewString(), "", nil)
	requireStatus(t, status, body, http.StatusTooManyRequests)
}
