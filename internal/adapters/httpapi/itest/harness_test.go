package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/Overland-East-Bay/ride-api/internal/adapters/httpapi"
	memidempotency "github.com/Overland-East-Bay/ride-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/Overland-East-Bay/ride-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/Overland-East-Bay/ride-api/internal/adapters/memory/userrepo"
	pgidempotency "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres/triprepo"
	pguserrepo "github.com/Overland-East-Bay/ride-api/internal/adapters/postgres/userrepo"
	sqliteidempotency "github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite/idempotency"
	sqlite_testutil "github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite/testutil"
	sqlitetriprepo "github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite/triprepo"
	sqliteuserrepo "github.com/Overland-East-Bay/ride-api/internal/adapters/sqlite/userrepo"
	"github.com/Overland-East-Bay/ride-api/internal/app/trips"
	"github.com/Overland-East-Bay/ride-api/internal/app/users"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/jwtverifier"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/masterkey"
	"github.com/Overland-East-Bay/ride-api/internal/platform/clock"
	"github.com/Overland-East-Bay/ride-api/internal/platform/ratelimit"
	idempotencyport "github.com/Overland-East-Bay/ride-api/internal/ports/out/idempotency"
	triprepoport "github.com/Overland-East-Bay/ride-api/internal/ports/out/triprepo"
	userrepoport "github.com/Overland-East-Bay/ride-api/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendSQLite   backend = "sqlite"
	backendPostgres backend = "postgres"
)

const (
	itestSecret    = "ITEST_JWT_SECRET"
	itestMasterKey = "ITEST_MASTER_KEY"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "sqlite":
		return []backend{backendSQLite}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendSQLite, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|sqlite|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	clock   *clock.ManualClock
}

type serverOptions struct {
	rateLimit ratelimit.Config
}

func newTestServer(t *testing.T, b backend, opts serverOptions) *testServer {
	t.Helper()

	clk := clock.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	var (
		userRepo  userrepoport.Repository
		tripRepo  triprepoport.Repository
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		userRepo = pguserrepo.NewRepoWithClock(pool, clk)
		tripRepo = pgtriprepo.NewRepoWithClock(pool, clk)
		idemStore = pgidempotency.NewStore(pool)
	case backendSQLite:
		db := sqlite_testutil.OpenTemp(t)
		userRepo = sqliteuserrepo.NewRepoWithClock(db, clk)
		tripRepo = sqlitetriprepo.NewRepoWithClock(db, clk)
		idemStore = sqliteidempotency.NewStore(db)
	case backendMemory:
		userRepo = memuserrepo.NewRepoWithClock(clk)
		tripRepo = memtriprepo.NewRepoWithClock(clk)
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	if opts.rateLimit.Burst == 0 {
		opts.rateLimit = ratelimit.Config{RefillPerSecond: 1000, Burst: 1000}
	}
	limiter, err := ratelimit.New(opts.rateLimit, ratelimit.WithClock(clk), ratelimit.WithLogger(log))
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	api := httpapi.NewServer(
		users.NewService(userRepo),
		trips.NewService(tripRepo),
		jwtverifier.NewSigner([]byte(itestSecret), clk),
		httpapi.WithIdempotencyStore(idemStore),
		httpapi.WithLogger(log),
		httpapi.WithClock(clk),
	)

	metrics := httpapi.NewMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.PrometheusCollectors()...)
	reg.MustRegister(limiter.PrometheusCollectors()...)

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		Verifier:       jwtverifier.NewWithOptions([]byte(itestSecret), clk),
		MasterKey:      masterkey.NewGate(itestMasterKey),
		Limiter:        limiter,
		Logger:         log,
		Metrics:        metrics,
		Gatherer:       reg,
		RequestTimeout: 10 * time.Second,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clock:   clk,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, authorization string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

// issueToken mints an access token through the master-key route.
func (s *testServer) issueToken(t *testing.T, subject, role string) string {
	t.Helper()
	status, body, _ := s.doJSON(t, http.MethodPost, "/v1/admin/tokens", "Bearer "+itestMasterKey, map[string]any{
		"uuid": subject,
		"role": role,
	})
	requireStatus(t, status, body, http.StatusCreated)
	return "Bearer " + mustUnmarshal[struct {
		Token string `json:"token"`
	}](t, body).Token
}

type errorResponse struct {
	Message string `json:"message"`
}

type createdResponse struct {
	UUID string `json:"uuid"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireMessage(t *testing.T, status int, body []byte, wantStatus int, wantMessage string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Message != wantMessage {
		t.Fatalf("message=%q want=%q body=%s", got.Message, wantMessage, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
