package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"meetsync/internal/calendar"
	"meetsync/internal/config"
	"meetsync/internal/database"
	"meetsync/internal/models"
)

const testServerSecret = "server-test-secret"

// fakeProvider is an in-memory calendar.Provider for handler tests.
type fakeProvider struct {
	mu     sync.Mutex
	events []calendar.ProviderEvent
	calls  int
}

func (p *fakeProvider) FetchEvents(_ context.Context, _ uint, _, _ time.Time) ([]calendar.ProviderEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return append([]calendar.ProviderEvent(nil), p.events...), nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type testServer struct {
	app      *fiber.App
	srv      *Server
	db       *gorm.DB
	provider *fakeProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:          testServerSecret,
		Env:                "test",
		ExternalPoolSize:   2,
		LockTimeoutSeconds: 2,
		SyncDebounceMs:     10,
		AutoSelectDays:     7,
	}

	provider := &fakeProvider{}
	srv, err := NewServerWithDeps(cfg, db, nil, provider)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	app := fiber.New()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	return &testServer{app: app, srv: srv, db: db, provider: provider}
}

func (ts *testServer) createUser(t *testing.T, username, email string) *models.User {
	t.Helper()
	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  "hashed",
		Timezone:  "UTC",
		WorkStart: "09:00",
		WorkEnd:   "18:00",
	}
	require.NoError(t, ts.db.Create(user).Error)
	return user
}

func authHeader(t *testing.T, userID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testServerSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

// do performs a request as the given user and decodes the JSON response
// into out when out is non-nil.
func (ts *testServer) do(t *testing.T, userID uint, method, path string, body, out interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", authHeader(t, userID))
	}

	resp, err := ts.app.Test(req, 5000)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}
