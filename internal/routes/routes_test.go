package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/currency/internal/config"
	"github.com/congo-pay/currency/internal/ledger"
	"github.com/congo-pay/currency/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		Env:             "development",
		StoreBackend:    config.BackendMemory,
		JWTSecret:       "access",
		RefreshSecret:   "refresh",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		LoginRateLimit:  5,
		IdempotencyTTL:  time.Minute,
	}
}

func newApp(t *testing.T, cache *redis.Client) *fiber.App {
	t.Helper()
	app := fiber.New()
	err := Setup(app, Deps{Cfg: testConfig(), Cache: cache, Store: ledger.NewInMemory(), Logger: logging.Discard()})
	require.NoError(t, err)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func registerAndLogin(t *testing.T, app *fiber.App, handle string) (accountID, token string) {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/v1/identity/register", "", `{"handle":"`+handle+`","pin":"1234"}`, nil)
	require.Equal(t, http.StatusCreated, status)
	accountID = body["account_id"].(string)

	status, body = call(t, app, http.MethodPost, "/api/v1/auth/login", "", `{"handle":"`+handle+`","pin":"1234"}`, nil)
	require.Equal(t, http.StatusOK, status)
	return accountID, body["access_token"].(string)
}

func TestSetupRequiresStore(t *testing.T) {
	err := Setup(fiber.New(), Deps{Cfg: testConfig(), Logger: logging.Discard()})
	assert.Error(t, err)
}

func TestSetupRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	err := Setup(fiber.New(), Deps{Cfg: cfg, Store: ledger.NewInMemory(), Logger: logging.Discard()})
	assert.Error(t, err)
}

func TestEndToEndMintAndTransfer(t *testing.T) {
	app := newApp(t, nil)

	alice, aliceToken := registerAndLogin(t, app, "alice")
	bob, bobToken := registerAndLogin(t, app, "bob")

	status, _ := call(t, app, http.MethodPost, "/api/v1/currency/mint_unsafe", aliceToken, `{"dest":"`+bob+`","amount":"500"}`, nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, app, http.MethodPost, "/api/v1/currency/transfer", bobToken, `{"dest":"`+alice+`","amount":"200"}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, bob, body["caller"])

	// alice now holds a balance entry and can no longer mint
	status, _ = call(t, app, http.MethodPost, "/api/v1/currency/mint_unsafe", aliceToken, `{"dest":"`+alice+`","amount":"1"}`, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = call(t, app, http.MethodGet, "/api/v1/currency/issuance", "", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "500", body["issuance"])
	assert.Equal(t, true, body["balanced"])

	status, _ = call(t, app, http.MethodPost, "/api/v1/currency/transfer", "not-a-token", `{"dest":"`+alice+`","amount":"1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoggedOutTokenCannotTransfer(t *testing.T) {
	app := newApp(t, nil)
	_, aliceToken := registerAndLogin(t, app, "alice")

	status, _ := call(t, app, http.MethodPost, "/api/v1/auth/logout", aliceToken, "", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/currency/mint_unsafe", aliceToken, `{"dest":"x","amount":"1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestIdempotentMintWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()
	app := newApp(t, cache)

	_, token := registerAndLogin(t, app, "alice")
	headers := map[string]string{"Idempotency-Key": "mint-1"}

	for i := 0; i < 2; i++ {
		status, _ := call(t, app, http.MethodPost, "/api/v1/currency/mint_unsafe", token, `{"dest":"bob","amount":"7"}`, headers)
		require.Equal(t, http.StatusCreated, status, "attempt %d", i)
	}

	_, body := call(t, app, http.MethodGet, "/api/v1/currency/balances/bob", "", "", nil)
	assert.Equal(t, "7", body["amount"], "replayed request must not mint twice")
}

func TestHealthAndMetrics(t *testing.T) {
	app := newApp(t, nil)

	status, body := call(t, app, http.MethodGet, "/healthz", "", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "memory", body["store"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
