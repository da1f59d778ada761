package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerLoginAndLogout(t *testing.T) {
	svc, ids, user := newTestService(t)
	h := NewHandler(ids, svc)

	app := fiber.New()
	app.Post("/login", h.Login)
	app.Post("/logout", h.Logout)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"handle":"alice","pin":"1234"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, user.ID, body.AccountID)
	assert.NotEmpty(t, body.AccessToken)

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+body.AccessToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// the same token is now stale
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+body.AccessToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerLoginWrongPIN(t *testing.T) {
	svc, ids, _ := newTestService(t)
	h := NewHandler(ids, svc)

	app := fiber.New()
	app.Post("/login", h.Login)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"handle":"alice","pin":"9999"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
