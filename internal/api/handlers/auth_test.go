package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podscribe/backend/internal/api/middleware"
	"github.com/podscribe/backend/internal/auth"
	"github.com/podscribe/backend/internal/db"
)

func newAuthTestHandler(t *testing.T) (*AuthHandler, *auth.JWTService) {
	t.Helper()
	database, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.EnsureAdmin("admin", "secret"))

	jwtService := auth.NewJWTService("test-secret")
	return NewAuthHandler(database, jwtService), jwtService
}

func postLogin(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLoginSuccess(t *testing.T) {
	h, jwtService := newAuthTestHandler(t)

	rec := postLogin(t, h, `{"username":"admin","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "admin", resp.User.Username)
	assert.Equal(t, "admin", resp.User.Role)

	claims, err := jwtService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
}

func TestLoginRejected(t *testing.T) {
	h, _ := newAuthTestHandler(t)

	assert.Equal(t, http.StatusUnauthorized, postLogin(t, h, `{"username":"admin","password":"wrong"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, postLogin(t, h, `{"username":"nobody","password":"secret"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postLogin(t, h, `not json`).Code)
}

func TestMe(t *testing.T) {
	h, jwtService := newAuthTestHandler(t)

	login := postLogin(t, h, `{"username":"admin","password":"secret"}`)
	require.Equal(t, http.StatusOK, login.Code)
	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &loginResp))

	// Me behind the auth middleware, the way the router mounts it.
	protected := middleware.AuthMiddleware(jwtService)(http.HandlerFunc(h.Me))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "admin", me["username"])
	assert.Equal(t, "admin", me["role"])
}

func TestMeWithoutClaims(t *testing.T) {
	h, _ := newAuthTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
