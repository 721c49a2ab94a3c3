package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vras/internal/auth/models"
	"vras/internal/auth/store/revocation"
	userStore "vras/internal/auth/store/user"
	id "vras/pkg/domain"
)

func seedUser(t *testing.T, store *userStore.InMemoryStore, role models.Role, token string) *models.User {
	t.Helper()
	tenantID := int64(1)
	if role == models.RoleAdmin {
		tenantID = 0
	}
	u, err := models.NewUser(
		id.TenantID(tenantID), role, "Alice", "alice-"+string(role), string(role)+"@example.com", "0550000", "hash", time.Now())
	require.NoError(t, err)
	u.ApplySessionToken(token)
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func okHandler(t *testing.T, sawPrincipal *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := PrincipalFromContext(r.Context())
		*sawPrincipal = ok
		w.WriteHeader(http.StatusOK)
	})
}

func envelopeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestRequireAuthMissingCredential(t *testing.T) {
	auth := NewAuthenticator(userStore.New(), revocation.NewInMemory())
	var saw bool
	rec := httptest.NewRecorder()
	auth.RequireAuth(okHandler(t, &saw)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing authorization cookie.", envelopeMessage(t, rec))
	assert.False(t, saw)
}

func TestRequireAuthAcceptsCookieAndBearer(t *testing.T) {
	users := userStore.New()
	seedUser(t, users, models.RoleUser, "tok-1")
	auth := NewAuthenticator(users, revocation.NewInMemory())

	t.Run("cookie", func(t *testing.T) {
		var saw bool
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "tok-1"})
		rec := httptest.NewRecorder()
		auth.RequireAuth(okHandler(t, &saw)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, saw)
	})

	t.Run("bearer header", func(t *testing.T) {
		var saw bool
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		auth.RequireAuth(okHandler(t, &saw)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, saw)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		var saw bool
		req := httptest.NewRequest(http.MethodGet, "/profile", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "stale-cookie"})
		rec := httptest.NewRecorder()
		auth.RequireAuth(okHandler(t, &saw)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "bearer header takes precedence")
	})
}

func TestRequireAuthUnknownToken(t *testing.T) {
	auth := NewAuthenticator(userStore.New(), revocation.NewInMemory())
	var saw bool
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	rec := httptest.NewRecorder()
	auth.RequireAuth(okHandler(t, &saw)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", envelopeMessage(t, rec))
}

func TestRequireAuthRevokedTokenStillOnRow(t *testing.T) {
	users := userStore.New()
	seedUser(t, users, models.RoleUser, "tok-1")
	revoked := revocation.NewInMemory()
	require.NoError(t, revoked.Revoke(context.Background(), "tok-1", time.Hour))

	// The store row still carries tok-1; revocation must win the race.
	auth := NewAuthenticator(users, revoked)
	var saw bool
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	auth.RequireAuth(okHandler(t, &saw)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", envelopeMessage(t, rec))
	assert.False(t, saw)
}

func TestRequireAuthInactivePrincipal(t *testing.T) {
	users := userStore.New()
	u := seedUser(t, users, models.RoleUser, "tok-1")
	u.Status = models.UserStatusInactive
	require.NoError(t, users.Update(context.Background(), u))

	auth := NewAuthenticator(users, revocation.NewInMemory())
	var saw bool
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	auth.RequireAuth(okHandler(t, &saw)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	users := userStore.New()
	seedUser(t, users, models.RoleUser, "user-tok")
	seedUser(t, users, models.RoleAdmin, "admin-tok")
	auth := NewAuthenticator(users, revocation.NewInMemory())

	var saw bool
	adminOnly := auth.RequireAuth(auth.RequireRole(models.RoleAdmin)(okHandler(t, &saw)))

	t.Run("mismatch", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/clients", nil)
		req.Header.Set("Authorization", "Bearer user-tok")
		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Access forbidden.", envelopeMessage(t, rec))
	})

	t.Run("match", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/clients", nil)
		req.Header.Set("Authorization", "Bearer admin-tok")
		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAnonymousMintsCookie(t *testing.T) {
	auth := NewAuthenticator(userStore.New(), revocation.NewInMemory())
	handler := auth.Anonymous(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/contact-mail", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, DefaultCookieName, c.Name)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 604800, c.MaxAge)

	// an existing cookie is left alone
	req := httptest.NewRequest(http.MethodPost, "/contact-mail", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "existing"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies())
}
