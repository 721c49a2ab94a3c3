package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authMiddleware "vras/internal/auth/middleware"
	"vras/internal/auth/models"
	"vras/internal/auth/service"
	"vras/internal/auth/store/revocation"
	userStore "vras/internal/auth/store/user"
	"vras/internal/platform/logger"
	"vras/internal/sentinel"
	tenantModels "vras/internal/tenant/models"
	id "vras/pkg/domain"
)

type tenantStoreStub struct {
	tenants map[id.TenantID]*tenantModels.Tenant
	plans   map[id.SubscriptionID]*tenantModels.Subscription
}

func (s *tenantStoreStub) FindByID(_ context.Context, tenantID id.TenantID) (*tenantModels.Tenant, error) {
	if t, ok := s.tenants[tenantID]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
}

func (s *tenantStoreStub) FindSubscriptionByID(_ context.Context, subscriptionID id.SubscriptionID) (*tenantModels.Subscription, error) {
	if p, ok := s.plans[subscriptionID]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
}

type testServer struct {
	router *chi.Mux
	users  *userStore.InMemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := userStore.New()
	tenants := &tenantStoreStub{
		tenants: map[id.TenantID]*tenantModels.Tenant{
			1: {ID: 1, Slug: "range-co", Name: "Range Co", Email: "ops@range.example",
				EndAt: time.Now().AddDate(1, 0, 0), Status: tenantModels.TenantStatusActive},
		},
		plans: map[id.SubscriptionID]*tenantModels.Subscription{},
	}
	revoked := revocation.NewInMemory()
	log := logger.New()
	svc := service.NewService(users, tenants, revoked,
		service.WithLogger(log),
		service.WithBcryptCost(bcrypt.MinCost),
	)
	h := New(svc, log, authMiddleware.DefaultCookieName)
	auth := authMiddleware.NewAuthenticator(users, revoked, authMiddleware.WithLogger(log))

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterPublic(r)
		r.Route("/admin", func(r chi.Router) {
			h.RegisterPublicAdmin(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Use(auth.RequireRole(models.RoleOperator, models.RoleUser))
			h.RegisterSession(r)
			h.RegisterProfile(r)
			h.RegisterUsers(r)
		})
	})

	srv := &testServer{router: r, users: users}
	srv.seedUser(t, models.RoleOperator, "alice", "correct")
	return srv
}

func (s *testServer) seedUser(t *testing.T, role models.Role, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := models.NewUser(1, role, "Alice", username, username+"@example.com", "055"+username, string(hash), time.Now())
	require.NoError(t, err)
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func parseEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func loginToken(t *testing.T, env envelope) string {
	t.Helper()
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestLoginLogoutReplayScenario(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice", "password": "correct",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := parseEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, env.Message, "successful")
	token := loginToken(t, env)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authMiddleware.DefaultCookieName, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, 604800, cookies[0].MaxAge)

	rec = srv.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", parseEnvelope(t, rec).Message)
}

func TestSecondLoginInvalidatesFirstTokenOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	first := loginToken(t, parseEnvelope(t, srv.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice", "password": "correct",
	})))
	second := loginToken(t, parseEnvelope(t, srv.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice", "password": "correct",
	})))
	require.NotEqual(t, first, second)

	rec := srv.do(t, http.MethodGet, "/api/profile", first, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/profile", second, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/login", "", map[string]string{"password": "x"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	env := parseEnvelope(t, rec)
	assert.False(t, env.Success)

	var fields map[string]struct {
		Message string `json:"message"`
		Rule    string `json:"rule"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Equal(t, "required", fields["username"].Rule)
}

func TestLoginInvalidCredentialsShape(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var fields map[string]struct {
		Message string `json:"message"`
		Rule    string `json:"rule"`
	}
	require.NoError(t, json.Unmarshal(parseEnvelope(t, rec).Data, &fields))
	assert.Equal(t, "Invalid credentials.", fields["username"].Message)
	assert.Equal(t, "same", fields["username"].Rule)
}

func TestMissingCredentialMessage(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing authorization cookie.", parseEnvelope(t, rec).Message)
}

func TestPairingCodeThenVRLogin(t *testing.T) {
	srv := newTestServer(t)

	token := loginToken(t, parseEnvelope(t, srv.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice", "password": "correct",
	})))

	rec := srv.do(t, http.MethodPost, "/api/pairing-code", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(parseEnvelope(t, rec).Data, &data))
	require.Len(t, data.Code, 4)

	rec = srv.do(t, http.MethodPost, "/api/vrlogin", "", map[string]string{"code": data.Code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, token, loginToken(t, parseEnvelope(t, rec)), "headset shares the browser session")
}

func TestUserAdministration(t *testing.T) {
	srv := newTestServer(t)

	token := loginToken(t, parseEnvelope(t, srv.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice", "password": "correct",
	})))

	rec := srv.do(t, http.MethodPost, "/api/users", token, map[string]any{
		"name": "Bob", "username": "bob", "email": "bob@example.com",
		"mobile": "0551234567", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created UserResponse
	require.NoError(t, json.Unmarshal(parseEnvelope(t, rec).Data, &created))
	require.NotZero(t, created.ID)

	rec = srv.do(t, http.MethodGet, "/api/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d", created.ID), token, map[string]any{
		"name": "Robert",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated UserResponse
	require.NoError(t, json.Unmarshal(parseEnvelope(t, rec).Data, &updated))
	assert.Equal(t, "Robert", updated.Name)

	// duplicate identifiers are field errors
	rec = srv.do(t, http.MethodPost, "/api/users", token, map[string]any{
		"name": "Copy", "username": "bob", "email": "copy@example.com",
		"mobile": "0557654321", "password": "secret1",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = srv.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", created.ID), token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangePasswordFlow(t *testing.T) {
	srv := newTestServer(t)

	token := loginToken(t, parseEnvelope(t, srv.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice", "password": "correct",
	})))

	rec := srv.do(t, http.MethodPost, "/api/change-password", token, map[string]string{
		"current_password": "correct", "password": "next-secret", "password_confirmation": "next-secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice", "password": "next-secret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
