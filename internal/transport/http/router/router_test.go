package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authHandler "vras/internal/auth/handler"
	authMiddleware "vras/internal/auth/middleware"
	authModels "vras/internal/auth/models"
	authService "vras/internal/auth/service"
	"vras/internal/auth/store/revocation"
	userStore "vras/internal/auth/store/user"
	catalogHandler "vras/internal/catalog/handler"
	catalogService "vras/internal/catalog/service"
	catalogStore "vras/internal/catalog/store"
	contactHandler "vras/internal/contact/handler"
	"vras/internal/mail"
	"vras/internal/platform/logger"
	tenantHandler "vras/internal/tenant/handler"
	tenantModels "vras/internal/tenant/models"
	tenantService "vras/internal/tenant/service"
	tenantStore "vras/internal/tenant/store"
	trainingHandler "vras/internal/training/handler"
	trainingService "vras/internal/training/service"
	trainingStore "vras/internal/training/store"
)

// newTestRouter wires the full route tree on in-memory stores with one
// tenant and its operator (alice/correct) seeded.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.New()
	now := time.Now()

	users := userStore.New()
	tenants := tenantStore.New()
	catalog := catalogStore.New()
	training := trainingStore.New()
	revoked := revocation.NewInMemory()
	mailer := mail.NewLog(log)

	tenant, err := tenantModels.NewTenant("range-co", "Range Co", "ops@range.co", "+1", 0,
		now, now.AddDate(1, 0, 0), now)
	require.NoError(t, err)
	require.NoError(t, tenants.Create(t.Context(), tenant))

	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)
	alice, err := authModels.NewUser(tenant.ID, authModels.RoleOperator,
		"Alice", "alice", "alice@range.co", "+100", string(hash), now)
	require.NoError(t, err)
	require.NoError(t, users.Create(t.Context(), alice))

	authSvc := authService.NewService(users, tenants, revoked,
		authService.WithLogger(log), authService.WithMailer(mailer),
		authService.WithBcryptCost(bcrypt.MinCost))
	tenantSvc := tenantService.NewService(tenants, users,
		tenantService.WithLogger(log), tenantService.WithMailer(mailer),
		tenantService.WithBcryptCost(bcrypt.MinCost))
	catalogSvc := catalogService.NewService(catalog, catalogService.WithLogger(log))
	trainingSvc := trainingService.NewService(training, trainingService.WithLogger(log))

	authenticator := authMiddleware.NewAuthenticator(users, revoked, authMiddleware.WithLogger(log))

	return New(Deps{
		Logger:        log,
		Authenticator: authenticator,
		Auth:          authHandler.New(authSvc, log, ""),
		Tenant:        tenantHandler.New(tenantSvc, log),
		Catalog:       catalogHandler.New(catalogSvc, log),
		Training:      trainingHandler.New(trainingSvc, log),
		Contact:       contactHandler.New(mailer, "support@vras.local", log),
	})
}

func loginToken(t *testing.T, mux http.Handler) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "correct"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)
	return envelope.Data.Token
}

func TestRouterTenantSurface(t *testing.T) {
	mux := newTestRouter(t)
	token := loginToken(t, mux)

	// authenticated tenant routes resolve
	for _, path := range []string{"/api/profile", "/api/users", "/api/sessions", "/api/weapons", "/api/targets"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	// no credential
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAdminSurfaceRejectsOperators(t *testing.T) {
	mux := newTestRouter(t)
	token := loginToken(t, mux)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/clients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterMetricsExportStreamsCSV(t *testing.T) {
	mux := newTestRouter(t)
	token := loginToken(t, mux)

	body, _ := json.Marshal(map[string]any{"name": "night drill"})
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/performance-metrics/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "performance-metrics-")
	assert.Contains(t, rec.Body.String(), "metric_id,session_id,session_name")
}

func TestRouterPublicEndpoints(t *testing.T) {
	mux := newTestRouter(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// contact form rides on an anonymous session cookie
	body, _ := json.Marshal(map[string]string{
		"name": "Visitor", "email": "v@example.com", "subject": "Demo", "message": "Hi",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/contact-mail", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "anonymous session cookie minted")
	assert.Equal(t, authMiddleware.DefaultCookieName, cookies[0].Name)
}
