package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authMiddleware "vras/internal/auth/middleware"
	"vras/internal/auth/models"
	"vras/internal/auth/service"
	httpError "vras/internal/transport/http/error"
	jsonResponse "vras/internal/transport/http/json"
	"vras/internal/transport/http/request"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// AuthService defines the auth operations the handlers invoke. Returns domain
// objects, not HTTP response DTOs.
type AuthService interface {
	LoginTenant(ctx context.Context, identifier, password, userAgent string) (*service.LoginResult, error)
	LoginAdmin(ctx context.Context, identifier, password, userAgent string) (*service.LoginResult, error)
	LoginPairing(ctx context.Context, code string) (*service.LoginResult, error)
	IssuePairingCode(ctx context.Context, user *models.User) (string, error)
	Logout(ctx context.Context, user *models.User) error
	ForgotPassword(ctx context.Context, email string, adminScope bool) error
	ResetPassword(ctx context.Context, email, code, newPassword string, adminScope bool) error
	ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword string) error
	ListUsers(ctx context.Context, tenantID id.TenantID) ([]*models.User, error)
	CreateUser(ctx context.Context, tenantID id.TenantID, in service.UserInput) (*models.User, error)
	GetUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) (*models.User, error)
	UpdateUser(ctx context.Context, tenantID id.TenantID, userID id.UserID, in service.UserInput) (*models.User, error)
	DeleteUser(ctx context.Context, tenantID id.TenantID, userID id.UserID) error
	UpdateProfile(ctx context.Context, user *models.User, in service.UserInput) (*models.User, error)
	TokenTTL() time.Duration
}

type Handler struct {
	service    AuthService
	logger     *slog.Logger
	cookieName string
}

func New(svc AuthService, logger *slog.Logger, cookieName string) *Handler {
	if cookieName == "" {
		cookieName = authMiddleware.DefaultCookieName
	}
	return &Handler{service: svc, logger: logger, cookieName: cookieName}
}

// RegisterPublic mounts the unauthenticated tenant-facing routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/login", h.HandleLogin)
	r.Post("/vrlogin", h.HandlePairingLogin)
	r.Post("/forgot-password", h.HandleForgotPassword)
	r.Post("/reset-password", h.HandleResetPassword)
}

// RegisterPublicAdmin mounts the unauthenticated admin routes; the caller
// mounts the group under /admin.
func (h *Handler) RegisterPublicAdmin(r chi.Router) {
	r.Post("/login", h.HandleAdminLogin)
	r.Post("/forgot-password", h.HandleAdminForgotPassword)
	r.Post("/reset-password", h.HandleAdminResetPassword)
}

// RegisterSession mounts the routes every authenticated principal gets.
func (h *Handler) RegisterSession(r chi.Router) {
	r.Delete("/logout", h.HandleLogout)
	r.Post("/change-password", h.HandleChangePassword)
}

// RegisterProfile mounts tenant-principal profile and pairing routes.
func (h *Handler) RegisterProfile(r chi.Router) {
	r.Get("/profile", h.HandleGetProfile)
	r.Post("/profile", h.HandleUpdateProfile)
	r.Post("/pairing-code", h.HandlePairingCode)
}

// RegisterUsers mounts tenant-scoped user administration.
func (h *Handler) RegisterUsers(r chi.Router) {
	r.Get("/users", h.HandleListUsers)
	r.Post("/users", h.HandleCreateUser)
	r.Get("/users/{id}", h.HandleGetUser)
	r.Put("/users/{id}", h.HandleUpdateUser)
	r.Delete("/users/{id}", h.HandleDeleteUser)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.LoginTenant)
}

func (h *Handler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.service.LoginAdmin)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, loginFn func(context.Context, string, string, string) (*service.LoginResult, error)) {
	req, ok := request.Decode[LoginRequest](w, r)
	if !ok {
		return
	}

	res, err := loginFn(r.Context(), req.Username, req.Password, r.UserAgent())
	if err != nil {
		httpError.WriteError(w, err)
		return
	}

	authMiddleware.SetSessionCookie(w, h.cookieName, res.Token, h.service.TokenTTL())
	jsonResponse.Write(w, http.StatusOK, "User login successful.", map[string]any{
		"user":  toUserResponse(res.User),
		"token": res.Token,
	})
}

func (h *Handler) HandlePairingLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := request.Decode[PairingLoginRequest](w, r)
	if !ok {
		return
	}

	res, err := h.service.LoginPairing(r.Context(), req.Code)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}

	jsonResponse.Write(w, http.StatusOK, "User login successful.", map[string]any{
		"user":  toUserResponse(res.User),
		"token": res.Token,
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return
	}

	if err := h.service.Logout(r.Context(), user); err != nil {
		httpError.WriteError(w, err)
		return
	}

	authMiddleware.ClearSessionCookie(w, h.cookieName)
	jsonResponse.Write(w, http.StatusOK, "User logout successful.", nil)
}

func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.forgotPassword(w, r, false)
}

func (h *Handler) HandleAdminForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.forgotPassword(w, r, true)
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request, adminScope bool) {
	req, ok := request.Decode[ForgotPasswordRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email, adminScope); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Password reset code sent.", nil)
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	h.resetPassword(w, r, false)
}

func (h *Handler) HandleAdminResetPassword(w http.ResponseWriter, r *http.Request) {
	h.resetPassword(w, r, true)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request, adminScope bool) {
	req, ok := request.Decode[ResetPasswordRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.Password, adminScope); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Password reset successful.", nil)
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return
	}
	req, ok := request.Decode[ChangePasswordRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.ChangePassword(r.Context(), user, req.CurrentPassword, req.Password); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Password changed successfully.", nil)
}

func (h *Handler) HandlePairingCode(w http.ResponseWriter, r *http.Request) {
	user, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return
	}

	code, err := h.service.IssuePairingCode(r.Context(), user)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Pairing code generated.", map[string]any{"code": code})
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Profile fetched.", toUserResponse(user))
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return
	}
	req, ok := request.Decode[UpdateProfileRequest](w, r)
	if !ok {
		return
	}

	in := service.UserInput{
		Name:        req.Name,
		LastName:    req.LastName,
		Username:    req.Username,
		Email:       req.Email,
		Mobile:      req.Mobile,
		Avatar:      req.Avatar,
		Gender:      models.Gender(req.Gender),
		PrimaryHand: models.PrimaryHand(req.PrimaryHand),
		Address:     req.Address,
		City:        req.City,
		Country:     req.Country,
		PostalCode:  req.PostalCode,
		Notes:       req.Notes,
	}
	if dob, ok := parseDate(req.DateOfBirth); ok {
		in.DateOfBirth = &dob
	}

	updated, err := h.service.UpdateProfile(r.Context(), user, in)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Profile updated.", toUserResponse(updated))
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return
	}

	users, err := h.service.ListUsers(r.Context(), user.TenantID)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Users fetched.", map[string]any{"users": toUserResponses(users)})
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return
	}
	req, ok := request.Decode[CreateUserRequest](w, r)
	if !ok {
		return
	}

	created, err := h.service.CreateUser(r.Context(), principal.TenantID, userInputFromCreate(req))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusCreated, "User created successfully.", toUserResponse(created))
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	principal, userID, ok := h.principalAndUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), principal.TenantID, userID)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "User fetched.", toUserResponse(user))
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, userID, ok := h.principalAndUserID(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[UpdateUserRequest](w, r)
	if !ok {
		return
	}

	updated, err := h.service.UpdateUser(r.Context(), principal.TenantID, userID, userInputFromUpdate(req))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "User updated successfully.", toUserResponse(updated))
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, userID, ok := h.principalAndUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), principal.TenantID, userID); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "User deleted successfully.", nil)
}

func (h *Handler) principalAndUserID(w http.ResponseWriter, r *http.Request) (*models.User, id.UserID, bool) {
	principal, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return nil, 0, false
	}
	raw, err := id.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid user id."))
		return nil, 0, false
	}
	return principal, id.UserID(raw), true
}

func userInputFromCreate(req CreateUserRequest) service.UserInput {
	in := service.UserInput{
		Name:            req.Name,
		LastName:        req.LastName,
		Username:        req.Username,
		Email:           req.Email,
		Mobile:          req.Mobile,
		Password:        req.Password,
		Role:            models.Role(req.Role),
		Avatar:          req.Avatar,
		Gender:          models.Gender(req.Gender),
		PrimaryHand:     models.PrimaryHand(req.PrimaryHand),
		Address:         req.Address,
		City:            req.City,
		Country:         req.Country,
		PostalCode:      req.PostalCode,
		ExperienceLevel: req.ExperienceLevel,
		StressLevel:     req.StressLevel,
		Notes:           req.Notes,
	}
	if dob, ok := parseDate(req.DateOfBirth); ok {
		in.DateOfBirth = &dob
	}
	return in
}

func userInputFromUpdate(req UpdateUserRequest) service.UserInput {
	in := service.UserInput{
		Name:            req.Name,
		LastName:        req.LastName,
		Username:        req.Username,
		Email:           req.Email,
		Mobile:          req.Mobile,
		Password:        req.Password,
		Role:            models.Role(req.Role),
		Status:          models.UserStatus(req.Status),
		Avatar:          req.Avatar,
		Gender:          models.Gender(req.Gender),
		PrimaryHand:     models.PrimaryHand(req.PrimaryHand),
		Address:         req.Address,
		City:            req.City,
		Country:         req.Country,
		PostalCode:      req.PostalCode,
		ExperienceLevel: req.ExperienceLevel,
		StressLevel:     req.StressLevel,
		Notes:           req.Notes,
	}
	if dob, ok := parseDate(req.DateOfBirth); ok {
		in.DateOfBirth = &dob
	}
	return in
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
