package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authModels "vras/internal/auth/models"
	"vras/internal/tenant/models"
	"vras/internal/tenant/service"
	httpError "vras/internal/transport/http/error"
	jsonResponse "vras/internal/transport/http/json"
	"vras/internal/transport/http/request"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// TenantService defines the tenant operations the handlers invoke.
type TenantService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.Tenant, *authModels.User, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenantID id.TenantID, in service.TenantInput) (*models.Tenant, error)
	DeleteTenant(ctx context.Context, tenantID id.TenantID) error
	ListPlans(ctx context.Context) ([]*models.Subscription, error)
	GetPlan(ctx context.Context, planID id.SubscriptionID) (*models.Subscription, error)
	CreatePlan(ctx context.Context, in service.PlanInput) (*models.Subscription, error)
	UpdatePlan(ctx context.Context, planID id.SubscriptionID, in service.PlanInput) (*models.Subscription, error)
	DeletePlan(ctx context.Context, planID id.SubscriptionID) error
}

type Handler struct {
	service TenantService
	logger  *slog.Logger
}

func New(svc TenantService, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterPublic mounts the self-service signup route.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/register", h.HandleRegister)
}

// RegisterAdmin mounts client and subscription administration; the caller
// mounts the group under /admin behind the admin role gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/clients", h.HandleListClients)
	r.Get("/clients/{id}", h.HandleGetClient)
	r.Put("/clients/{id}", h.HandleUpdateClient)
	r.Delete("/clients/{id}", h.HandleDeleteClient)

	r.Get("/subscriptions", h.HandleListPlans)
	r.Post("/subscriptions", h.HandleCreatePlan)
	r.Get("/subscriptions/{id}", h.HandleGetPlan)
	r.Put("/subscriptions/{id}", h.HandleUpdatePlan)
	r.Delete("/subscriptions/{id}", h.HandleDeletePlan)
}

type RegisterRequest struct {
	CompanyName          string `json:"company_name" validate:"required,notblank"`
	Email                string `json:"email" validate:"required,email"`
	Mobile               string `json:"mobile" validate:"required,notblank"`
	Address              string `json:"address"`
	SubscriptionID       int64  `json:"subscription_id" validate:"required,min=1"`
	Name                 string `json:"name" validate:"required,notblank"`
	Username             string `json:"username" validate:"required,notblank"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type UpdateClientRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email" validate:"omitempty,email"`
	Mobile         string  `json:"mobile"`
	Address        string  `json:"address"`
	SubscriptionID int64   `json:"subscription_id" validate:"omitempty,min=1"`
	StartAt        string  `json:"start_at" validate:"omitempty,datetime=2006-01-02"`
	EndAt          string  `json:"end_at" validate:"omitempty,datetime=2006-01-02"`
	PayStatus      string  `json:"pay_status" validate:"omitempty,oneof=paid initiate due"`
	Status         string  `json:"status" validate:"omitempty,oneof=active inactive"`
}

type PlanRequest struct {
	Name           string  `json:"name" validate:"required,notblank"`
	Price          float64 `json:"price" validate:"min=0"`
	DurationMonths int     `json:"duration_months" validate:"required,min=1"`
	UserCap        int     `json:"user_cap" validate:"min=0"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := request.Decode[RegisterRequest](w, r)
	if !ok {
		return
	}

	tenant, operator, err := h.service.Register(r.Context(), service.RegisterInput{
		CompanyName:    req.CompanyName,
		Email:          req.Email,
		Mobile:         req.Mobile,
		Address:        req.Address,
		SubscriptionID: id.SubscriptionID(req.SubscriptionID),
		OperatorName:   req.Name,
		Username:       req.Username,
		Password:       req.Password,
	})
	if err != nil {
		httpError.WriteError(w, err)
		return
	}

	jsonResponse.Write(w, http.StatusCreated, "Registration successful.", map[string]any{
		"client":   toTenantResponse(tenant),
		"username": operator.Username,
	})
}

func (h *Handler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.service.ListTenants(r.Context())
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Clients fetched.", map[string]any{"clients": toTenantResponses(tenants)})
}

func (h *Handler) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := pathID(w, r)
	if !ok {
		return
	}
	tenant, err := h.service.GetTenant(r.Context(), id.TenantID(tenantID))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Client fetched.", toTenantResponse(tenant))
}

func (h *Handler) HandleUpdateClient(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[UpdateClientRequest](w, r)
	if !ok {
		return
	}

	in := service.TenantInput{
		Name:           req.Name,
		Email:          req.Email,
		Mobile:         req.Mobile,
		Address:        req.Address,
		SubscriptionID: id.SubscriptionID(req.SubscriptionID),
		PayStatus:      models.PayStatus(req.PayStatus),
		Status:         models.TenantStatus(req.Status),
	}
	if t, ok := parseDate(req.StartAt); ok {
		in.StartAt = &t
	}
	if t, ok := parseDate(req.EndAt); ok {
		in.EndAt = &t
	}

	tenant, err := h.service.UpdateTenant(r.Context(), id.TenantID(tenantID), in)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Client updated successfully.", toTenantResponse(tenant))
}

func (h *Handler) HandleDeleteClient(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTenant(r.Context(), id.TenantID(tenantID)); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Client deleted successfully.", nil)
}

func (h *Handler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Subscriptions fetched.", map[string]any{"subscriptions": toPlanResponses(plans)})
}

func (h *Handler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := request.Decode[PlanRequest](w, r)
	if !ok {
		return
	}
	plan, err := h.service.CreatePlan(r.Context(), service.PlanInput{
		Name: req.Name, Price: req.Price, DurationMonths: req.DurationMonths, UserCap: req.UserCap,
	})
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusCreated, "Subscription created successfully.", toPlanResponse(plan))
}

func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r)
	if !ok {
		return
	}
	plan, err := h.service.GetPlan(r.Context(), id.SubscriptionID(planID))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Subscription fetched.", toPlanResponse(plan))
}

func (h *Handler) HandleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[PlanRequest](w, r)
	if !ok {
		return
	}
	plan, err := h.service.UpdatePlan(r.Context(), id.SubscriptionID(planID), service.PlanInput{
		Name: req.Name, Price: req.Price, DurationMonths: req.DurationMonths, UserCap: req.UserCap,
	})
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Subscription updated successfully.", toPlanResponse(plan))
}

func (h *Handler) HandleDeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePlan(r.Context(), id.SubscriptionID(planID)); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Subscription deleted successfully.", nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw, err := id.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid id."))
		return 0, false
	}
	return raw, true
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

type TenantResponse struct {
	ID             int64  `json:"id"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile,omitempty"`
	Address        string `json:"address,omitempty"`
	SubscriptionID int64  `json:"subscription_id,omitempty"`
	StartAt        string `json:"start_at"`
	EndAt          string `json:"end_at"`
	PayStatus      string `json:"pay_status"`
	Status         string `json:"status"`
}

func toTenantResponse(t *models.Tenant) TenantResponse {
	return TenantResponse{
		ID:             t.ID.Int64(),
		Slug:           t.Slug,
		Name:           t.Name,
		Email:          t.Email,
		Mobile:         t.Mobile,
		Address:        t.Address,
		SubscriptionID: t.SubscriptionID.Int64(),
		StartAt:        t.StartAt.Format("2006-01-02"),
		EndAt:          t.EndAt.Format("2006-01-02"),
		PayStatus:      string(t.PayStatus),
		Status:         string(t.Status),
	}
}

func toTenantResponses(tenants []*models.Tenant) []TenantResponse {
	out := make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, toTenantResponse(t))
	}
	return out
}

type PlanResponse struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	DurationMonths int     `json:"duration_months"`
	UserCap        int     `json:"user_cap"`
}

func toPlanResponse(p *models.Subscription) PlanResponse {
	return PlanResponse{
		ID:             p.ID.Int64(),
		Name:           p.Name,
		Price:          p.Price,
		DurationMonths: p.DurationMonths,
		UserCap:        p.UserCap,
	}
}

func toPlanResponses(plans []*models.Subscription) []PlanResponse {
	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	return out
}
