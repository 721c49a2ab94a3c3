package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authMiddleware "vras/internal/auth/middleware"
	"vras/internal/catalog/models"
	"vras/internal/catalog/service"
	httpError "vras/internal/transport/http/error"
	jsonResponse "vras/internal/transport/http/json"
	"vras/internal/transport/http/request"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// CatalogService defines the catalog operations the handlers invoke.
type CatalogService interface {
	ListWeapons(ctx context.Context) ([]*models.Weapon, error)
	GetWeapon(ctx context.Context, weaponID id.WeaponID) (*models.Weapon, error)
	CreateWeapon(ctx context.Context, in service.WeaponInput) (*models.Weapon, error)
	UpdateWeapon(ctx context.Context, weaponID id.WeaponID, in service.WeaponInput) (*models.Weapon, error)
	DeleteWeapon(ctx context.Context, weaponID id.WeaponID) error

	ListTargets(ctx context.Context, tenantID id.TenantID) ([]*models.Target, error)
	GetTarget(ctx context.Context, tenantID id.TenantID, targetID id.TargetID) (*models.Target, error)
	CreateTarget(ctx context.Context, tenantID id.TenantID, in service.TargetInput) (*models.Target, error)
	UpdateTarget(ctx context.Context, tenantID id.TenantID, targetID id.TargetID, in service.TargetInput) (*models.Target, error)
	DeleteTarget(ctx context.Context, tenantID id.TenantID, targetID id.TargetID) error

	ListScenarios(ctx context.Context, tenantID id.TenantID) ([]*models.Scenario, error)
	GetScenario(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) (*models.Scenario, error)
	CreateScenario(ctx context.Context, tenantID id.TenantID, in service.ScenarioInput) (*models.Scenario, error)
	UpdateScenario(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID, in service.ScenarioInput) (*models.Scenario, error)
	DeleteScenario(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) error
}

type Handler struct {
	service CatalogService
	logger  *slog.Logger
}

func New(svc CatalogService, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterAdmin mounts the platform weapon catalog; the caller mounts the
// group behind the admin role gate.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/weapons", h.HandleListWeapons)
	r.Post("/weapons", h.HandleCreateWeapon)
	r.Get("/weapons/{id}", h.HandleGetWeapon)
	r.Put("/weapons/{id}", h.HandleUpdateWeapon)
	r.Delete("/weapons/{id}", h.HandleDeleteWeapon)
}

// RegisterTenant mounts tenant-owned targets and scenarios plus read access
// to the weapon catalog.
func (h *Handler) RegisterTenant(r chi.Router) {
	r.Get("/weapons", h.HandleListWeapons)

	r.Get("/targets", h.HandleListTargets)
	r.Post("/targets", h.HandleCreateTarget)
	r.Get("/targets/{id}", h.HandleGetTarget)
	r.Put("/targets/{id}", h.HandleUpdateTarget)
	r.Delete("/targets/{id}", h.HandleDeleteTarget)

	r.Get("/scenarios", h.HandleListScenarios)
	r.Post("/scenarios", h.HandleCreateScenario)
	r.Get("/scenarios/{id}", h.HandleGetScenario)
	r.Put("/scenarios/{id}", h.HandleUpdateScenario)
	r.Delete("/scenarios/{id}", h.HandleDeleteScenario)
}

type WeaponRequest struct {
	Name     string  `json:"name" validate:"required,notblank"`
	Category string  `json:"category"`
	Caliber  string  `json:"caliber"`
	Capacity int     `json:"capacity" validate:"min=0"`
	WeightKg float64 `json:"weight_kg" validate:"min=0"`
	ImageURL string  `json:"image_url"`
}

type UpdateWeaponRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Caliber  string  `json:"caliber"`
	Capacity int     `json:"capacity" validate:"min=0"`
	WeightKg float64 `json:"weight_kg" validate:"min=0"`
	ImageURL string  `json:"image_url"`
}

type TargetRequest struct {
	Name      string  `json:"name" validate:"required,notblank"`
	Kind      string  `json:"kind"`
	DistanceM float64 `json:"distance_m" validate:"min=0"`
	ImageURL  string  `json:"image_url"`
}

type UpdateTargetRequest struct {
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	DistanceM float64 `json:"distance_m" validate:"min=0"`
	ImageURL  string  `json:"image_url"`
}

type ScenarioRequest struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Environment string `json:"environment"`
	DurationSec int    `json:"duration_sec" validate:"min=0"`
	WeaponID    int64  `json:"weapon_id" validate:"min=0"`
}

type UpdateScenarioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Environment string `json:"environment"`
	DurationSec int    `json:"duration_sec" validate:"min=0"`
	WeaponID    int64  `json:"weapon_id" validate:"min=0"`
}

func (h *Handler) HandleListWeapons(w http.ResponseWriter, r *http.Request) {
	weapons, err := h.service.ListWeapons(r.Context())
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Weapons fetched.", map[string]any{"weapons": toWeaponResponses(weapons)})
}

func (h *Handler) HandleCreateWeapon(w http.ResponseWriter, r *http.Request) {
	req, ok := request.Decode[WeaponRequest](w, r)
	if !ok {
		return
	}
	weapon, err := h.service.CreateWeapon(r.Context(), service.WeaponInput(req))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusCreated, "Weapon created successfully.", toWeaponResponse(weapon))
}

func (h *Handler) HandleGetWeapon(w http.ResponseWriter, r *http.Request) {
	weaponID, ok := pathID(w, r)
	if !ok {
		return
	}
	weapon, err := h.service.GetWeapon(r.Context(), id.WeaponID(weaponID))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Weapon fetched.", toWeaponResponse(weapon))
}

func (h *Handler) HandleUpdateWeapon(w http.ResponseWriter, r *http.Request) {
	weaponID, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[UpdateWeaponRequest](w, r)
	if !ok {
		return
	}
	weapon, err := h.service.UpdateWeapon(r.Context(), id.WeaponID(weaponID), service.WeaponInput(req))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Weapon updated successfully.", toWeaponResponse(weapon))
}

func (h *Handler) HandleDeleteWeapon(w http.ResponseWriter, r *http.Request) {
	weaponID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteWeapon(r.Context(), id.WeaponID(weaponID)); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Weapon deleted successfully.", nil)
}

func (h *Handler) HandleListTargets(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	targets, err := h.service.ListTargets(r.Context(), principal)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Targets fetched.", map[string]any{"targets": toTargetResponses(targets)})
}

func (h *Handler) HandleCreateTarget(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[TargetRequest](w, r)
	if !ok {
		return
	}
	target, err := h.service.CreateTarget(r.Context(), principal, service.TargetInput(req))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusCreated, "Target created successfully.", toTargetResponse(target))
}

func (h *Handler) HandleGetTarget(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	targetID, ok := pathID(w, r)
	if !ok {
		return
	}
	target, err := h.service.GetTarget(r.Context(), principal, id.TargetID(targetID))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Target fetched.", toTargetResponse(target))
}

func (h *Handler) HandleUpdateTarget(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	targetID, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[UpdateTargetRequest](w, r)
	if !ok {
		return
	}
	target, err := h.service.UpdateTarget(r.Context(), principal, id.TargetID(targetID), service.TargetInput(req))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Target updated successfully.", toTargetResponse(target))
}

func (h *Handler) HandleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	targetID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTarget(r.Context(), principal, id.TargetID(targetID)); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Target deleted successfully.", nil)
}

func (h *Handler) HandleListScenarios(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	scenarios, err := h.service.ListScenarios(r.Context(), principal)
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Scenarios fetched.", map[string]any{"scenarios": toScenarioResponses(scenarios)})
}

func (h *Handler) HandleCreateScenario(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[ScenarioRequest](w, r)
	if !ok {
		return
	}
	scenario, err := h.service.CreateScenario(r.Context(), principal, scenarioInput(req.Name, req.Description, req.Difficulty, req.Environment, req.DurationSec, req.WeaponID))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusCreated, "Scenario created successfully.", toScenarioResponse(scenario))
}

func (h *Handler) HandleGetScenario(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	scenarioID, ok := pathID(w, r)
	if !ok {
		return
	}
	scenario, err := h.service.GetScenario(r.Context(), principal, id.ScenarioID(scenarioID))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Scenario fetched.", toScenarioResponse(scenario))
}

func (h *Handler) HandleUpdateScenario(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	scenarioID, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := request.Decode[UpdateScenarioRequest](w, r)
	if !ok {
		return
	}
	scenario, err := h.service.UpdateScenario(r.Context(), principal, id.ScenarioID(scenarioID), scenarioInput(req.Name, req.Description, req.Difficulty, req.Environment, req.DurationSec, req.WeaponID))
	if err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Scenario updated successfully.", toScenarioResponse(scenario))
}

func (h *Handler) HandleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	principal, ok := principal(w, r)
	if !ok {
		return
	}
	scenarioID, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteScenario(r.Context(), principal, id.ScenarioID(scenarioID)); err != nil {
		httpError.WriteError(w, err)
		return
	}
	jsonResponse.Write(w, http.StatusOK, "Scenario deleted successfully.", nil)
}

func scenarioInput(name, description, difficulty, environment string, durationSec int, weaponID int64) service.ScenarioInput {
	return service.ScenarioInput{
		Name:        name,
		Description: description,
		Difficulty:  difficulty,
		Environment: environment,
		DurationSec: durationSec,
		WeaponID:    id.WeaponID(weaponID),
	}
}

func principal(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	user, ok := authMiddleware.PrincipalFromContext(r.Context())
	if !ok {
		httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return 0, false
	}
	return user.TenantID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw, err := id.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpError.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid id."))
		return 0, false
	}
	return raw, true
}

type WeaponResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Caliber  string  `json:"caliber,omitempty"`
	Capacity int     `json:"capacity,omitempty"`
	WeightKg float64 `json:"weight_kg,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
}

func toWeaponResponse(w *models.Weapon) WeaponResponse {
	return WeaponResponse{
		ID:       w.ID.Int64(),
		Name:     w.Name,
		Category: w.Category,
		Caliber:  w.Caliber,
		Capacity: w.Capacity,
		WeightKg: w.WeightKg,
		ImageURL: w.ImageURL,
	}
}

func toWeaponResponses(weapons []*models.Weapon) []WeaponResponse {
	out := make([]WeaponResponse, 0, len(weapons))
	for _, w := range weapons {
		out = append(out, toWeaponResponse(w))
	}
	return out
}

type TargetResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind,omitempty"`
	DistanceM float64 `json:"distance_m,omitempty"`
	ImageURL  string  `json:"image_url,omitempty"`
}

func toTargetResponse(tg *models.Target) TargetResponse {
	return TargetResponse{
		ID:        tg.ID.Int64(),
		Name:      tg.Name,
		Kind:      tg.Kind,
		DistanceM: tg.DistanceM,
		ImageURL:  tg.ImageURL,
	}
}

func toTargetResponses(targets []*models.Target) []TargetResponse {
	out := make([]TargetResponse, 0, len(targets))
	for _, tg := range targets {
		out = append(out, toTargetResponse(tg))
	}
	return out
}

type ScenarioResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
	Environment string `json:"environment,omitempty"`
	DurationSec int    `json:"duration_sec,omitempty"`
	WeaponID    int64  `json:"weapon_id,omitempty"`
}

func toScenarioResponse(sc *models.Scenario) ScenarioResponse {
	return ScenarioResponse{
		ID:          sc.ID.Int64(),
		Name:        sc.Name,
		Description: sc.Description,
		Difficulty:  sc.Difficulty,
		Environment: sc.Environment,
		DurationSec: sc.DurationSec,
		WeaponID:    sc.WeaponID.Int64(),
	}
}

func toScenarioResponses(scenarios []*models.Scenario) []ScenarioResponse {
	out := make([]ScenarioResponse, 0, len(scenarios))
	for _, sc := range scenarios {
		out = append(out, toScenarioResponse(sc))
	}
	return out
}
