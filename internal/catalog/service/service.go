package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vras/internal/catalog/models"
	"vras/internal/sentinel"
	id "vras/pkg/domain"
	dErrors "vras/pkg/domain-errors"
)

// CatalogStore defines persistence for weapons, targets and scenarios.
// Error Contract: Find methods return sentinel.ErrNotFound (wrapped); Create
// methods return sentinel.ErrAlreadyUsed on name collisions.
type CatalogStore interface {
	CreateWeapon(ctx context.Context, w *models.Weapon) error
	UpdateWeapon(ctx context.Context, w *models.Weapon) error
	FindWeaponByID(ctx context.Context, weaponID id.WeaponID) (*models.Weapon, error)
	ListWeapons(ctx context.Context) ([]*models.Weapon, error)
	DeleteWeapon(ctx context.Context, weaponID id.WeaponID) error

	CreateTarget(ctx context.Context, tg *models.Target) error
	UpdateTarget(ctx context.Context, tg *models.Target) error
	FindTargetByID(ctx context.Context, tenantID id.TenantID, targetID id.TargetID) (*models.Target, error)
	ListTargets(ctx context.Context, tenantID id.TenantID) ([]*models.Target, error)
	DeleteTarget(ctx context.Context, tenantID id.TenantID, targetID id.TargetID) error

	CreateScenario(ctx context.Context, sc *models.Scenario) error
	UpdateScenario(ctx context.Context, sc *models.Scenario) error
	FindScenarioByID(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) (*models.Scenario, error)
	ListScenarios(ctx context.Context, tenantID id.TenantID) ([]*models.Scenario, error)
	DeleteScenario(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) error
}

type Service struct {
	store  CatalogStore
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

func NewService(store CatalogStore, opts ...Option) *Service {
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

type WeaponInput struct {
	Name     string
	Category string
	Caliber  string
	Capacity int
	WeightKg float64
	ImageURL string
}

func (svc *Service) ListWeapons(ctx context.Context) ([]*models.Weapon, error) {
	weapons, err := svc.store.ListWeapons(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list weapons")
	}
	return weapons, nil
}

func (svc *Service) GetWeapon(ctx context.Context, weaponID id.WeaponID) (*models.Weapon, error) {
	w, err := svc.store.FindWeaponByID(ctx, weaponID)
	if err != nil {
		return nil, notFoundOrInternal(err, "Weapon not found.", "find weapon")
	}
	return w, nil
}

func (svc *Service) CreateWeapon(ctx context.Context, in WeaponInput) (*models.Weapon, error) {
	w, err := models.NewWeapon(in.Name, in.Category, svc.now())
	if err != nil {
		return nil, err
	}
	w.Caliber = in.Caliber
	w.Capacity = in.Capacity
	w.WeightKg = in.WeightKg
	w.ImageURL = in.ImageURL

	if err := svc.store.CreateWeapon(ctx, w); err != nil {
		return nil, takenOrInternal(err, "name", "create weapon")
	}
	return w, nil
}

func (svc *Service) UpdateWeapon(ctx context.Context, weaponID id.WeaponID, in WeaponInput) (*models.Weapon, error) {
	w, err := svc.GetWeapon(ctx, weaponID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		w.Name = in.Name
	}
	if in.Category != "" {
		w.Category = in.Category
	}
	if in.Caliber != "" {
		w.Caliber = in.Caliber
	}
	if in.Capacity != 0 {
		w.Capacity = in.Capacity
	}
	if in.WeightKg != 0 {
		w.WeightKg = in.WeightKg
	}
	if in.ImageURL != "" {
		w.ImageURL = in.ImageURL
	}
	w.UpdatedAt = svc.now()

	if err := svc.store.UpdateWeapon(ctx, w); err != nil {
		return nil, takenOrInternal(err, "name", "update weapon")
	}
	return w, nil
}

func (svc *Service) DeleteWeapon(ctx context.Context, weaponID id.WeaponID) error {
	if err := svc.store.DeleteWeapon(ctx, weaponID); err != nil {
		return notFoundOrInternal(err, "Weapon not found.", "delete weapon")
	}
	return nil
}

type TargetInput struct {
	Name      string
	Kind      string
	DistanceM float64
	ImageURL  string
}

func (svc *Service) ListTargets(ctx context.Context, tenantID id.TenantID) ([]*models.Target, error) {
	targets, err := svc.store.ListTargets(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list targets")
	}
	return targets, nil
}

func (svc *Service) GetTarget(ctx context.Context, tenantID id.TenantID, targetID id.TargetID) (*models.Target, error) {
	tg, err := svc.store.FindTargetByID(ctx, tenantID, targetID)
	if err != nil {
		return nil, notFoundOrInternal(err, "Target not found.", "find target")
	}
	return tg, nil
}

func (svc *Service) CreateTarget(ctx context.Context, tenantID id.TenantID, in TargetInput) (*models.Target, error) {
	tg, err := models.NewTarget(tenantID, in.Name, svc.now())
	if err != nil {
		return nil, err
	}
	tg.Kind = in.Kind
	tg.DistanceM = in.DistanceM
	tg.ImageURL = in.ImageURL

	if err := svc.store.CreateTarget(ctx, tg); err != nil {
		return nil, takenOrInternal(err, "name", "create target")
	}
	return tg, nil
}

func (svc *Service) UpdateTarget(ctx context.Context, tenantID id.TenantID, targetID id.TargetID, in TargetInput) (*models.Target, error) {
	tg, err := svc.GetTarget(ctx, tenantID, targetID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		tg.Name = in.Name
	}
	if in.Kind != "" {
		tg.Kind = in.Kind
	}
	if in.DistanceM != 0 {
		tg.DistanceM = in.DistanceM
	}
	if in.ImageURL != "" {
		tg.ImageURL = in.ImageURL
	}
	tg.UpdatedAt = svc.now()

	if err := svc.store.UpdateTarget(ctx, tg); err != nil {
		return nil, takenOrInternal(err, "name", "update target")
	}
	return tg, nil
}

func (svc *Service) DeleteTarget(ctx context.Context, tenantID id.TenantID, targetID id.TargetID) error {
	if err := svc.store.DeleteTarget(ctx, tenantID, targetID); err != nil {
		return notFoundOrInternal(err, "Target not found.", "delete target")
	}
	return nil
}

type ScenarioInput struct {
	Name        string
	Description string
	Difficulty  string
	Environment string
	DurationSec int
	WeaponID    id.WeaponID
}

func (svc *Service) ListScenarios(ctx context.Context, tenantID id.TenantID) ([]*models.Scenario, error) {
	scenarios, err := svc.store.ListScenarios(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list scenarios")
	}
	return scenarios, nil
}

func (svc *Service) GetScenario(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) (*models.Scenario, error) {
	sc, err := svc.store.FindScenarioByID(ctx, tenantID, scenarioID)
	if err != nil {
		return nil, notFoundOrInternal(err, "Scenario not found.", "find scenario")
	}
	return sc, nil
}

func (svc *Service) CreateScenario(ctx context.Context, tenantID id.TenantID, in ScenarioInput) (*models.Scenario, error) {
	sc, err := models.NewScenario(tenantID, in.Name, svc.now())
	if err != nil {
		return nil, err
	}
	sc.Description = in.Description
	sc.Difficulty = in.Difficulty
	sc.Environment = in.Environment
	sc.DurationSec = in.DurationSec
	sc.WeaponID = in.WeaponID

	if err := svc.store.CreateScenario(ctx, sc); err != nil {
		return nil, takenOrInternal(err, "name", "create scenario")
	}
	return sc, nil
}

func (svc *Service) UpdateScenario(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID, in ScenarioInput) (*models.Scenario, error) {
	sc, err := svc.GetScenario(ctx, tenantID, scenarioID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		sc.Name = in.Name
	}
	if in.Description != "" {
		sc.Description = in.Description
	}
	if in.Difficulty != "" {
		sc.Difficulty = in.Difficulty
	}
	if in.Environment != "" {
		sc.Environment = in.Environment
	}
	if in.DurationSec != 0 {
		sc.DurationSec = in.DurationSec
	}
	if in.WeaponID != 0 {
		sc.WeaponID = in.WeaponID
	}
	sc.UpdatedAt = svc.now()

	if err := svc.store.UpdateScenario(ctx, sc); err != nil {
		return nil, takenOrInternal(err, "name", "update scenario")
	}
	return sc, nil
}

func (svc *Service) DeleteScenario(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) error {
	if err := svc.store.DeleteScenario(ctx, tenantID, scenarioID); err != nil {
		return notFoundOrInternal(err, "Scenario not found.", "delete scenario")
	}
	return nil
}

func notFoundOrInternal(err error, message, op string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, message)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}

func takenOrInternal(err error, field, op string) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return dErrors.NewField(dErrors.CodeConflict, field, "Already taken.", "unique")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}
