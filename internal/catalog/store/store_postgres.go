package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"vras/internal/catalog/models"
	"vras/internal/sentinel"
	id "vras/pkg/domain"
)

// PostgresStore persists the catalog in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateWeapon(ctx context.Context, w *models.Weapon) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO weapons (name, category, caliber, capacity, weight_kg, image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		w.Name, w.Category, w.Caliber, w.Capacity, w.WeightKg, w.ImageURL, w.CreatedAt, w.UpdatedAt)
	var weaponID int64
	if err := row.Scan(&weaponID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("weapon name taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create weapon: %w", err)
	}
	w.ID = id.WeaponID(weaponID)
	return nil
}

func (s *PostgresStore) UpdateWeapon(ctx context.Context, w *models.Weapon) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE weapons SET name = $2, category = $3, caliber = $4, capacity = $5,
			weight_kg = $6, image_url = $7, updated_at = $8
		WHERE id = $1`,
		w.ID.Int64(), w.Name, w.Category, w.Caliber, w.Capacity, w.WeightKg, w.ImageURL, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("weapon name taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update weapon: %w", err)
	}
	return checkAffected(res, "weapon")
}

func (s *PostgresStore) FindWeaponByID(ctx context.Context, weaponID id.WeaponID) (*models.Weapon, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, caliber, capacity, weight_kg, image_url, created_at, updated_at
		FROM weapons WHERE id = $1`, weaponID.Int64())
	return scanWeapon(row)
}

func (s *PostgresStore) ListWeapons(ctx context.Context) ([]*models.Weapon, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, caliber, capacity, weight_kg, image_url, created_at, updated_at
		FROM weapons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list weapons: %w", err)
	}
	defer rows.Close()

	weapons := make([]*models.Weapon, 0)
	for rows.Next() {
		w, err := scanWeapon(rows)
		if err != nil {
			return nil, err
		}
		weapons = append(weapons, w)
	}
	return weapons, rows.Err()
}

func (s *PostgresStore) DeleteWeapon(ctx context.Context, weaponID id.WeaponID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM weapons WHERE id = $1`, weaponID.Int64())
	if err != nil {
		return fmt.Errorf("delete weapon: %w", err)
	}
	return checkAffected(res, "weapon")
}

func (s *PostgresStore) CreateTarget(ctx context.Context, tg *models.Target) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO targets (tenant_id, name, kind, distance_m, image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		tg.TenantID.Int64(), tg.Name, tg.Kind, tg.DistanceM, tg.ImageURL, tg.CreatedAt, tg.UpdatedAt)
	var targetID int64
	if err := row.Scan(&targetID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("target name taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create target: %w", err)
	}
	tg.ID = id.TargetID(targetID)
	return nil
}

func (s *PostgresStore) UpdateTarget(ctx context.Context, tg *models.Target) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE targets SET name = $3, kind = $4, distance_m = $5, image_url = $6, updated_at = $7
		WHERE id = $1 AND tenant_id = $2`,
		tg.ID.Int64(), tg.TenantID.Int64(), tg.Name, tg.Kind, tg.DistanceM, tg.ImageURL, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("target name taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update target: %w", err)
	}
	return checkAffected(res, "target")
}

func (s *PostgresStore) FindTargetByID(ctx context.Context, tenantID id.TenantID, targetID id.TargetID) (*models.Target, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, kind, distance_m, image_url, created_at, updated_at
		FROM targets WHERE id = $1 AND tenant_id = $2`, targetID.Int64(), tenantID.Int64())
	return scanTarget(row)
}

func (s *PostgresStore) ListTargets(ctx context.Context, tenantID id.TenantID) ([]*models.Target, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, kind, distance_m, image_url, created_at, updated_at
		FROM targets WHERE tenant_id = $1 ORDER BY id`, tenantID.Int64())
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	targets := make([]*models.Target, 0)
	for rows.Next() {
		tg, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, tg)
	}
	return targets, rows.Err()
}

func (s *PostgresStore) DeleteTarget(ctx context.Context, tenantID id.TenantID, targetID id.TargetID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM targets WHERE id = $1 AND tenant_id = $2`, targetID.Int64(), tenantID.Int64())
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	return checkAffected(res, "target")
}

func (s *PostgresStore) CreateScenario(ctx context.Context, sc *models.Scenario) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO scenarios (tenant_id, name, description, difficulty, environment, duration_sec, weapon_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		sc.TenantID.Int64(), sc.Name, sc.Description, sc.Difficulty, sc.Environment,
		sc.DurationSec, nullWeapon(sc.WeaponID), sc.CreatedAt, sc.UpdatedAt)
	var scenarioID int64
	if err := row.Scan(&scenarioID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("scenario name taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create scenario: %w", err)
	}
	sc.ID = id.ScenarioID(scenarioID)
	return nil
}

func (s *PostgresStore) UpdateScenario(ctx context.Context, sc *models.Scenario) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scenarios SET name = $3, description = $4, difficulty = $5, environment = $6,
			duration_sec = $7, weapon_id = $8, updated_at = $9
		WHERE id = $1 AND tenant_id = $2`,
		sc.ID.Int64(), sc.TenantID.Int64(), sc.Name, sc.Description, sc.Difficulty,
		sc.Environment, sc.DurationSec, nullWeapon(sc.WeaponID), time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("scenario name taken: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update scenario: %w", err)
	}
	return checkAffected(res, "scenario")
}

func (s *PostgresStore) FindScenarioByID(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) (*models.Scenario, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, description, difficulty, environment, duration_sec, COALESCE(weapon_id, 0), created_at, updated_at
		FROM scenarios WHERE id = $1 AND tenant_id = $2`, scenarioID.Int64(), tenantID.Int64())
	return scanScenario(row)
}

func (s *PostgresStore) ListScenarios(ctx context.Context, tenantID id.TenantID) ([]*models.Scenario, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, description, difficulty, environment, duration_sec, COALESCE(weapon_id, 0), created_at, updated_at
		FROM scenarios WHERE tenant_id = $1 ORDER BY id`, tenantID.Int64())
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	scenarios := make([]*models.Scenario, 0)
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, rows.Err()
}

func (s *PostgresStore) DeleteScenario(ctx context.Context, tenantID id.TenantID, scenarioID id.ScenarioID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scenarios WHERE id = $1 AND tenant_id = $2`, scenarioID.Int64(), tenantID.Int64())
	if err != nil {
		return fmt.Errorf("delete scenario: %w", err)
	}
	return checkAffected(res, "scenario")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWeapon(row rowScanner) (*models.Weapon, error) {
	var w models.Weapon
	err := row.Scan(&w.ID, &w.Name, &w.Category, &w.Caliber, &w.Capacity, &w.WeightKg, &w.ImageURL, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("weapon not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan weapon: %w", err)
	}
	return &w, nil
}

func scanTarget(row rowScanner) (*models.Target, error) {
	var tg models.Target
	err := row.Scan(&tg.ID, &tg.TenantID, &tg.Name, &tg.Kind, &tg.DistanceM, &tg.ImageURL, &tg.CreatedAt, &tg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("target not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan target: %w", err)
	}
	return &tg, nil
}

func scanScenario(row rowScanner) (*models.Scenario, error) {
	var sc models.Scenario
	err := row.Scan(&sc.ID, &sc.TenantID, &sc.Name, &sc.Description, &sc.Difficulty,
		&sc.Environment, &sc.DurationSec, &sc.WeaponID, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scenario not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan scenario: %w", err)
	}
	return &sc, nil
}

func checkAffected(res sql.Result, entity string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found: %w", entity, sentinel.ErrNotFound)
	}
	return nil
}

func nullWeapon(weaponID id.WeaponID) any {
	if weaponID == 0 {
		return nil
	}
	return weaponID.Int64()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
