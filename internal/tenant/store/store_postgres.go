package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"vras/internal/sentinel"
	"vras/internal/tenant/models"
	id "vras/pkg/domain"
)

// PostgresStore persists tenants and subscription plans in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const tenantColumns = `id, slug, name, email, mobile, address, COALESCE(subscription_id, 0),
	start_at, end_at, pay_status, status, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tenants (slug, name, email, mobile, address, subscription_id,
			start_at, end_at, pay_status, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		tenant.Slug, tenant.Name, tenant.Email, tenant.Mobile, tenant.Address,
		nullSubscription(tenant.SubscriptionID), tenant.StartAt, tenant.EndAt,
		string(tenant.PayStatus), string(tenant.Status), tenant.CreatedAt, tenant.UpdatedAt,
	)
	var tenantID int64
	if err := row.Scan(&tenantID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	tenant.ID = id.TenantID(tenantID)
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return fmt.Errorf("tenant is required")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants SET
			slug = $2, name = $3, email = $4, mobile = $5, address = $6,
			subscription_id = $7, start_at = $8, end_at = $9, pay_status = $10,
			status = $11, updated_at = $12
		WHERE id = $1`,
		tenant.ID.Int64(), tenant.Slug, tenant.Name, tenant.Email, tenant.Mobile,
		tenant.Address, nullSubscription(tenant.SubscriptionID), tenant.StartAt,
		tenant.EndAt, string(tenant.PayStatus), string(tenant.Status), time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update tenant: %w", err)
	}
	return checkAffected(res, "tenant")
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1 AND status <> 'deleted'`,
		tenantID.Int64())
	return scanTenant(row)
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1 AND status <> 'deleted'`, slug)
	return scanTenant(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE status <> 'deleted' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*models.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *PostgresStore) ExistsIdentifier(ctx context.Context, slug, email string, exclude id.TenantID) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, email FROM tenants
		WHERE status <> 'deleted' AND id <> $3 AND (slug = $1 OR email = $2)`,
		slug, email, exclude.Int64())
	if err != nil {
		return nil, fmt.Errorf("check tenant uniqueness: %w", err)
	}
	defer rows.Close()

	taken := map[string]bool{}
	for rows.Next() {
		var sl, em string
		if err := rows.Scan(&sl, &em); err != nil {
			return nil, fmt.Errorf("scan tenant identifier row: %w", err)
		}
		if slug != "" && sl == slug {
			taken["slug"] = true
		}
		if email != "" && em == email {
			taken["email"] = true
		}
	}
	return taken, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, tenantID id.TenantID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants SET status = 'deleted', updated_at = $2
		WHERE id = $1 AND status <> 'deleted'`,
		tenantID.Int64(), time.Now())
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return checkAffected(res, "tenant")
}

func (s *PostgresStore) CreateSubscription(ctx context.Context, plan *models.Subscription) error {
	if plan == nil {
		return fmt.Errorf("subscription is required")
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (name, price, duration_months, user_cap, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id`,
		plan.Name, plan.Price, plan.DurationMonths, plan.UserCap, plan.CreatedAt, plan.UpdatedAt,
	)
	var planID int64
	if err := row.Scan(&planID); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	plan.ID = id.SubscriptionID(planID)
	return nil
}

func (s *PostgresStore) UpdateSubscription(ctx context.Context, plan *models.Subscription) error {
	if plan == nil {
		return fmt.Errorf("subscription is required")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET name = $2, price = $3, duration_months = $4, user_cap = $5, updated_at = $6
		WHERE id = $1`,
		plan.ID.Int64(), plan.Name, plan.Price, plan.DurationMonths, plan.UserCap, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return checkAffected(res, "subscription")
}

func (s *PostgresStore) FindSubscriptionByID(ctx context.Context, planID id.SubscriptionID) (*models.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, duration_months, user_cap, created_at, updated_at
		FROM subscriptions WHERE id = $1`, planID.Int64())
	return scanSubscription(row)
}

func (s *PostgresStore) ListSubscriptions(ctx context.Context) ([]*models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, duration_months, user_cap, created_at, updated_at
		FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	plans := make([]*models.Subscription, 0)
	for rows.Next() {
		p, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (s *PostgresStore) DeleteSubscription(ctx context.Context, planID id.SubscriptionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, planID.Int64())
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return checkAffected(res, "subscription")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		t         models.Tenant
		planID    int64
		payStatus string
		status    string
	)
	err := row.Scan(
		&t.ID, &t.Slug, &t.Name, &t.Email, &t.Mobile, &t.Address, &planID,
		&t.StartAt, &t.EndAt, &payStatus, &status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	t.SubscriptionID = id.SubscriptionID(planID)
	t.PayStatus = models.PayStatus(payStatus)
	t.Status = models.TenantStatus(status)
	return &t, nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var p models.Subscription
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.DurationMonths, &p.UserCap, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subscription not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &p, nil
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

func nullSubscription(planID id.SubscriptionID) any {
	if planID == 0 {
		return nil
	}
	return planID.Int64()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
