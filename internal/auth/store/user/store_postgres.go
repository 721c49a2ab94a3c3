package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"vras/internal/auth/models"
	"vras/internal/sentinel"
	id "vras/pkg/domain"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, COALESCE(tenant_id, 0), role, status, name, last_name, username, email, mobile,
	avatar, password_hash, COALESCE(session_token, ''), COALESCE(pairing_code, ''),
	COALESCE(reset_code, ''), reset_expires_at, permissions, device_name, date_of_birth,
	gender, primary_hand, address, city, country, postal_code,
	experience_level, stress_level, notes, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	permissions, err := json.Marshal(user.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (
			tenant_id, role, status, name, last_name, username, email, mobile,
			avatar, password_hash, session_token, pairing_code, reset_code, reset_expires_at,
			permissions, device_name, date_of_birth, gender, primary_hand,
			address, city, country, postal_code, experience_level, stress_level, notes,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)
		RETURNING id`,
		nullTenant(user.TenantID), string(user.Role), string(user.Status),
		user.Name, user.LastName, user.Username, user.Email, user.Mobile,
		user.Avatar, user.PasswordHash, nullString(user.SessionToken), nullString(user.PairingCode),
		nullString(user.ResetCode), user.ResetExpiresAt, permissions, user.DeviceName,
		user.DateOfBirth, string(user.Gender), string(user.PrimaryHand),
		user.Address, user.City, user.Country, user.PostalCode,
		user.ExperienceLevel, user.StressLevel, user.Notes,
		user.CreatedAt, user.UpdatedAt,
	)
	var userID int64
	if err := row.Scan(&userID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create user: %w", err)
	}
	user.ID = id.UserID(userID)
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	permissions, err := json.Marshal(user.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			tenant_id = $2, role = $3, status = $4, name = $5, last_name = $6,
			username = $7, email = $8, mobile = $9, avatar = $10, password_hash = $11,
			session_token = $12, pairing_code = $13, reset_code = $14, reset_expires_at = $15,
			permissions = $16, device_name = $17, date_of_birth = $18, gender = $19,
			primary_hand = $20, address = $21, city = $22, country = $23, postal_code = $24,
			experience_level = $25, stress_level = $26, notes = $27, updated_at = $28
		WHERE id = $1`,
		user.ID.Int64(), nullTenant(user.TenantID), string(user.Role), string(user.Status),
		user.Name, user.LastName, user.Username, user.Email, user.Mobile,
		user.Avatar, user.PasswordHash, nullString(user.SessionToken), nullString(user.PairingCode),
		nullString(user.ResetCode), user.ResetExpiresAt, permissions, user.DeviceName,
		user.DateOfBirth, string(user.Gender), string(user.PrimaryHand),
		user.Address, user.City, user.Country, user.PostalCode,
		user.ExperienceLevel, user.StressLevel, user.Notes, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user already exists: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND status <> 'deleted'`,
		userID.Int64())
	return scanUser(row)
}

func (s *PostgresStore) FindActiveByIdentifier(ctx context.Context, identifier string, adminScope bool) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE status = 'active'
		  AND (role = 'admin') = $2
		  AND (username = $1 OR email = $1 OR mobile = $1)
		LIMIT 1`,
		identifier, adminScope)
	return scanUser(row)
}

func (s *PostgresStore) FindActiveByEmail(ctx context.Context, email string, adminScope bool) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE status = 'active' AND (role = 'admin') = $2 AND email = $1
		LIMIT 1`,
		email, adminScope)
	return scanUser(row)
}

func (s *PostgresStore) FindBySessionToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE session_token = $1 LIMIT 1`, token)
	return scanUser(row)
}

func (s *PostgresStore) FindActiveByPairingCode(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE status = 'active' AND role <> 'admin' AND pairing_code = $1
		LIMIT 1`, code)
	return scanUser(row)
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND status <> 'deleted' ORDER BY id`,
		tenantID.Int64())
	if err != nil {
		return nil, fmt.Errorf("list users by tenant: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND status <> 'deleted'`,
		tenantID.Int64()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users by tenant: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ExistsIdentifier(ctx context.Context, username, email, mobile string, exclude id.UserID) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, email, mobile FROM users
		WHERE status <> 'deleted' AND id <> $4
		  AND (username = $1 OR email = $2 OR mobile = $3)`,
		username, email, mobile, exclude.Int64())
	if err != nil {
		return nil, fmt.Errorf("check identifier uniqueness: %w", err)
	}
	defer rows.Close()

	taken := map[string]bool{}
	for rows.Next() {
		var u, e, m string
		if err := rows.Scan(&u, &e, &m); err != nil {
			return nil, fmt.Errorf("scan identifier row: %w", err)
		}
		if username != "" && u == username {
			taken["username"] = true
		}
		if email != "" && e == email {
			taken["email"] = true
		}
		if mobile != "" && m == mobile {
			taken["mobile"] = true
		}
	}
	return taken, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET status = 'deleted', session_token = NULL, pairing_code = NULL, updated_at = $2
		WHERE id = $1 AND status <> 'deleted'`,
		userID.Int64(), time.Now())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		tenantID    int64
		role        string
		status      string
		gender      string
		primaryHand string
		permissions []byte
	)
	err := row.Scan(
		&u.ID, &tenantID, &role, &status, &u.Name, &u.LastName, &u.Username, &u.Email, &u.Mobile,
		&u.Avatar, &u.PasswordHash, &u.SessionToken, &u.PairingCode,
		&u.ResetCode, &u.ResetExpiresAt, &permissions, &u.DeviceName, &u.DateOfBirth,
		&gender, &primaryHand, &u.Address, &u.City, &u.Country, &u.PostalCode,
		&u.ExperienceLevel, &u.StressLevel, &u.Notes, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.TenantID = id.TenantID(tenantID)
	u.Role = models.Role(role)
	u.Status = models.UserStatus(status)
	u.Gender = models.Gender(gender)
	u.PrimaryHand = models.PrimaryHand(primaryHand)
	if len(permissions) > 0 {
		if err := json.Unmarshal(permissions, &u.Permissions); err != nil {
			return nil, fmt.Errorf("unmarshal permissions: %w", err)
		}
	}
	return &u, nil
}

func nullTenant(tenantID id.TenantID) any {
	if tenantID.IsZero() {
		return nil
	}
	return tenantID.Int64()
}

// Session tokens carry a UNIQUE constraint; NULL keeps logged-out rows from
// colliding on the empty string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
