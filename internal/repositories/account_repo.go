package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/assistiva/internal/database"
	"github.com/BradenHooton/assistiva/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, role_id, username, email, picture_url, salt, password_hash,
	recovery_code, recovery_expires_at, is_password_reset_pending, is_password_temporary,
	last_password_change_at, last_password_reset_request_at, is_active, version, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner interface for scanning account rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	err := scanner.Scan(
		&a.ID, &a.RoleID, &a.Username, &a.Email, &a.PictureURL, &a.Salt, &a.PasswordHash,
		&a.RecoveryCode, &a.RecoveryExpiresAt, &a.IsPasswordResetPending, &a.IsPasswordTemporary,
		&a.LastPasswordChangeAt, &a.LastPasswordResetRequestAt, &a.IsActive, &a.Version,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAccountRows(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		a, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

// buildAccountWhere renders the filter as a WHERE clause with positional
// arguments. An empty filter yields an empty clause.
func buildAccountWhere(f models.AccountFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case f.Username != "" && f.Email != "" && f.CrossIdentity:
		u, e := arg(f.Username), arg(f.Email)
		conds = append(conds, fmt.Sprintf("(username = %s OR email = %s OR email = lower(%s) OR lower(username) = %s)", u, e, u, e))
	case f.Username != "" && f.Email != "":
		conds = append(conds, fmt.Sprintf("(username = %s OR email = %s)", arg(f.Username), arg(f.Email)))
	case f.Username != "":
		conds = append(conds, "username = "+arg(f.Username))
	case f.Email != "":
		conds = append(conds, "email = "+arg(f.Email))
	}
	if f.RecoveryCode != "" {
		conds = append(conds, "recovery_code = "+arg(f.RecoveryCode))
	}
	if f.ExpiresAfter != nil {
		conds = append(conds, "recovery_expires_at > "+arg(*f.ExpiresAfter))
	}
	if f.ActiveOnly {
		conds = append(conds, "is_active = TRUE")
	}
	if f.ExcludeID != 0 {
		conds = append(conds, "id <> "+arg(f.ExcludeID))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *AccountRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	now := time.Now().UTC()
	if a.LastPasswordChangeAt.IsZero() {
		a.LastPasswordChangeAt = now
	}

	query := `
		INSERT INTO accounts (role_id, username, email, picture_url, salt, password_hash,
			recovery_code, recovery_expires_at, is_password_reset_pending, is_password_temporary,
			last_password_change_at, last_password_reset_request_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		a.RoleID, a.Username, a.Email, a.PictureURL, a.Salt, a.PasswordHash,
		a.RecoveryCode, a.RecoveryExpiresAt, a.IsPasswordResetPending, a.IsPasswordTemporary,
		a.LastPasswordChangeAt, a.LastPasswordResetRequestAt, a.IsActive, now,
	))
	if err != nil {
		return nil, database.MapPostgresError("create account", err)
	}
	return created, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccountRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, database.MapPostgresError("get account", err)
	}
	return a, nil
}

// FindOne returns the first account matching the filter, lowest id first.
func (r *AccountRepository) FindOne(ctx context.Context, f models.AccountFilter) (*models.Account, error) {
	where, args := buildAccountWhere(f)
	query := `SELECT ` + accountColumns + ` FROM accounts` + where + ` ORDER BY id LIMIT 1`

	a, err := scanAccountRow(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, database.MapPostgresError("find account", err)
	}
	return a, nil
}

func (r *AccountRepository) List(ctx context.Context, f models.AccountFilter) ([]*models.Account, error) {
	where, args := buildAccountWhere(f)
	query := `SELECT ` + accountColumns + ` FROM accounts` + where + ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, database.MapPostgresError("list accounts", err)
	}

	accounts, err := scanAccountRows(rows)
	if err != nil {
		return nil, database.MapPostgresError("list accounts", err)
	}
	return accounts, nil
}

// Update overwrites every mutable column in one statement. The row must still
// carry a.Version; otherwise models.ErrStaleAccount is returned and nothing
// is written.
func (r *AccountRepository) Update(ctx context.Context, a *models.Account) (*models.Account, error) {
	query := `
		UPDATE accounts SET
			role_id = $1, username = $2, email = $3, picture_url = $4,
			salt = $5, password_hash = $6,
			recovery_code = $7, recovery_expires_at = $8,
			is_password_reset_pending = $9, is_password_temporary = $10,
			last_password_change_at = $11, last_password_reset_request_at = $12,
			is_active = $13, updated_at = $14, version = version + 1
		WHERE id = $15 AND version = $16
		RETURNING ` + accountColumns

	updated, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		a.RoleID, a.Username, a.Email, a.PictureURL,
		a.Salt, a.PasswordHash,
		a.RecoveryCode, a.RecoveryExpiresAt,
		a.IsPasswordResetPending, a.IsPasswordTemporary,
		a.LastPasswordChangeAt, a.LastPasswordResetRequestAt,
		a.IsActive, time.Now().UTC(), a.ID, a.Version,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, database.MapPostgresError("update account", err)
	}

	// No row matched: either the account is gone or its version moved on.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
		return nil, database.MapPostgresError("update account", err)
	}
	if !exists {
		return nil, models.ErrNotFound
	}
	return nil, &models.PersistenceError{Op: "update account", Err: models.ErrStaleAccount}
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError("delete account", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearExpiredRecoveryCodes drops recovery codes whose window closed at or
// before now and returns how many accounts were touched.
func (r *AccountRepository) ClearExpiredRecoveryCodes(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE accounts SET
			recovery_code = NULL, recovery_expires_at = NULL,
			is_password_reset_pending = FALSE, updated_at = $1, version = version + 1
		WHERE recovery_expires_at IS NOT NULL AND recovery_expires_at <= $1
	`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError("clear expired recovery codes", err)
	}
	return result.RowsAffected(), nil
}
