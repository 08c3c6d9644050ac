package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/user"
)

const userColumns = `id, email, name, password_hash, account_type, is_active, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, tenantID string, u *user.User) error {
	schema, err := sanitizedSchema(tenantID)
	if err != nil {
		return err
	}

	u.TenantID = tenantID
	err = s.pool.QueryRow(ctx,
		`INSERT INTO `+schema+`.users (email, name, password_hash, account_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.PasswordHash, string(u.Tier),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.Active = true
	return nil
}

func (s *Store) GetUser(ctx context.Context, tenantID, userID string) (*user.User, error) {
	schema, err := sanitizedSchema(tenantID)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+schema+`.users WHERE id = $1`, userID)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	u.TenantID = tenantID
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, tenantID, email string) (*user.User, error) {
	schema, err := sanitizedSchema(tenantID)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+schema+`.users WHERE email = $1`, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get user by email: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	u.TenantID = tenantID
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, tenantID string) ([]user.User, error) {
	schema, err := sanitizedSchema(tenantID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM `+schema+`.users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		u.TenantID = tenantID
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, tenantID, userID string, req user.UpdateRequest) (*user.User, error) {
	schema, err := sanitizedSchema(tenantID)
	if err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE `+schema+`.users SET
		   name = COALESCE(NULLIF($2, ''), name),
		   account_type = COALESCE(NULLIF($3, ''), account_type),
		   is_active = COALESCE($4, is_active),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, req.Name, string(req.Tier), req.Active)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update user %s: %w", userID, err)
	}
	u.TenantID = tenantID
	return &u, nil
}

func scanUser(row scannable) (user.User, error) {
	var u user.User
	var tier string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &tier, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	u.Tier = user.Tier(tier)
	return u, err
}
