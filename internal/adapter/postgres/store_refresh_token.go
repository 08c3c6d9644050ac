package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jusflow/jusflow/internal/domain"
	"github.com/jusflow/jusflow/internal/domain/user"
)

func (s *Store) CreateRefreshToken(ctx context.Context, rt *user.RefreshToken) error {
	rt.CreatedAt = time.Now().UTC()
	rt.Active = true
	err := s.pool.QueryRow(ctx, `
		INSERT INTO admin.refresh_tokens (tenant_id, user_id, token_hash, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, true, $5)
		RETURNING id`,
		rt.TenantID, rt.UserID, rt.TokenHash, rt.ExpiresAt, rt.CreatedAt,
	).Scan(&rt.ID)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// RotateRefreshToken deactivates the token in a single conditional UPDATE,
// so two concurrent rotations of the same token cannot both win. A token
// that exists but is already inactive signals reuse of a rotated token.
func (s *Store) RotateRefreshToken(ctx context.Context, tokenHash string) (*user.RefreshToken, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE admin.refresh_tokens SET is_active = false
		WHERE token_hash = $1 AND is_active
		RETURNING id, tenant_id, user_id, token_hash, expires_at, is_active, created_at`,
		tokenHash)

	var rt user.RefreshToken
	err := row.Scan(&rt.ID, &rt.TenantID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.Active, &rt.CreatedAt)
	if err == nil {
		return &rt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	// No active row. Distinguish a rotated token from one we never issued;
	// the reused row comes back so the caller can revoke its owner's family.
	row = s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, user_id, token_hash, expires_at, is_active, created_at
		FROM admin.refresh_tokens WHERE token_hash = $1`, tokenHash)
	err = row.Scan(&rt.ID, &rt.TenantID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.Active, &rt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return &rt, domain.ErrTokenReused
}

// RevokeAllForUser deactivates every refresh token of a user, used on
// logout and on reuse detection to kill the whole token family.
func (s *Store) RevokeAllForUser(ctx context.Context, tenantID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE admin.refresh_tokens SET is_active = false WHERE tenant_id = $1 AND user_id = $2`,
		tenantID, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens for user: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshTokens removes rows past their expiry, returning the
// number deleted. Run periodically from the server loop.
func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM admin.refresh_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
