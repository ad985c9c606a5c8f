// Package sessions manages refresh tokens. Only the SHA-256 of a token is
// stored; the raw value exists once, in the response that minted it.
package sessions

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agendly/agendly/libs/db"
)

var ErrInvalidToken = errors.New("refresh token invalid or expired")

type Session struct {
	TokenHash string
	AccountID string
	ExpiresAt time.Time
}

type Repository struct {
	pool *db.Pool
	ttl  time.Duration
}

func NewRepository(pool *db.Pool, ttl time.Duration) *Repository {
	return &Repository{pool: pool, ttl: ttl}
}

// Create mints a refresh token for the account and returns the raw value.
func (r *Repository) Create(ctx context.Context, accountID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token_hash, account_id, expires_at)
		VALUES ($1, $2, $3)`,
		HashToken(token), accountID, time.Now().Add(r.ttl))
	if err != nil {
		return "", err
	}
	return token, nil
}

// Consume validates a raw token and revokes it, returning the account it
// belonged to. Refresh tokens are single use.
func (r *Repository) Consume(ctx context.Context, token string) (string, error) {
	var accountID string
	err := r.pool.QueryRow(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > now()
		RETURNING account_id`,
		HashToken(token),
	).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}

// Revoke invalidates a raw token. Revoking an unknown token is not an error;
// logout is idempotent.
func (r *Repository) Revoke(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		HashToken(token))
	return err
}

// RevokeAllForAccount invalidates every live session for an account. Used
// when the account is deleted.
func (r *Repository) RevokeAllForAccount(ctx context.Context, accountID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE account_id = $1 AND revoked_at IS NULL`, accountID)
	return err
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
