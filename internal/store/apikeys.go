package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyRepository stores bcrypt-hashed API keys and verifies presented
// keys against the active set.
type APIKeyRepository struct {
	db   DBTX
	cost int
}

// NewAPIKeyRepository creates an APIKeyRepository with the given bcrypt
// cost.
func NewAPIKeyRepository(db DBTX, cost int) *APIKeyRepository {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &APIKeyRepository{db: db, cost: cost}
}

// Create hashes and stores a new key under the given name, returning the
// record ID.
func (r *APIKeyRepository) Create(ctx context.Context, name, key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), r.cost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}

	id := uuid.New().String()
	_, err = r.db.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash) VALUES ($1, $2, $3)`,
		id, name, string(hash),
	)
	if err != nil {
		return "", fmt.Errorf("insert api key: %w", err)
	}
	return id, nil
}

// VerifyKey reports whether the presented key matches any active stored
// key. Implements middleware.KeyVerifier.
func (r *APIKeyRepository) VerifyKey(ctx context.Context, key string) (bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT key_hash FROM api_keys WHERE revoked_at IS NULL`)
	if err != nil {
		return false, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return false, fmt.Errorf("scan api key: %w", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("query api keys: %w", err)
	}
	return false, nil
}

// Revoke deactivates a key by ID.
func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
