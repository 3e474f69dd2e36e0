package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"announcement_syncer/internal/domain"
)

// CredentialStore reads OAuth accounts written by the login flow.
type CredentialStore struct {
	db *sqlx.DB
}

func NewCredentialStore(db *sqlx.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Get returns nil without error when the user has no account for provider.
func (s *CredentialStore) Get(ctx context.Context, userID, provider string) (*domain.Credential, error) {
	var row struct {
		UserID      string         `db:"user_id"`
		Provider    string         `db:"provider"`
		AccessToken sql.NullString `db:"access_token"`
		ExpiresAt   sql.NullInt64  `db:"expires_at"`
	}

	query := `
		SELECT user_id, provider, access_token, expires_at
		FROM accounts
		WHERE user_id = $1 AND provider = $2`

	err := s.db.GetContext(ctx, &row, query, userID, provider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	return &domain.Credential{
		UserID:      row.UserID,
		Provider:    row.Provider,
		AccessToken: row.AccessToken.String,
		ExpiresAt:   row.ExpiresAt.Int64,
	}, nil
}

func (s *CredentialStore) Save(ctx context.Context, c *domain.Credential) error {
	query := `
		INSERT INTO accounts (user_id, provider, access_token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			expires_at = EXCLUDED.expires_at`

	var expires any
	if c.ExpiresAt != 0 {
		expires = c.ExpiresAt
	}

	if _, err := s.db.ExecContext(ctx, query, c.UserID, c.Provider, c.AccessToken, expires); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}
