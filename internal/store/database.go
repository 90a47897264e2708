package store

import (
	"context"
	"fmt"

	"lifewood-support-backend/internal/db"
)

// DatabaseStore stores terms acceptance in PostgreSQL
type DatabaseStore struct {
	db *db.DB
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

// Accept records or refreshes the acceptance for a session
func (ds *DatabaseStore) Accept(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	query := `
		INSERT INTO terms_acceptance (session_id, accepted_at)
		VALUES ($1, NOW())
		ON CONFLICT (session_id)
		DO UPDATE SET accepted_at = NOW()
	`

	if _, err := ds.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to save terms acceptance: %w", err)
	}
	return nil
}

// HasAccepted reports whether the session has an acceptance row
func (ds *DatabaseStore) HasAccepted(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	var count int
	err := ds.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM terms_acceptance WHERE session_id = $1`,
		sessionID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to get terms acceptance: %w", err)
	}
	return count > 0, nil
}

// Revoke removes the acceptance for a session
func (ds *DatabaseStore) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	if _, err := ds.db.ExecContext(ctx, `DELETE FROM terms_acceptance WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to delete terms acceptance: %w", err)
	}
	return nil
}
