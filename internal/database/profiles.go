package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"termin/internal/models"
)

// GetProfile returns the live customer profile for userID.
func (db *DB) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `SELECT id, name, phone, email, created_at, updated_at FROM users WHERE id = ?`
	p := &models.UserProfile{}
	err := db.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.Name, &p.Phone, &p.Email, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return p, nil
}

// SaveProfile creates or updates a customer profile. Profile edits do
// not touch snapshots already taken into bookings.
func (db *DB) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	if profile.ID == "" {
		return fmt.Errorf("%w: profile id is required", ErrValidation)
	}

	now := time.Now()
	query := `INSERT INTO users (id, name, phone, email, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET
	              name = excluded.name,
	              phone = excluded.phone,
	              email = excluded.email,
	              updated_at = excluded.updated_at`
	_, err := db.db.ExecContext(ctx, query,
		profile.ID, profile.Name, profile.Phone, profile.Email, now, now)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", profile.ID, err)
	}
	return nil
}
