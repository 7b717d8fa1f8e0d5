// internal/database/user.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/huex/liarbar/internal/models"
)

// CreateUser inserts a user row, generating the ID when absent.
func CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("generate user id: %w", err)
		}
		user.ID = id
	}

	q := `INSERT INTO users (id, username, is_ephemeral) VALUES ($1, $2, $3)`
	if _, err := DB.Exec(ctx, q, user.ID, user.Username, user.IsEphemeral); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID fetches one user row.
func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	q := `SELECT id, username, is_ephemeral FROM users WHERE id=$1`
	if err := DB.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.IsEphemeral); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUsername stores a renamed display name so it survives reconnects.
func UpdateUsername(ctx context.Context, id uuid.UUID, username string) error {
	q := `UPDATE users SET username=$2 WHERE id=$1`
	if _, err := DB.Exec(ctx, q, id, username); err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	return nil
}
