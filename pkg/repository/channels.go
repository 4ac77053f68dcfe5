package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type channelRepository struct {
	db *sql.DB
}

func NewChannelRepository(db *sql.DB) *channelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) IsOwnedBy(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM channels
			WHERE id = $1 AND owner_id = $2
		)
	`

	var owned bool
	if err := r.db.QueryRowContext(ctx, query, channelID, userID).Scan(&owned); err != nil {
		return false, fmt.Errorf("checking channel owner: %w", err)
	}

	return owned, nil
}
