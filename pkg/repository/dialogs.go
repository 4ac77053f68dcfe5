package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

type dialogRepository struct {
	db *sql.DB
}

func NewDialogRepository(db *sql.DB) *dialogRepository {
	return &dialogRepository{db: db}
}

func (r *dialogRepository) Create(ctx context.Context, dialog domain.Dialog) error {
	const query = `
		INSERT INTO dialogs (id, channel_id, user_id, title, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		dialog.ID, dialog.ChannelID, dialog.UserID, dialog.Title, dialog.IsActive, dialog.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting dialog: %w", err)
	}

	return nil
}

// GetByID returns the dialog without messages. Dialogs of other users are reported as not found.
func (r *dialogRepository) GetByID(ctx context.Context, dialogID, userID uuid.UUID) (*domain.Dialog, error) {
	const query = `
		SELECT id, channel_id, user_id, title, is_active, created_at
		FROM dialogs
		WHERE id = $1 AND user_id = $2
	`

	dialog, err := scanDialog(r.db.QueryRowContext(ctx, query, dialogID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDialogNotFound
		}
		return nil, fmt.Errorf("fetching dialog by id: %w", err)
	}

	return dialog, nil
}

func (r *dialogRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Dialog, error) {
	const query = `
		SELECT id, channel_id, user_id, title, is_active, created_at
		FROM dialogs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	return r.list(ctx, query, userID)
}

func (r *dialogRepository) ListByChannel(ctx context.Context, userID, channelID uuid.UUID) ([]domain.Dialog, error) {
	const query = `
		SELECT id, channel_id, user_id, title, is_active, created_at
		FROM dialogs
		WHERE user_id = $1 AND channel_id = $2
		ORDER BY created_at DESC
	`

	return r.list(ctx, query, userID, channelID)
}

func (r *dialogRepository) Delete(ctx context.Context, dialogID, userID uuid.UUID) error {
	const query = `
		DELETE FROM dialogs
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, dialogID, userID)
	if err != nil {
		return fmt.Errorf("deleting dialog: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrDialogNotFound
	}

	return nil
}

func (r *dialogRepository) list(ctx context.Context, query string, args ...any) ([]domain.Dialog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying dialogs: %w", err)
	}
	defer rows.Close()

	dialogs := []domain.Dialog{}
	for rows.Next() {
		dialog, err := scanDialog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dialog: %w", err)
		}
		dialogs = append(dialogs, *dialog)
	}

	return dialogs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDialog(row scanner) (*domain.Dialog, error) {
	var d domain.Dialog
	if err := row.Scan(&d.ID, &d.ChannelID, &d.UserID, &d.Title, &d.IsActive, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}
