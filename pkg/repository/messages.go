package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

type messageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *messageRepository {
	return &messageRepository{db: db}
}

// Add stores the message with its entities serialized into the content column.
func (r *messageRepository) Add(ctx context.Context, msg domain.DialogMessage) error {
	content, err := domain.EncodeEntities(msg.Entities)
	if err != nil {
		return fmt.Errorf("encoding entities: %w", err)
	}

	const query = `
		INSERT INTO dialog_messages (id, dialog_id, sender, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := r.db.ExecContext(ctx, query, msg.ID, msg.DialogID, string(msg.Sender), content, msg.CreatedAt); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return nil
}

// ListByDialog returns messages oldest first. Unreadable content decodes to an error entity
// instead of failing the whole history.
func (r *messageRepository) ListByDialog(ctx context.Context, dialogID uuid.UUID) ([]domain.DialogMessage, error) {
	const query = `
		SELECT id, dialog_id, sender, content, created_at
		FROM dialog_messages
		WHERE dialog_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, dialogID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.DialogMessage{}
	for rows.Next() {
		var (
			msg     domain.DialogMessage
			sender  string
			content string
		)
		if err := rows.Scan(&msg.ID, &msg.DialogID, &sender, &content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Sender = domain.Sender(sender)
		msg.Entities = domain.DecodeEntities(content)
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
