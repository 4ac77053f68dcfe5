package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

type subscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *subscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Debit subtracts amount in a single statement and returns the new balance.
// The balance is allowed to drop below zero.
func (r *subscriptionRepository) Debit(ctx context.Context, userID uuid.UUID, amount float64) (float64, error) {
	const query = `
		UPDATE subscriptions
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING balance
	`

	var balance float64
	if err := r.db.QueryRowContext(ctx, query, userID, amount).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrSubscriptionNotFound
		}
		return 0, fmt.Errorf("debiting balance: %w", err)
	}

	return balance, nil
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	const query = `
		SELECT user_id, balance
		FROM subscriptions
		WHERE user_id = $1
	`

	var s domain.Subscription
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.Balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("fetching subscription: %w", err)
	}

	return &s, nil
}
