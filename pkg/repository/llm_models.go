package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

type llmModelRepository struct {
	db *sql.DB
}

func NewLLMModelRepository(db *sql.DB) *llmModelRepository {
	return &llmModelRepository{db: db}
}

func (r *llmModelRepository) GetByID(ctx context.Context, id int64) (*domain.ModelInfo, error) {
	const query = `
		SELECT id, name, provider_model_id, request_token_cost, response_token_cost
		FROM llm_models
		WHERE id = $1 AND is_active
	`

	var m domain.ModelInfo
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&m.ID, &m.Name, &m.ProviderModelID, &m.RequestTokenCost, &m.ResponseTokenCost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrModelNotFound
		}
		return nil, fmt.Errorf("fetching model by id: %w", err)
	}

	return &m, nil
}

func (r *llmModelRepository) List(ctx context.Context) ([]domain.ModelInfo, error) {
	const query = `
		SELECT id, name, provider_model_id, request_token_cost, response_token_cost
		FROM llm_models
		WHERE is_active
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying models: %w", err)
	}
	defer rows.Close()

	models := []domain.ModelInfo{}
	for rows.Next() {
		var m domain.ModelInfo
		if err := rows.Scan(&m.ID, &m.Name, &m.ProviderModelID, &m.RequestTokenCost, &m.ResponseTokenCost); err != nil {
			return nil, fmt.Errorf("scanning model: %w", err)
		}
		models = append(models, m)
	}

	return models, rows.Err()
}
