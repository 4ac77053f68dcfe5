package domain

import "github.com/google/uuid"

const tokensPerCostUnit = 1_000_000

// ModelInfo describes a model a user may pick. Costs are per one million tokens.
type ModelInfo struct {
	ID                int64
	Name              string
	ProviderModelID   string
	RequestTokenCost  float64
	ResponseTokenCost float64
}

// Cost returns the balance charge for the given usage.
func (m ModelInfo) Cost(usage TokenUsage) float64 {
	total := m.RequestTokenCost*float64(usage.Input) + m.ResponseTokenCost*float64(usage.Output)
	return total / tokensPerCostUnit
}

type TokenUsage struct {
	Input  int
	Output int
}

func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		Input:  u.Input + other.Input,
		Output: u.Output + other.Output,
	}
}

func (u TokenUsage) Total() int {
	return u.Input + u.Output
}

type Subscription struct {
	UserID  uuid.UUID
	Balance float64
}
