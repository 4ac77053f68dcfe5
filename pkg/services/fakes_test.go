package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
)

// scriptedCompleter replays responses in order and records every request.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []openai.ChatCompletionResponse
	errs      []error
	requests  []openai.ChatCompletionRequest
	// repeat, when set, is returned once the script runs out.
	repeat *openai.ChatCompletionResponse
}

func (s *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	copy(msgs, req.Messages)
	req.Messages = msgs
	s.requests = append(s.requests, req)

	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return openai.ChatCompletionResponse{}, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	if s.repeat != nil {
		return *s.repeat, nil
	}
	return openai.ChatCompletionResponse{}, errors.New("script exhausted")
}

func (s *scriptedCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func textResponse(text string, in, out int) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: text,
			},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}
}

func toolCallResponse(in, out int, calls ...openai.ToolCall) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				ToolCalls: calls,
			},
			FinishReason: openai.FinishReasonToolCalls,
		}},
		Usage: openai.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:   id,
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

type fakeDialogRepo struct {
	mu      sync.Mutex
	dialogs map[uuid.UUID]domain.Dialog
}

func newFakeDialogRepo(dialogs ...domain.Dialog) *fakeDialogRepo {
	r := &fakeDialogRepo{dialogs: make(map[uuid.UUID]domain.Dialog)}
	for _, d := range dialogs {
		r.dialogs[d.ID] = d
	}
	return r
}

func (r *fakeDialogRepo) Create(_ context.Context, dialog domain.Dialog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogs[dialog.ID] = dialog
	return nil
}

func (r *fakeDialogRepo) GetByID(_ context.Context, dialogID, userID uuid.UUID) (*domain.Dialog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dialogs[dialogID]
	if !ok || d.UserID != userID {
		return nil, domain.ErrDialogNotFound
	}
	return &d, nil
}

func (r *fakeDialogRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Dialog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Dialog
	for _, d := range r.dialogs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDialogRepo) ListByChannel(ctx context.Context, userID, channelID uuid.UUID) ([]domain.Dialog, error) {
	all, _ := r.ListByUser(ctx, userID)
	var out []domain.Dialog
	for _, d := range all {
		if d.ChannelID == channelID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDialogRepo) Delete(_ context.Context, dialogID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dialogs[dialogID]
	if !ok || d.UserID != userID {
		return domain.ErrDialogNotFound
	}
	delete(r.dialogs, dialogID)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.DialogMessage
	addErr   error
}

func (r *fakeMessageRepo) Add(ctx context.Context, msg domain.DialogMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil && msg.Sender == domain.SenderAssistant {
		return r.addErr
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeMessageRepo) ListByDialog(_ context.Context, dialogID uuid.UUID) ([]domain.DialogMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DialogMessage
	for _, m := range r.messages {
		if m.DialogID == dialogID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) bySender(sender domain.Sender) []domain.DialogMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DialogMessage
	for _, m := range r.messages {
		if m.Sender == sender {
			out = append(out, m)
		}
	}
	return out
}

type fakeChannelRepo struct {
	owners map[uuid.UUID]uuid.UUID
}

func (r *fakeChannelRepo) IsOwnedBy(_ context.Context, channelID, userID uuid.UUID) (bool, error) {
	owner, ok := r.owners[channelID]
	return ok && owner == userID, nil
}

type fakeSubscriptionRepo struct {
	mu       sync.Mutex
	balances map[uuid.UUID]float64
	debits   int
}

func (r *fakeSubscriptionRepo) Debit(ctx context.Context, userID uuid.UUID, amount float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[userID]
	if !ok {
		return 0, domain.ErrSubscriptionNotFound
	}
	r.debits++
	balance -= amount
	r.balances[userID] = balance
	return balance, nil
}

func (r *fakeSubscriptionRepo) balance(userID uuid.UUID) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID]
}

type fakeModelRepo struct {
	mu     sync.Mutex
	models map[int64]domain.ModelInfo
	loads  int
}

func (r *fakeModelRepo) GetByID(_ context.Context, id int64) (*domain.ModelInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	m, ok := r.models[id]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return &m, nil
}

func (r *fakeModelRepo) List(_ context.Context) ([]domain.ModelInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ModelInfo, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type staticModelConfig struct {
	systemPrompt string
	tools        string
}

func (s staticModelConfig) SystemPrompt() string     { return s.systemPrompt }
func (s staticModelConfig) ToolsDescription() string { return s.tools }
