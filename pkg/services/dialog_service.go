package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
	"github.com/nungthesnail/telegram-ai/pkg/logger"
)

type DialogRepository interface {
	Create(ctx context.Context, dialog domain.Dialog) error
	GetByID(ctx context.Context, dialogID, userID uuid.UUID) (*domain.Dialog, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Dialog, error)
	ListByChannel(ctx context.Context, userID, channelID uuid.UUID) ([]domain.Dialog, error)
	Delete(ctx context.Context, dialogID, userID uuid.UUID) error
}

type MessageRepository interface {
	Add(ctx context.Context, msg domain.DialogMessage) error
	ListByDialog(ctx context.Context, dialogID uuid.UUID) ([]domain.DialogMessage, error)
}

type ChannelRepository interface {
	IsOwnedBy(ctx context.Context, channelID, userID uuid.UUID) (bool, error)
}

type SubscriptionRepository interface {
	Debit(ctx context.Context, userID uuid.UUID, amount float64) (float64, error)
}

type ModelConfigProvider interface {
	SystemPrompt() string
	ToolsDescription() string
}

type ModelInfoProvider interface {
	GetModelInfo(ctx context.Context, id int64) (*domain.ModelInfo, error)
}

type Assistant interface {
	GenerateResponse(ctx context.Context, req AssistantRequest) (*AssistantReply, error)
}

type dialogService struct {
	dialogRepo       DialogRepository
	messageRepo      MessageRepository
	channelRepo      ChannelRepository
	subscriptionRepo SubscriptionRepository
	models           ModelInfoProvider
	modelConfig      ModelConfigProvider
	assistant        Assistant
	locks            *dialogLocks
	now              func() time.Time
}

func NewDialogService(
	dialogRepo DialogRepository,
	messageRepo MessageRepository,
	channelRepo ChannelRepository,
	subscriptionRepo SubscriptionRepository,
	models ModelInfoProvider,
	modelConfig ModelConfigProvider,
	assistant Assistant,
) *dialogService {
	return &dialogService{
		dialogRepo:       dialogRepo,
		messageRepo:      messageRepo,
		channelRepo:      channelRepo,
		subscriptionRepo: subscriptionRepo,
		models:           models,
		modelConfig:      modelConfig,
		assistant:        assistant,
		locks:            newDialogLocks(),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage runs one turn. The user message is stored before the model is called and
// survives a failed turn; the assistant message is stored only after the balance is debited.
// Turns on the same dialog run one at a time.
func (d *dialogService) SendMessage(ctx context.Context, userID, dialogID uuid.UUID, modelID int64, text string) (*domain.Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyMessage
	}

	unlock, err := d.locks.Lock(ctx, dialogID)
	if err != nil {
		return nil, fmt.Errorf("waiting for dialog: %w", err)
	}
	defer unlock()

	dialog, err := d.dialogRepo.GetByID(ctx, dialogID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching dialog: %w", err)
	}

	model, err := d.models.GetModelInfo(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("resolving model: %w", err)
	}

	userMessage := domain.DialogMessage{
		ID:        uuid.New(),
		DialogID:  dialog.ID,
		Sender:    domain.SenderUser,
		Entities:  []domain.Entity{domain.TextEntity{Body: text}},
		CreatedAt: d.now(),
	}
	if err := d.messageRepo.Add(ctx, userMessage); err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	history, err := d.messageRepo.ListByDialog(ctx, dialog.ID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	history = lo.Reject(history, func(m domain.DialogMessage, _ int) bool {
		return m.ID == userMessage.ID
	})

	slog.InfoContext(ctx, "Generating assistant response",
		"dialogID", dialog.ID,
		"model", model.Name,
		"historyCount", len(history),
	)

	reply, err := d.assistant.GenerateResponse(ctx, AssistantRequest{
		DialogID:         dialog.ID,
		ProviderModelID:  model.ProviderModelID,
		History:          history,
		UserMessage:      text,
		SystemPrompt:     d.modelConfig.SystemPrompt(),
		ToolsDescription: d.modelConfig.ToolsDescription(),
	})
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	// Tokens are already spent with the provider, so the rest ignores cancellation.
	persistCtx := context.WithoutCancel(ctx)

	cost := model.Cost(reply.Usage)
	balance, err := d.subscriptionRepo.Debit(persistCtx, userID, cost)
	if err != nil {
		return nil, fmt.Errorf("debiting balance: %w", err)
	}

	slog.InfoContext(ctx, "Turn completed",
		"dialogID", dialog.ID,
		"iterations", reply.Iterations,
		"inputTokens", reply.Usage.Input,
		"outputTokens", reply.Usage.Output,
		"cost", cost,
		"balance", balance,
	)

	assistantMessage := domain.DialogMessage{
		ID:        uuid.New(),
		DialogID:  dialog.ID,
		Sender:    domain.SenderAssistant,
		Entities:  reply.Entities,
		CreatedAt: d.now(),
	}
	if !assistantMessage.CreatedAt.After(userMessage.CreatedAt) {
		assistantMessage.CreatedAt = userMessage.CreatedAt.Add(time.Microsecond)
	}
	if err := d.messageRepo.Add(persistCtx, assistantMessage); err != nil {
		return nil, fmt.Errorf("saving assistant message: %w", err)
	}

	return &domain.Turn{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}, nil
}

// StartDialog opens a dialog on a channel the user owns. A non-empty systemPrompt is
// stored as the dialog's first message.
func (d *dialogService) StartDialog(ctx context.Context, userID, channelID uuid.UUID, title, systemPrompt string) (*domain.Dialog, error) {
	owned, err := d.channelRepo.IsOwnedBy(ctx, channelID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking channel: %w", err)
	}
	if !owned {
		return nil, domain.ErrChannelNotFound
	}

	now := d.now()
	dialog := domain.Dialog{
		ID:        uuid.New(),
		ChannelID: channelID,
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		IsActive:  true,
		CreatedAt: now,
	}
	if dialog.Title == "" {
		dialog.Title = "Dialog " + now.Format("02.01 15:04")
	}

	if err := d.dialogRepo.Create(ctx, dialog); err != nil {
		return nil, fmt.Errorf("creating dialog: %w", err)
	}

	if strings.TrimSpace(systemPrompt) != "" {
		msg := domain.DialogMessage{
			ID:        uuid.New(),
			DialogID:  dialog.ID,
			Sender:    domain.SenderSystem,
			Entities:  []domain.Entity{domain.TextEntity{Body: systemPrompt}},
			CreatedAt: now,
		}
		if err := d.messageRepo.Add(ctx, msg); err != nil {
			return nil, fmt.Errorf("saving system prompt: %w", err)
		}
		dialog.Messages = []domain.DialogMessage{msg}
	}

	slog.InfoContext(ctx, "Dialog started", "dialogID", dialog.ID, "channelID", channelID)
	return &dialog, nil
}

// GetDialog returns the dialog with its full message history.
func (d *dialogService) GetDialog(ctx context.Context, userID, dialogID uuid.UUID) (*domain.Dialog, error) {
	dialog, err := d.dialogRepo.GetByID(ctx, dialogID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching dialog: %w", err)
	}

	dialog.Messages, err = d.messageRepo.ListByDialog(ctx, dialog.ID)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	return dialog, nil
}

func (d *dialogService) ListDialogs(ctx context.Context, userID uuid.UUID) ([]domain.Dialog, error) {
	dialogs, err := d.dialogRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing dialogs: %w", err)
	}
	return dialogs, nil
}

func (d *dialogService) ListChannelDialogs(ctx context.Context, userID, channelID uuid.UUID) ([]domain.Dialog, error) {
	dialogs, err := d.dialogRepo.ListByChannel(ctx, userID, channelID)
	if err != nil {
		return nil, fmt.Errorf("listing channel dialogs: %w", err)
	}
	return dialogs, nil
}

func (d *dialogService) DeleteDialog(ctx context.Context, userID, dialogID uuid.UUID) error {
	unlock, err := d.locks.Lock(ctx, dialogID)
	if err != nil {
		return fmt.Errorf("waiting for dialog: %w", err)
	}
	defer unlock()

	if err := d.dialogRepo.Delete(ctx, dialogID, userID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.ErrorContext(ctx, "Deleting dialog failed", "dialogID", dialogID, logger.Err(err))
		}
		return fmt.Errorf("deleting dialog: %w", err)
	}
	return nil
}
