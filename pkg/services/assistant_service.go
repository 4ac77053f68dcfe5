package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
	"github.com/nungthesnail/telegram-ai/pkg/logger"
)

// MaxToolIterations bounds the number of model round-trips in one turn.
const MaxToolIterations = 10

const (
	FallbackAnswer       = "Sorry, I could not come up with an answer. Please try rephrasing your request."
	IterationLimitNotice = "The maximum number of tool-processing iterations has been reached."
)

type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ToolExecutor interface {
	Execute(ctx context.Context, dialogID uuid.UUID, name, args string) (string, []domain.PostDraft)
}

type AssistantRequest struct {
	DialogID         uuid.UUID
	ProviderModelID  string
	History          []domain.DialogMessage
	UserMessage      string
	SystemPrompt     string
	ToolsDescription string
}

type AssistantReply struct {
	Entities     []domain.Entity
	Usage        domain.TokenUsage
	Iterations   int
	LimitReached bool
}

// turnState is everything that accumulates across iterations of a single turn.
type turnState struct {
	messages   []openai.ChatCompletionMessage
	usage      domain.TokenUsage
	drafts     []domain.PostDraft
	iterations int
	answer     string
	done       bool
}

type assistantService struct {
	completer ChatCompleter
	executor  ToolExecutor
}

func NewAssistantService(completer ChatCompleter, executor ToolExecutor) *assistantService {
	return &assistantService{
		completer: completer,
		executor:  executor,
	}
}

// GenerateResponse drives the ask-model/run-tools loop until the model answers in
// text or MaxToolIterations round-trips have been made. Model API errors end the turn.
func (a *assistantService) GenerateResponse(ctx context.Context, req AssistantRequest) (*AssistantReply, error) {
	state := &turnState{messages: buildMessages(req)}
	tools := parseToolsDescription(ctx, req.ToolsDescription)

	for state.iterations < MaxToolIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		completion := openai.ChatCompletionRequest{
			Model:    req.ProviderModelID,
			Messages: state.messages,
		}
		if len(tools) > 0 {
			completion.Tools = tools
		}

		slog.InfoContext(ctx, "Calling model for chat completion",
			"model", req.ProviderModelID,
			"iteration", state.iterations+1,
			"messagesCount", len(state.messages),
		)

		resp, err := a.completer.CreateChatCompletion(ctx, completion)
		if err != nil {
			return nil, fmt.Errorf("creating chat completion: %w", err)
		}

		a.advance(ctx, req.DialogID, state, resp)
		if state.done {
			break
		}
	}

	reply := &AssistantReply{
		Usage:      state.usage,
		Iterations: state.iterations,
	}

	answer := state.answer
	if !state.done {
		slog.WarnContext(ctx, "Tool iteration limit reached", "dialogID", req.DialogID, "iterations", state.iterations)
		answer = IterationLimitNotice
		reply.LimitReached = true
	}

	reply.Entities = []domain.Entity{domain.TextEntity{Body: answer}}
	if len(state.drafts) > 0 {
		reply.Entities = append(reply.Entities, domain.SuggestedPostsEntity{Posts: state.drafts})
	}

	return reply, nil
}

// advance applies one model response to the turn state.
func (a *assistantService) advance(ctx context.Context, dialogID uuid.UUID, state *turnState, resp openai.ChatCompletionResponse) {
	state.iterations++
	state.usage = state.usage.Add(domain.TokenUsage{
		Input:  resp.Usage.PromptTokens,
		Output: resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) == 0 {
		state.answer = FallbackAnswer
		state.done = true
		return
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		state.answer = firstText(msg)
		state.done = true
		return
	}

	msg.Role = openai.ChatMessageRoleAssistant
	state.messages = append(state.messages, msg)

	for _, call := range toToolCalls(msg.ToolCalls) {
		result, drafts := a.executor.Execute(ctx, dialogID, call.Name, call.Arguments)
		state.drafts = append(state.drafts, drafts...)
		state.messages = append(state.messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    result,
			Name:       call.Name,
			ToolCallID: call.ID,
		})
	}
}

func firstText(msg openai.ChatCompletionMessage) string {
	if strings.TrimSpace(msg.Content) != "" {
		return msg.Content
	}
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText && strings.TrimSpace(part.Text) != "" {
			return part.Text
		}
	}
	return FallbackAnswer
}

func toToolCalls(calls []openai.ToolCall) []domain.ToolCall {
	out := make([]domain.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, domain.ToolCall{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		})
	}
	return out
}

// buildMessages lays out the prompt: system prompt, history, then the new user message.
// A stored system message repeating the current system prompt is dropped.
func buildMessages(req AssistantRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)

	systemPrompt := strings.TrimSpace(req.SystemPrompt)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, m := range req.History {
		text := m.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		var role string
		switch m.Sender {
		case domain.SenderUser:
			role = openai.ChatMessageRoleUser
		case domain.SenderAssistant:
			role = openai.ChatMessageRoleAssistant
		case domain.SenderSystem:
			if systemPrompt != "" && strings.TrimSpace(text) == systemPrompt {
				continue
			}
			role = openai.ChatMessageRoleSystem
		default:
			continue
		}

		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: text})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})
}

type toolDescription struct {
	Type     openai.ToolType `json:"type"`
	Function *struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

// parseToolsDescription turns a JSON array of function schemas into provider tools.
// Anything malformed means the turn runs without tools.
func parseToolsDescription(ctx context.Context, description string) []openai.Tool {
	if strings.TrimSpace(description) == "" {
		return nil
	}

	var items []toolDescription
	if err := json.Unmarshal([]byte(description), &items); err != nil {
		slog.WarnContext(ctx, "Ignoring malformed tools description", logger.Err(err))
		return nil
	}

	tools := make([]openai.Tool, 0, len(items))
	for _, item := range items {
		if item.Type != openai.ToolTypeFunction || item.Function == nil || item.Function.Name == "" {
			continue
		}

		params := item.Function.Parameters
		if len(params) == 0 || string(params) == "null" {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}

		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        item.Function.Name,
				Description: item.Function.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}
