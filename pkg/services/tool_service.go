package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nungthesnail/telegram-ai/pkg/domain"
	"github.com/nungthesnail/telegram-ai/pkg/logger"
)

type ToolFunction interface {
	Name() string
	Description() string
	Parameters() jsonschema.Definition
	Call(ctx context.Context, dialogID uuid.UUID, args json.RawMessage) (*domain.ToolResult, error)
}

type toolService struct {
	tools map[string]ToolFunction
}

func NewToolService(toolFunctions []ToolFunction) (*toolService, error) {
	tools := make(map[string]ToolFunction, len(toolFunctions))
	for _, t := range toolFunctions {
		if t == nil {
			return nil, errors.New("tool function cannot be nil")
		}
		if t.Name() == "" {
			return nil, errors.New("tool function name cannot be empty")
		}
		if _, exists := tools[t.Name()]; exists {
			return nil, fmt.Errorf("tool function %q registered twice", t.Name())
		}
		tools[t.Name()] = t
	}

	return &toolService{tools: tools}, nil
}

// Tools returns the provider definitions of the registered functions, sorted by name.
func (ts *toolService) Tools() []openai.Tool {
	names := make([]string, 0, len(ts.tools))
	for name := range ts.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]openai.Tool, 0, len(names))
	for _, name := range names {
		t := ts.tools[name]
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Describe renders the registered tools in the JSON array format accepted as a tools description.
func (ts *toolService) Describe() (string, error) {
	b, err := json.Marshal(ts.Tools())
	if err != nil {
		return "", fmt.Errorf("marshaling tools: %w", err)
	}
	return string(b), nil
}

// Execute runs one tool call. It never fails: problems are reported to the model
// as {"error": "..."} so it can correct itself. Drafts are only returned on success.
func (ts *toolService) Execute(ctx context.Context, dialogID uuid.UUID, name, args string) (result string, drafts []domain.PostDraft) {
	slog.DebugContext(ctx, "Invoking function", "name", name, "args", args)

	tool, ok := ts.tools[name]
	if !ok {
		return errorPayload("Unknown function: " + name), nil
	}

	res, err := ts.call(ctx, tool, dialogID, args)
	if err != nil {
		slog.WarnContext(ctx, "Function failed", "name", name, logger.Err(err))
		return errorPayload(err.Error()), nil
	}

	b, err := json.Marshal(res.Payload)
	if err != nil {
		return errorPayload(fmt.Sprintf("encoding result: %v", err)), nil
	}

	slog.DebugContext(ctx, "Function executed", "name", name, "result", string(b), "drafts", len(res.Drafts))
	return string(b), res.Drafts
}

func (ts *toolService) call(ctx context.Context, tool ToolFunction, dialogID uuid.UUID, args string) (res *domain.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("function %q panicked: %v", tool.Name(), r)
		}
	}()

	if args == "" {
		args = "{}"
	}

	var parsedArgs map[string]any
	if err := json.Unmarshal([]byte(args), &parsedArgs); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}
	if err := validateArguments(tool.Parameters(), parsedArgs); err != nil {
		return nil, fmt.Errorf("invalid arguments for function %q: %w", tool.Name(), err)
	}

	res, err = tool.Call(ctx, dialogID, json.RawMessage(args))
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &domain.ToolResult{Payload: map[string]any{"success": true}}
	}
	return res, nil
}

func validateArguments(schema jsonschema.Definition, args map[string]any) error {
	for _, paramName := range schema.Required {
		value, ok := args[paramName]
		if !ok {
			return fmt.Errorf("missing required parameter %q", paramName)
		}

		paramDef, ok := schema.Properties[paramName]
		if !ok {
			continue
		}
		if !isValidType(value, paramDef.Type) {
			return fmt.Errorf("parameter %q has invalid type: expected %q, got %T", paramName, paramDef.Type, value)
		}
	}
	return nil
}

func isValidType(value any, expectedType jsonschema.DataType) bool {
	switch expectedType {
	case jsonschema.String:
		_, ok := value.(string)
		return ok
	case jsonschema.Number, jsonschema.Integer:
		_, ok := value.(float64)
		return ok
	case jsonschema.Boolean:
		_, ok := value.(bool)
		return ok
	case jsonschema.Array:
		_, ok := value.([]any)
		return ok
	case jsonschema.Object:
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func errorPayload(message string) string {
	b, _ := json.Marshal(map[string]string{"error": message})
	return string(b)
}
