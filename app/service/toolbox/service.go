package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool is one named operation the agent may invoke instead of answering.
// Arguments are validated against Parameters' typed counterpart before the
// handler runs.
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
	Handler     func(ctx context.Context, args json.RawMessage) (string, error)
}

// Service is the registry. It is populated once at startup and read-only
// afterwards, so concurrent sessions may share it freely.
type Service struct {
	tools       map[string]Tool
	definitions []openai.Tool
}

// NewRegistry builds a registry from an explicit tool list.
func NewRegistry(tools ...Tool) *Service {
	s := &Service{
		tools: make(map[string]Tool),
	}

	for _, tool := range tools {
		s.register(tool)
	}

	return s
}

func (s *Service) register(tool Tool) {
	s.tools[tool.Name] = tool
	s.definitions = append(s.definitions, openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		},
	})
}

// Definitions returns the tool list in registration order, for the chat
// completion request.
func (s *Service) Definitions() []openai.Tool {
	return s.definitions
}

// Call dispatches one tool invocation. Unknown tools, invalid arguments and
// handler failures all come back as result strings: a broken tool call must
// never take down the agent loop.
func (s *Service) Call(ctx context.Context, name string, args json.RawMessage) string {
	tool, ok := s.tools[name]
	if !ok {
		return fmt.Sprintf("Tool %q is not available", name)
	}

	result, err := tool.Handler(ctx, args)
	if err != nil {
		slog.Warn("Tool call failed", "tool", name, "error", err)
		return fmt.Sprintf("Tool %s failed: %v", name, err)
	}

	return result
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeArgs unmarshals and validates a tool argument payload. Unknown keys
// are rejected so a misspelled field fails loudly instead of arriving empty.
func decodeArgs[T any](raw json.RawMessage, args *T) error {
	if len(raw) > 0 {
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(args); err != nil {
			return fmt.Errorf("invalid arguments JSON: %w", err)
		}
	}

	if err := validate.Struct(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	return nil
}
