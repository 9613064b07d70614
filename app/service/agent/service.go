package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"researchd/app/client/llm"
	"researchd/app/config"
	"researchd/app/service/session"
	"researchd/app/service/toolbox"

	_ "embed"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

//go:embed system_role.txt
var systemRole string

//go:embed system_guide.txt
var systemGuide string

const (
	defaultTemperature  = 0.3
	maxCompletionTokens = 8000
	maxTurnDuration     = 10 * time.Minute

	// Returned when the iteration budget runs out before the model produced
	// any intermediate text.
	earlyStopNotice = "Stopped: iteration limit reached before a final answer was produced."
)

type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Service runs one decision loop per user turn: the model either calls one or
// more registered tools or produces the final answer, bounded by maxIterations
// decision cycles.
type Service struct {
	llmClient  ChatCompleter
	toolboxSvc *toolbox.Service
	sessionSvc *session.Service

	maxIterations int
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		llmClient:     do.MustInvoke[*llm.Client](di),
		toolboxSvc:    do.MustInvoke[*toolbox.Service](di),
		sessionSvc:    do.MustInvoke[*session.Service](di),
		maxIterations: cfg.Research.MaxIterations,
	}, nil
}

// Chat submits one user input on the given session and returns the agent's
// answer. Turns on the same session are strictly serialized; the full turn,
// tool invocations and results included, is appended to the session history.
func (s *Service) Chat(ctx context.Context, sessionID, input string) (string, error) {
	sess := s.sessionSvc.GetOrCreate(sessionID)

	sess.Lock()
	defer sess.Unlock()

	ctx, cancel := context.WithTimeout(ctx, maxTurnDuration)
	defer cancel()

	history := sess.Messages()

	turns := append(history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input,
	})

	var lastContent string

	for cycle := 0; cycle < s.maxIterations; cycle++ {
		resp, err := s.llmClient.ChatCompletion(ctx, openai.ChatCompletionRequest{
			Messages:            s.withSystemPrompts(turns),
			Tools:               s.toolboxSvc.Definitions(),
			Temperature:         defaultTemperature,
			MaxCompletionTokens: maxCompletionTokens,
		})
		if err != nil {
			return "", fmt.Errorf("failed to create chat completion: %w", err)
		}

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no chat completion found")
		}

		msg := resp.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			answer := strings.TrimSpace(msg.Content)
			turns = append(turns, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: answer,
			})
			sess.Append(turns[len(history):]...)

			return answer, nil
		}

		if content := strings.TrimSpace(msg.Content); content != "" {
			lastContent = content
		}

		turns = append(turns, msg)

		for _, call := range msg.ToolCalls {
			start := time.Now()
			result := s.toolboxSvc.Call(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))

			slog.Debug("Tool invoked",
				"session", sessionID,
				"tool", call.Function.Name,
				"duration", time.Since(start))

			turns = append(turns, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	// Budget exhausted: force-stop with the best available partial answer.
	answer := lastContent
	if answer == "" {
		answer = earlyStopNotice
	}

	slog.Info("Early stopping by iteration budget",
		"session", sessionID,
		"max_iterations", s.maxIterations)

	turns = append(turns, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: answer,
	})
	sess.Append(turns[len(history):]...)

	return answer, nil
}

func (s *Service) withSystemPrompts(turns []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+2)

	messages = append(messages,
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.TrimSpace(systemRole),
		},
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.TrimSpace(systemGuide),
		},
	)

	return append(messages, turns...)
}
