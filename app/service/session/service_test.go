package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"researchd/app/config"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	di := do.New()
	do.ProvideValue(di, &config.Config{
		Research: config.Research{
			SessionTTL: time.Hour,
		},
	})

	svc, err := New(di)
	require.NoError(t, err)

	return svc
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	svc := newTestService(t)

	first := svc.GetOrCreate("run-1")
	second := svc.GetOrCreate("run-1")

	require.Same(t, first, second)
	require.Equal(t, "run-1", first.ID())
}

func TestGetOrCreateSeparatesKeys(t *testing.T) {
	svc := newTestService(t)

	a := svc.GetOrCreate("run-a")
	b := svc.GetOrCreate("run-b")

	require.NotSame(t, a, b)

	a.Append(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: "hello"})

	require.Len(t, a.Messages(), 1)
	require.Empty(t, b.Messages())
}

func TestAppendPreservesOrder(t *testing.T) {
	svc := newTestService(t)
	sess := svc.GetOrCreate("run-1")

	sess.Append(
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: "first"},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "second"},
	)
	sess.Append(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: "third"})

	messages := sess.Messages()
	require.Len(t, messages, 3)
	require.Equal(t, "first", messages[0].Content)
	require.Equal(t, "second", messages[1].Content)
	require.Equal(t, "third", messages[2].Content)
}

func TestMessagesReturnsCopy(t *testing.T) {
	svc := newTestService(t)
	sess := svc.GetOrCreate("run-1")

	sess.Append(openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: "original"})

	snapshot := sess.Messages()
	snapshot[0].Content = "mutated"

	require.Equal(t, "original", sess.Messages()[0].Content)
}

func TestConcurrentDistinctSessions(t *testing.T) {
	svc := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			id := fmt.Sprintf("run-%d", i)
			sess := svc.GetOrCreate(id)
			for j := 0; j < 10; j++ {
				sess.Append(openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("msg-%d", j),
				})
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		sess := svc.GetOrCreate(fmt.Sprintf("run-%d", i))
		require.Len(t, sess.Messages(), 10)
	}
}
