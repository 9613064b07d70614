package session

import (
	"sync"

	"researchd/app/config"

	cache "github.com/patrickmn/go-cache"
	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

// Session is the append-only conversation history of one research run. The
// embedded mutex serializes whole agent turns: a loop on a session runs to
// completion before the next call on the same session may begin.
type Session struct {
	sync.Mutex

	id string

	dataMu   sync.RWMutex
	messages []openai.ChatCompletionMessage
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Append(messages ...openai.ChatCompletionMessage) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()

	s.messages = append(s.messages, messages...)
}

// Messages returns a copy of the ordered history.
func (s *Session) Messages() []openai.ChatCompletionMessage {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()

	result := make([]openai.ChatCompletionMessage, len(s.messages))
	copy(result, s.messages)

	return result
}

// Service maps session ids to histories. Sessions are created lazily and
// evicted after the configured idle TTL.
type Service struct {
	mu    sync.Mutex
	store *cache.Cache
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	ttl := cfg.Research.SessionTTL

	return &Service{
		store: cache.New(ttl, 2*ttl),
	}, nil
}

func (s *Service) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value, ok := s.store.Get(id); ok {
		sess := value.(*Session)
		s.store.SetDefault(id, sess)
		return sess
	}

	sess := &Session{id: id}
	s.store.SetDefault(id, sess)

	return sess
}
