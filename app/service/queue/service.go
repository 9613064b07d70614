package queue

import (
	"log/slog"

	"github.com/samber/do"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

type Service struct {
	queue chan Task
}

type Task struct {
	ID   string
	Text string
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		queue: make(chan Task, bufferSize),
	}, nil
}

func (s *Service) Add(task Task) {
	defer func() {
		if r := recover(); r != nil {

		}
	}()

	select {
	case s.queue <- task:
	default:
		slog.Warn("task queue is full", "id", task.ID)
	}
}

func (s *Service) Channel() <-chan Task {
	return s.queue
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
