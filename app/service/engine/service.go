package engine

import (
	"context"
	"log/slog"
	"time"

	"researchd/app/config"
	"researchd/app/service/queue"
	"researchd/app/service/research"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

// Service drains the task queue into the research orchestrator with a fixed
// pool of workers. Sessions are disjoint per task, so workers never contend.
type Service struct {
	cfg         *config.Config
	researchSvc *research.Service
	queueSvc    *queue.Service
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg:         do.MustInvoke[*config.Config](di),
		researchSvc: do.MustInvoke[*research.Service](di),
		queueSvc:    do.MustInvoke[*queue.Service](di),
	}, nil
}

func (s *Service) Run(ctx context.Context) {
	group, ctx := errgroup.WithContext(ctx)

	for i := 0; i < s.cfg.Research.Workers; i++ {
		group.Go(func() error {
			s.runWorker(ctx)
			return nil
		})
	}

	_ = group.Wait()
}

func (s *Service) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-s.queueSvc.Channel():
			if !ok {
				return
			}

			start := time.Now()
			if err := s.researchSvc.Execute(ctx, task); err != nil {
				slog.Error("Research run failed", "id", task.ID, "error", err, "telegram", true)
				continue
			}

			slog.Info("Research run finished",
				"id", task.ID,
				"duration", time.Since(start))
		}
	}
}
