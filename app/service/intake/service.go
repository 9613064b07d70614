package intake

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"researchd/app/config"
	"researchd/app/service/queue"

	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"
	"github.com/samber/do"
)

const (
	taskPrefix   = "research_task_"
	resultPrefix = "research_result_"
	taskSuffix   = ".txt"
)

// Service feeds research tasks into the queue from two inlets: a watched
// file-drop directory and the HTTP endpoint.
type Service struct {
	cfg      *config.Config
	queueSvc *queue.Service

	mu        sync.Mutex
	processed map[string]bool
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if err := os.MkdirAll(cfg.Research.Volume, 0755); err != nil {
		return nil, fmt.Errorf("failed to create volume directory: %w", err)
	}

	return &Service{
		cfg:       cfg,
		queueSvc:  do.MustInvoke[*queue.Service](di),
		processed: make(map[string]bool),
	}, nil
}

// Run watches the volume for dropped task files. fsnotify reacts quickly;
// the poll ticker catches anything the watcher missed.
func (s *Service) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create file watcher, falling back to polling only", "error", err)
	} else {
		defer watcher.Close()

		if err = watcher.Add(s.cfg.Research.Volume); err != nil {
			slog.Warn("Failed to watch volume directory", "error", err)
		}
	}

	s.scanVolume()

	ticker := time.NewTicker(s.cfg.Research.PollInterval)
	defer ticker.Stop()

	var events chan fsnotify.Event
	if watcher != nil {
		events = watcher.Events
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanVolume()
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				s.scanVolume()
			}
		}
	}
}

// Submit enqueues an HTTP-submitted architecture text under a fresh ULID.
func (s *Service) Submit(text string) string {
	taskID := strings.ToLower(ulid.Make().String())

	s.mu.Lock()
	s.processed[taskID] = true
	s.mu.Unlock()

	s.queueSvc.Add(queue.Task{
		ID:   taskID,
		Text: text,
	})

	return taskID
}

func (s *Service) scanVolume() {
	entries, err := os.ReadDir(s.cfg.Research.Volume)
	if err != nil {
		slog.Warn("Failed to read volume directory", "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		taskID, ok := parseTaskFilename(entry.Name())
		if !ok {
			continue
		}

		s.mu.Lock()
		skip := s.processed[taskID]
		s.mu.Unlock()

		if skip || s.resultExists(taskID) {
			continue
		}

		path := filepath.Join(s.cfg.Research.Volume, entry.Name())

		text, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Failed to read task file", "path", path, "error", err)
			continue
		}

		// The file may have been created but not written yet; the Write event
		// or the next poll retries it.
		if strings.TrimSpace(string(text)) == "" {
			continue
		}

		s.mu.Lock()
		s.processed[taskID] = true
		s.mu.Unlock()

		slog.Info("Picked up research task", "id", taskID)

		s.queueSvc.Add(queue.Task{
			ID:   taskID,
			Text: string(text),
		})
	}
}

func (s *Service) resultExists(taskID string) bool {
	path := filepath.Join(s.cfg.Research.Volume, resultPrefix+taskID+taskSuffix)

	_, err := os.Stat(path)

	return err == nil
}

func parseTaskFilename(name string) (string, bool) {
	if !strings.HasPrefix(name, taskPrefix) || !strings.HasSuffix(name, taskSuffix) {
		return "", false
	}

	taskID := name[len(taskPrefix) : len(name)-len(taskSuffix)]

	return taskID, taskID != ""
}
