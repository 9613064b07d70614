package research

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"researchd/app/config"
	"researchd/app/service/agent"
	"researchd/app/service/queue"

	"github.com/samber/do"
)

const (
	headingArxiv      = "### ArXiv Papers"
	headingGithub     = "### Github Links"
	headingHFModels   = "### Hugging Face Models"
	headingHFDatasets = "### Hugging Face Datasets"
	headingHFPrefix   = "### Hugging Face"
)

const (
	tasksDirective = "Generate a detailed and focused list of research tasks for implementing" +
		" this ML service, using the generate_tasks tool. Return the final tasks as a numbered list."

	taskDirectiveTemplate = "Research task: %s. Fetch useful supporting data for it" +
		" (arXiv papers, GitHub repositories, Hugging Face models and datasets) using tools, only if needed."

	consolidateDirective = "Consolidate everything found so far into one research summary with exactly" +
		" these four section headings: \"" + headingArxiv + "\", \"" + headingGithub + "\"," +
		" \"" + headingHFModels + "\", \"" + headingHFDatasets + "\". Under each heading list every" +
		" relevant item found, with links. Return the full summary."

	refineArxivDirective  = "To current summary add additional summary for arxiv links"
	refineHFDirective     = "To current summary add additional summary for each HuggingFace link and useful links on GitHub found in papers"
	refineGithubDirective = "To current summary add additional summary for github repositories"
)

type Agent interface {
	Chat(ctx context.Context, sessionID, input string) (string, error)
}

// Service drives the fixed multi-turn research script against the agent loop
// and persists the final summary next to the task file.
type Service struct {
	agentSvc Agent
	volume   string
	maxTasks int
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		agentSvc: do.MustInvoke[*agent.Service](di),
		volume:   cfg.Research.Volume,
		maxTasks: cfg.Research.MaxTasks,
	}, nil
}

// Execute runs the whole script for one task. The result file is written as
// long as at least the first turn succeeded; partial summaries are the
// expected common case, not an error.
func (s *Service) Execute(ctx context.Context, task queue.Task) error {
	result, err := s.agentSvc.Chat(ctx, task.ID, task.Text)
	if err != nil {
		return fmt.Errorf("architecture submission failed: %w", err)
	}

	tasksAnswer, err := s.agentSvc.Chat(ctx, task.ID, tasksDirective)
	if err != nil {
		slog.Warn("Task generation failed", "id", task.ID, "error", err)
	} else {
		result = tasksAnswer
	}

	researchTasks := ParseTaskList(tasksAnswer, s.maxTasks)
	slog.Info("Research tasks derived", "id", task.ID, "count", len(researchTasks))

	for _, researchTask := range researchTasks {
		answer, err := s.agentSvc.Chat(ctx, task.ID, fmt.Sprintf(taskDirectiveTemplate, researchTask))
		if err != nil {
			slog.Warn("Task enrichment failed", "id", task.ID, "task", researchTask, "error", err)
			continue
		}
		result = answer
	}

	if answer, err := s.agentSvc.Chat(ctx, task.ID, consolidateDirective); err != nil {
		slog.Warn("Consolidation failed", "id", task.ID, "error", err)
	} else {
		result = answer
	}

	result = s.refine(ctx, task.ID, result)

	if err := s.saveResult(task.ID, result); err != nil {
		return err
	}

	return nil
}

// refine issues one follow-up elaboration per section type present in the
// summary; each revised summary supersedes the previous one.
func (s *Service) refine(ctx context.Context, sessionID, result string) string {
	refinements := []struct {
		marker    string
		directive string
	}{
		{headingArxiv, refineArxivDirective},
		{headingHFPrefix, refineHFDirective},
		{headingGithub, refineGithubDirective},
	}

	for _, refinement := range refinements {
		if !strings.Contains(result, refinement.marker) {
			continue
		}

		revised, err := s.agentSvc.Chat(ctx, sessionID, refinement.directive)
		if err != nil {
			slog.Warn("Refinement failed", "id", sessionID, "marker", refinement.marker, "error", err)
			continue
		}
		result = revised
	}

	return result
}

func (s *Service) saveResult(taskID, result string) error {
	path := filepath.Join(s.volume, fmt.Sprintf("research_result_%s.txt", taskID))

	if err := os.WriteFile(path, []byte(result), 0644); err != nil {
		return fmt.Errorf("failed to save research result: %w", err)
	}

	slog.Info("Saved research result", "id", taskID, "path", path, "telegram", true)

	return nil
}

// ParseTaskList pulls at most maxTasks research tasks out of a numbered or
// bulleted list in the agent's answer. An answer without list markers counts
// as a single task.
func ParseTaskList(answer string, maxTasks int) []string {
	var tasks []string

	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)

		task, ok := stripListMarker(line)
		if !ok || task == "" {
			continue
		}

		tasks = append(tasks, task)
		if len(tasks) >= maxTasks {
			break
		}
	}

	if len(tasks) == 0 {
		if answer = strings.TrimSpace(answer); answer != "" {
			tasks = append(tasks, answer)
		}
	}

	return tasks
}

func stripListMarker(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}

	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return "", false
	}

	rest := line[digits:]
	for _, prefix := range []string{". ", ") "} {
		if strings.HasPrefix(rest, prefix) {
			return strings.TrimSpace(rest[len(prefix):]), true
		}
	}

	return "", false
}
