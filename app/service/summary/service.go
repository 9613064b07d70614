package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"researchd/app/client/github"
	"researchd/app/client/llm"
	"researchd/app/client/pdftext"
	"researchd/app/config"

	"github.com/pkoukk/tiktoken-go"
	"github.com/samber/do"
)

const (
	systemPrompt = "You're a researcher who analyses files and gives a summary with the most relevant info"

	textPrompt = "Please provide a concise summary of the following text:\n\n"
	codePrompt = "Please provide a step-by-step explanation of what the following code does:\n\n"

	// Documents above the ceiling are split into chunks strictly below it so
	// that every summarization call fits the model context.
	defaultTokenCeiling = 128_000
	defaultChunkTokens  = 100_000

	maxAnalyzedFiles = 5
)

var codeExtensions = map[string]bool{
	".py":    true,
	".go":    true,
	".ipynb": true,
}

type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type tokenizer interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

type Service struct {
	generator Generator
	pdfClient *pdftext.Client
	ghClient  *github.Client
	encoding  tokenizer

	tokenCeiling int
	chunkTokens  int
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	encoding, err := tiktoken.EncodingForModel(cfg.OpenAI.Chat.Model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w", err)
		}
	}

	return &Service{
		generator:    do.MustInvoke[*llm.Client](di),
		pdfClient:    do.MustInvoke[*pdftext.Client](di),
		ghClient:     do.MustInvoke[*github.Client](di),
		encoding:     encoding,
		tokenCeiling: defaultTokenCeiling,
		chunkTokens:  defaultChunkTokens,
	}, nil
}

// SummarizeText produces a concise summary, chunking the input when it
// exceeds the token ceiling.
func (s *Service) SummarizeText(ctx context.Context, text string) (string, error) {
	return s.summarizeChunked(ctx, textPrompt, text)
}

// ExplainCode produces a step-by-step explanation, with the same chunking
// mechanics as SummarizeText.
func (s *Service) ExplainCode(ctx context.Context, code string) (string, error) {
	return s.summarizeChunked(ctx, codePrompt, code)
}

func (s *Service) summarizeChunked(ctx context.Context, prompt, text string) (string, error) {
	tokens := s.encoding.Encode(text, nil, nil)

	if len(tokens) <= s.tokenCeiling {
		return s.generator.Generate(ctx, systemPrompt, prompt+text)
	}

	chunks := s.splitTokens(tokens)

	summaries := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		summary, err := s.generator.Generate(ctx, systemPrompt, prompt+chunk)
		if err != nil {
			return "", fmt.Errorf("chunk summarization failed: %w", err)
		}
		summaries = append(summaries, summary)
	}

	return strings.Join(summaries, " "), nil
}

// splitTokens partitions tokens into contiguous chunks with no overlap and
// decodes each back to text, preserving original order.
func (s *Service) splitTokens(tokens []int) []string {
	var chunks []string

	for start := 0; start < len(tokens); start += s.chunkTokens {
		end := start + s.chunkTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, s.encoding.Decode(tokens[start:end]))
	}

	return chunks
}

// SummarizeArxiv fetches the paper behind an arXiv link, summarizes its text
// and appends the GitHub/GitLab links found inside as a labeled suffix.
func (s *Service) SummarizeArxiv(ctx context.Context, link string) (string, error) {
	data, err := s.pdfClient.FetchPDF(ctx, link)
	if err != nil {
		return "", fmt.Errorf("failed to fetch paper: %w", err)
	}

	text, err := pdftext.ExtractText(ctx, data)
	if err != nil {
		return "", fmt.Errorf("failed to extract paper text: %w", err)
	}

	links := pdftext.ExtractGitLinks(text)

	summary, err := s.SummarizeText(ctx, text)
	if err != nil {
		return "", err
	}

	return summary + fmt.Sprintf("\nUseful links to include in summary as GitHub link to this archive: %v", links), nil
}

// SummarizeRepository summarizes the repository README and, when asked,
// explains its top-level source files.
func (s *Service) SummarizeRepository(ctx context.Context, owner, repo string, includeFiles bool) (string, error) {
	readme := s.ghClient.Readme(ctx, owner, repo)

	readmeSummary, err := s.SummarizeText(ctx, readme)
	if err != nil {
		return "", fmt.Errorf("readme summarization failed: %w", err)
	}

	var builder strings.Builder
	builder.WriteString("README summary: ")
	builder.WriteString(readmeSummary)

	if !includeFiles {
		return builder.String(), nil
	}

	files, err := s.ghClient.ListFiles(ctx, owner, repo)
	if err != nil {
		slog.Warn("Failed to list repository files", "owner", owner, "repo", repo, "error", err)
		return builder.String(), nil
	}

	analyzed := 0
	for _, file := range files {
		if analyzed >= maxAnalyzedFiles {
			break
		}
		if file.Type != "file" || !isCodeFile(file.Name) {
			continue
		}

		content, err := s.ghClient.FileContent(ctx, owner, repo, file.Path)
		if err != nil {
			slog.Warn("Failed to fetch file", "path", file.Path, "error", err)
			continue
		}

		explanation, err := s.ExplainCode(ctx, content)
		if err != nil {
			slog.Warn("Failed to explain file", "path", file.Path, "error", err)
			continue
		}

		builder.WriteString(fmt.Sprintf("\nCode summary for %s: %s", file.Name, explanation))
		analyzed++
	}

	return builder.String(), nil
}

func isCodeFile(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}

	return codeExtensions[name[idx:]]
}
