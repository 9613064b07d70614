package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"researchd/app/client/arxiv"
	ghclient "researchd/app/client/github"
	"researchd/app/client/huggingface"
	"researchd/app/client/websearch"
	"researchd/app/config"
	"researchd/app/service/ranker"
	"researchd/app/service/summary"

	"github.com/samber/do"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	nothingFound   = "can't find anything"
	noPapersFound  = "None Papers Found"
	defaultTopK    = 5
	defaultStars   = 10
	defaultHFPages = 1
)

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	s := &Service{
		tools: make(map[string]Tool),
	}

	s.registerPromptTools(cfg.Research.MaxTasks)
	s.registerSearchTools(
		do.MustInvoke[*huggingface.Client](di),
		do.MustInvoke[*websearch.Client](di),
		do.MustInvoke[*ghclient.Client](di),
		do.MustInvoke[*ranker.Service](di),
	)
	s.registerSummaryTools(
		do.MustInvoke[*summary.Service](di),
		do.MustInvoke[*huggingface.Client](di),
	)

	return s, nil
}

func (s *Service) registerPromptTools(maxTasks int) {
	type selectArgs struct {
		Arch string `json:"arch" validate:"required"`
	}

	s.register(Tool{
		Name:        "select_ml_service",
		Description: "Useful if you get a service architecture or project description to extract ML service information",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"arch": {
					Type:        jsonschema.String,
					Description: "The full service architecture description",
				},
			},
			Required: []string{"arch"},
		},
		Handler: func(_ context.Context, raw json.RawMessage) (string, error) {
			var args selectArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			return fmt.Sprintf("Extract only ML service and information about models and requirements"+
				" for them from provided service arch. Don't miss details: %s. ML_Service:", args.Arch), nil
		},
	})

	type generateArgs struct {
		MLServiceInformation string `json:"ml_service_information" validate:"required"`
	}

	s.register(Tool{
		Name:        "generate_tasks",
		Description: "Useful to convert ML_Service to a list of tasks for comprehensive up-to-date ML research",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"ml_service_information": {
					Type:        jsonschema.String,
					Description: "The extracted ML service information",
				},
			},
			Required: []string{"ml_service_information"},
		},
		Handler: func(_ context.Context, raw json.RawMessage) (string, error) {
			var args generateArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			return fmt.Sprintf("Write a detailed and focused list of research tasks for implementing"+
				" a machine learning service. The tasks should be tailored to the described domain,"+
				" and aim to find the most up-to-date and effective solutions."+
				" ML Service description: %s. Tasks:", args.MLServiceInformation), nil
		},
	})

	type parseArgs struct {
		Tasks []string `json:"tasks" validate:"required,min=1"`
	}

	s.register(Tool{
		Name:        "parse_task_list",
		Description: "Useful to convert ML research tasks to a final list and send them for further analysis",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"tasks": {
					Type:        jsonschema.Array,
					Description: "The research tasks",
					Items: &jsonschema.Definition{
						Type: jsonschema.String,
					},
				},
			},
			Required: []string{"tasks"},
		},
		Handler: func(_ context.Context, raw json.RawMessage) (string, error) {
			var args parseArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			tasks := args.Tasks
			if len(tasks) > maxTasks {
				tasks = tasks[:maxTasks]
			}

			result, _ := json.Marshal(tasks)

			return fmt.Sprintf("Tasks have been converted and sent to analysis: %s."+
				" Next you will get each task and have to use a processing tool for each", result), nil
		},
	})
}

func (s *Service) registerSearchTools(
	hfClient *huggingface.Client,
	webClient *websearch.Client,
	ghClient *ghclient.Client,
	rankerSvc *ranker.Service,
) {
	type hfArgs struct {
		InfoType string `json:"info_type" validate:"required,oneof=model dataset space"`
		Query    string `json:"query" validate:"required"`
	}

	s.register(Tool{
		Name: "hf_search",
		Description: "Useful to retrieve information about a specific model or dataset from Hugging Face." +
			" Use only for tasks that require datasets or models!",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"info_type": {
					Type:        jsonschema.String,
					Description: "Type of search",
					Enum:        []string{"model", "dataset", "space"},
				},
				"query": {
					Type:        jsonschema.String,
					Description: "Search keywords related to a research task",
				},
			},
			Required: []string{"info_type", "query"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args hfArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			cursor := hfClient.FullTextSearch(args.InfoType, args.Query, defaultHFPages)

			var entries []huggingface.Entry
			for {
				page, err := cursor.Next(ctx)
				if errors.Is(err, huggingface.ErrNoMorePages) {
					break
				}
				if err != nil {
					return nothingFound, nil
				}
				entries = append(entries, page...)
			}

			if len(entries) == 0 {
				return nothingFound, nil
			}

			result, _ := json.Marshal(entries)

			return fmt.Sprintf("Result of HF research: %s", result), nil
		},
	})

	type hfModelsArgs struct {
		Task   string `json:"task" validate:"required"`
		SortBy string `json:"sort_by" validate:"omitempty,oneof=trending likes downloads created modified"`
		Search string `json:"search"`
	}

	s.register(Tool{
		Name: "hf_models_by_task",
		Description: "Useful to list trending Hugging Face models for a pipeline task," +
			" e.g. text-classification or image-to-text",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"task": {
					Type:        jsonschema.String,
					Description: "Pipeline task tag, e.g. text-classification",
				},
				"sort_by": {
					Type:        jsonschema.String,
					Description: "Sort order, default trending",
					Enum:        []string{"trending", "likes", "downloads", "created", "modified"},
				},
				"search": {
					Type:        jsonschema.String,
					Description: "Optional search keywords to narrow the listing",
				},
			},
			Required: []string{"task"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args hfModelsArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			if args.SortBy == "" {
				args.SortBy = "trending"
			}

			models, err := hfClient.ListModelsByTask(ctx, args.Task, args.SortBy, args.Search)
			if err != nil || len(models) == 0 {
				return nothingFound, nil
			}

			payload, _ := json.Marshal(models)

			return fmt.Sprintf("Models for task %s: %s", args.Task, payload), nil
		},
	})

	type webArgs struct {
		Query string `json:"query" validate:"required"`
	}

	s.register(Tool{
		Name:        "web_search",
		Description: "Useful to search the web for supporting information about a research task",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"query": {
					Type:        jsonschema.String,
					Description: "Search query",
				},
			},
			Required: []string{"query"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args webArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			results, err := webClient.Search(ctx, args.Query)
			if err != nil || len(results) == 0 {
				return nothingFound, nil
			}

			payload, _ := json.Marshal(results)

			return fmt.Sprintf("Web search results: %s", payload), nil
		},
	})

	type githubArgs struct {
		KeyWords  []string `json:"key_words" validate:"required,min=1"`
		PaperName string   `json:"paper_name"`
		TopK      int      `json:"top_k" validate:"gte=0"`
		MinStars  int      `json:"min_stars" validate:"gte=0"`
	}

	s.register(Tool{
		Name: "github_search",
		Description: "Useful to retrieve information about a specific implementation that could help in research." +
			" Searches GitHub repositories by keywords and paper name, filtered by a minimum star count",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"key_words": {
					Type:        jsonschema.Array,
					Description: "Keywords to include in the search",
					Items: &jsonschema.Definition{
						Type: jsonschema.String,
					},
				},
				"paper_name": {
					Type:        jsonschema.String,
					Description: "Name of the paper to include in the search, may be empty",
				},
				"top_k": {
					Type:        jsonschema.Integer,
					Description: "Number of top repositories to return, default 5",
				},
				"min_stars": {
					Type:        jsonschema.Integer,
					Description: "Minimum number of stars, default 10",
				},
			},
			Required: []string{"key_words"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args githubArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			if args.TopK == 0 {
				args.TopK = defaultTopK
			}
			if args.MinStars == 0 {
				args.MinStars = defaultStars
			}

			repos, err := ghClient.Search(ctx, args.KeyWords, args.PaperName, args.TopK, args.MinStars)
			if err != nil || len(repos) == 0 {
				return nothingFound, nil
			}

			payload, _ := json.Marshal(repos)

			return fmt.Sprintf("Github fetching results: %s", payload), nil
		},
	})

	type arxivArgs struct {
		arxiv.Query
		MaxResults int `json:"max_results" validate:"gte=0"`
	}

	s.register(Tool{
		Name: "arxiv_search",
		Description: "Useful to find arXiv papers relevant to a research task." +
			" All provided fields are combined with logical AND",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"all_fields": {
					Type:        jsonschema.String,
					Description: "Free-text search across all fields",
				},
				"title": {
					Type:        jsonschema.String,
					Description: "Search in title",
				},
				"author": {
					Type:        jsonschema.String,
					Description: "Search by author",
				},
				"category": {
					Type:        jsonschema.String,
					Description: "Search by category, e.g. cs.LG",
				},
				"date_range": {
					Type:        jsonschema.String,
					Description: "Date range, e.g. [20230101 TO 20240101]",
				},
				"max_results": {
					Type:        jsonschema.Integer,
					Description: "Maximum number of papers to return, default 5",
				},
			},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args arxivArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			papers, err := rankerSvc.Search(ctx, args.Query, args.MaxResults)
			if errors.Is(err, ranker.ErrNoPapersFound) {
				return noPapersFound, nil
			}
			if err != nil {
				return "", err
			}

			payload, _ := json.Marshal(papers)

			return fmt.Sprintf("ArXiv search results: %s", payload), nil
		},
	})
}

func (s *Service) registerSummaryTools(summarySvc *summary.Service, hfClient *huggingface.Client) {
	type pageArgs struct {
		PageURL string `json:"page_url" validate:"required,url"`
	}

	s.register(Tool{
		Name:        "hf_page_summary",
		Description: "Useful to summarize a Hugging Face README or model card page by its URL",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"page_url": {
					Type:        jsonschema.String,
					Description: "Link to the page that needs to be summarized",
				},
			},
			Required: []string{"page_url"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args pageArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			text, err := hfClient.PageText(ctx, args.PageURL)
			if err != nil {
				return nothingFound, nil
			}

			return summarySvc.SummarizeText(ctx, text)
		},
	})

	type repoArgs struct {
		Owner        string `json:"owner" validate:"required"`
		Repo         string `json:"repo" validate:"required"`
		IncludeFiles bool   `json:"include_files"`
	}

	s.register(Tool{
		Name: "github_repo_summary",
		Description: "Useful to summarize a GitHub repository: its README and," +
			" when include_files is set, its top-level source files",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"owner": {
					Type:        jsonschema.String,
					Description: "Repository owner",
				},
				"repo": {
					Type:        jsonschema.String,
					Description: "Repository name",
				},
				"include_files": {
					Type:        jsonschema.Boolean,
					Description: "Whether to analyze source files as well",
				},
			},
			Required: []string{"owner", "repo"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args repoArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			return summarySvc.SummarizeRepository(ctx, args.Owner, args.Repo, args.IncludeFiles)
		},
	})

	type paperArgs struct {
		URL string `json:"url" validate:"required,url"`
	}

	s.register(Tool{
		Name: "arxiv_paper_summary",
		Description: "Useful to summarize an arXiv paper by its link;" +
			" also extracts GitHub/GitLab links mentioned in the paper",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"url": {
					Type:        jsonschema.String,
					Description: "Link to the arXiv paper",
				},
			},
			Required: []string{"url"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args paperArgs
			if err := decodeArgs(raw, &args); err != nil {
				return "", err
			}

			return summarySvc.SummarizeArxiv(ctx, args.URL)
		},
	})
}
