package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/docuchat/server/internal/agent/analysis"
	"github.com/docuchat/server/internal/agent/llm"
	"github.com/docuchat/server/internal/agent/model"
	"github.com/docuchat/server/internal/agent/qa"
	"github.com/docuchat/server/internal/agent/repo"
	"github.com/docuchat/server/internal/core"
	"github.com/docuchat/server/internal/ingestion"
	"github.com/docuchat/server/internal/retrieval"
	"github.com/docuchat/server/internal/server"
	logx "github.com/docuchat/server/pkg/logger"
	pkgpostgres "github.com/docuchat/server/pkg/postgres"
	pkgredis "github.com/docuchat/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Env        string `envconfig:"APP_ENV" default:"development"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	FilesDir   string `envconfig:"FILES_DIR" default:"files"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Workflow configs
	Generator    model.GeneratorModelConfig
	Grader       model.GraderModelConfig
	Embedding    model.EmbeddingConfig
	Retrieval    model.RetrievalConfig
	Conversation model.ConversationConfig
	Workflow     model.WorkflowConfig
	Analysis     model.AnalysisConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}

	env := core.ParseEnvironment(cfg.Env)
	logx.Init(logx.LoggerOpts{Environment: env})
	logx.Info().Str("environment", env.String()).Msg("starting docuchat server")

	// Infrastructure
	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise Redis client")
	}
	defer rdb.Close()

	db, err := cfg.Postgres.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise Postgres connection")
	}
	defer db.Close()

	// LLM gateways + embeddings share one Gemini client
	client, err := llm.NewClient(ctx, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to create Gemini client")
	}
	models, err := llm.NewModelSet(ctx, client, llm.ModelSetConfig{
		GeneratorConfig: &cfg.Generator,
		GraderConfig:    &cfg.Grader,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to create chat models")
	}

	// Retrieval + ingestion
	embedder := retrieval.NewEmbedder(client, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	store := retrieval.NewStore(db, cfg.Embedding.Dimensions)
	if err := store.Init(ctx); err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise vector store")
	}
	retriever := retrieval.NewRetriever(embedder, store)
	indexer := ingestion.NewIndexer(embedder, store, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)

	// Conversation log
	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Str("ttl", cfg.Conversation.TTL).Err(err).Msg("invalid CONVERSATION_TTL")
	}
	conversations := repo.NewRedisConversationRepository(rdb, ttl)

	// QA workflow
	engine := qa.NewEngine(retriever, models.Generator, models.Grader,
		qa.WithTopK(cfg.Retrieval.TopK),
		qa.WithRecursionCeiling(cfg.Workflow.RecursionCeiling),
		qa.WithStepObserver(server.StepObserver("qa")),
	)

	// Data-analysis pipeline, only when the dataset is present
	var pipeline *analysis.Pipeline
	if _, statErr := os.Stat(cfg.Analysis.DatasetPath); statErr == nil {
		dataset, err := analysis.LoadDataset(cfg.Analysis.DatasetPath)
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to load analysis dataset")
		}
		sandbox := analysis.NewSandbox(
			cfg.Analysis.Interpreter,
			time.Duration(cfg.Analysis.TimeoutSeconds)*time.Second,
			cfg.Analysis.MaxOutputBytes,
		)
		pipeline = analysis.NewPipeline(models.Generator, dataset, sandbox,
			analysis.WithStageObserver(server.StepObserver("analysis")),
		)
		rows, cols := dataset.Shape()
		logx.Info().Str("dataset", cfg.Analysis.DatasetPath).
			Int("rows", rows).Int("cols", cols).
			Msg("analysis pipeline enabled")
	} else {
		logx.Warn().Str("dataset", cfg.Analysis.DatasetPath).
			Msg("analysis dataset not found, /analysis disabled")
	}

	srv := server.New(engine, pipeline, conversations, indexer, store, server.Config{
		FilesDir: cfg.FilesDir,
		MaxTurns: cfg.Conversation.MaxTurns,
	})

	logx.Info().Str("addr", cfg.ListenAddr).Msg("listening")
	if err := http.ListenAndServe(cfg.ListenAddr, srv); err != nil {
		logx.Fatal().Err(err).Msg("server stopped")
	}
}
