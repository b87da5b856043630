package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/docuchat/server/internal/agent/model"
	logx "github.com/docuchat/server/pkg/logger"
)

// ModelSetConfig holds the configuration for chat model creation.
type ModelSetConfig struct {
	GeneratorConfig *model.GeneratorModelConfig
	GraderConfig    *model.GraderModelConfig
}

// ModelSet holds the gateways the workflows run against: one generation
// model and one cheaper model shared by the graders and the rewriter.
type ModelSet struct {
	Generator Gateway
	Grader    Gateway
}

// NewClient creates the shared Gemini API client used for both chat models
// and embeddings.
func NewClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewModelSet creates the Gemini-backed gateways with the given configuration.
func NewModelSet(ctx context.Context, client *genai.Client, cfg ModelSetConfig) (*ModelSet, error) {
	generator, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.GeneratorConfig.Model,
		Temperature: &cfg.GeneratorConfig.Temperature,
		MaxTokens:   &cfg.GeneratorConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating generator model")
		return nil, fmt.Errorf("error creating generator model: %w", err)
	}

	grader, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.GraderConfig.Model,
		Temperature: &cfg.GraderConfig.Temperature,
		MaxTokens:   &cfg.GraderConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating grader model")
		return nil, fmt.Errorf("error creating grader model: %w", err)
	}

	return &ModelSet{
		Generator: NewChatGateway(generator, cfg.GeneratorConfig.Model),
		Grader:    NewChatGateway(grader, cfg.GraderConfig.Model),
	}, nil
}
