// Package agent provides LLM client factory with middleware chain construction.
package agent

import (
	"fmt"

	"agenticsearch/pkg/agent/internal/llmimpl/anthropic"
	"agenticsearch/pkg/agent/internal/llmimpl/google"
	"agenticsearch/pkg/agent/internal/llmimpl/ollama"
	"agenticsearch/pkg/agent/internal/llmimpl/openaiofficial"
	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/agent/middleware/logging"
	metricsmw "agenticsearch/pkg/agent/middleware/metrics"
	"agenticsearch/pkg/agent/middleware/resilience/ratelimit"
	"agenticsearch/pkg/agent/middleware/resilience/timeout"
	"agenticsearch/pkg/agent/middleware/validation"
	"agenticsearch/pkg/config"
	"agenticsearch/pkg/logx"
	"agenticsearch/pkg/metrics"
)

// RawClientFunc builds an unwrapped provider client.
type RawClientFunc func(provider, credential, model string) (llm.LLMClient, error)

// StageClients holds one fully wrapped client per pipeline stage.
type StageClients struct {
	Router   llm.LLMClient
	Search   llm.LLMClient
	General  llm.LLMClient
	Refine   llm.LLMClient
	Validate llm.LLMClient
}

// LLMClientFactory creates LLM clients with properly configured middleware chains.
type LLMClientFactory struct {
	config       config.Config
	recorder     metrics.Recorder
	rateLimitMap *ratelimit.ProviderLimiterMap
	logger       *logx.Logger
	newRaw       RawClientFunc
}

// FactoryOption customizes an LLMClientFactory.
type FactoryOption func(*LLMClientFactory)

// WithRawClientFunc replaces provider client construction, mainly for tests.
func WithRawClientFunc(fn RawClientFunc) FactoryOption {
	return func(f *LLMClientFactory) {
		f.newRaw = fn
	}
}

// NewLLMClientFactory creates a new LLM client factory with the given configuration.
// A nil recorder disables metrics.
func NewLLMClientFactory(cfg config.Config, recorder metrics.Recorder, opts ...FactoryOption) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}

	// Every provider shares the configured pacing; only the selected one is used.
	rateLimitConfigs := make(map[string]ratelimit.Config, len(config.Providers()))
	for _, provider := range config.Providers() {
		rateLimitConfigs[provider] = ratelimit.Config{
			RequestsPerSecond: cfg.Outbound.RequestsPerSecond,
			Burst:             cfg.Outbound.Burst,
		}
	}

	f := &LLMClientFactory{
		config:       cfg,
		recorder:     recorder,
		rateLimitMap: ratelimit.NewProviderLimiterMap(rateLimitConfigs),
		logger:       logx.NewLogger("llm"),
		newRaw:       NewRawClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRawClient creates the provider client for a model without middleware.
// For Ollama the credential is the host URL.
func NewRawClient(provider, credential, model string) (llm.LLMClient, error) {
	switch provider {
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(credential, model), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(credential, model), nil
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(credential, model), nil
	case config.ProviderOllama:
		return ollama.NewOllamaClientWithModel(credential, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// CreateClient creates the client for a pipeline stage (config.StageRouter, ...)
// with the full middleware chain.
func (f *LLMClientFactory) CreateClient(stage string) (llm.LLMClient, error) {
	modelName, err := f.config.Models.ForStage(stage)
	if err != nil {
		return nil, err
	}

	credential, err := f.config.APIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", f.config.Provider, err)
	}

	rawClient, err := f.newRaw(f.config.Provider, credential, modelName)
	if err != nil {
		return nil, err
	}

	// Build the middleware chain in the correct order:
	// Metrics -> Logging -> EmptyResponse -> RateLimit -> Timeout -> RawClient
	client := llm.Chain(rawClient,
		metricsmw.Middleware(f.recorder, nil, f.logger),
		logging.Middleware(f.logger),
		validation.EmptyResponseMiddleware(),
		ratelimit.Middleware(f.rateLimitMap, f.config.Provider, f.recorder),
		timeout.Middleware(f.config.Outbound.Timeout),
	)
	return client, nil
}

// CreateStageClients builds one client per stage.
func (f *LLMClientFactory) CreateStageClients() (*StageClients, error) {
	clients := &StageClients{}
	targets := []struct {
		stage string
		dst   *llm.LLMClient
	}{
		{config.StageRouter, &clients.Router},
		{config.StageSearch, &clients.Search},
		{config.StageGeneral, &clients.General},
		{config.StageRefine, &clients.Refine},
		{config.StageValidate, &clients.Validate},
	}
	for _, target := range targets {
		client, err := f.CreateClient(target.stage)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", target.stage, err)
		}
		*target.dst = client
	}
	return clients, nil
}

// LimiterStats reports outbound pacing statistics for the configured provider.
func (f *LLMClientFactory) LimiterStats() ratelimit.LimiterStats {
	return f.rateLimitMap.GetLimiter(f.config.Provider).GetStats()
}
