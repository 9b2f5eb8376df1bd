package kernel

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenticsearch/internal/mocks"
	"agenticsearch/pkg/agent"
	"agenticsearch/pkg/agent/llm"
	"agenticsearch/pkg/config"
	"agenticsearch/pkg/proto"
	"agenticsearch/pkg/render"
	"agenticsearch/pkg/security"
)

// testConfig loads defaults with a distinct model per stage so the fake
// client constructor can tell the stages apart.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("AGENTIC_SEARCH_API_KEYS__GOOGLE", "test-key")
	t.Setenv("AGENTIC_SEARCH_MODELS__ROUTER", "router-model")
	t.Setenv("AGENTIC_SEARCH_MODELS__SEARCH", "search-model")
	t.Setenv("AGENTIC_SEARCH_MODELS__GENERAL", "general-model")
	t.Setenv("AGENTIC_SEARCH_MODELS__REFINE", "refine-model")
	t.Setenv("AGENTIC_SEARCH_MODELS__VALIDATE", "validate-model")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func fakeClients() agent.RawClientFunc {
	replies := map[string]string{
		"router-model":   `{"agent":"General","reasoning":"general knowledge"}`,
		"search-model":   "unused",
		"general-model":  "Canberra.",
		"refine-model":   "Canberra is the capital of **Australia**.",
		"validate-model": `{"confidence":0.9,"critique":"good"}`,
	}
	return func(_, _, model string) (llm.LLMClient, error) {
		c := mocks.NewMockLLMClient()
		c.SetModelName(model)
		c.RespondWith(replies[model])
		return c, nil
	}
}

type noSecrets struct{}

func (noSecrets) Detect(string) ([]security.SecretFinding, error) { return nil, nil }

func TestNewKernelRunsQuery(t *testing.T) {
	cfg := testConfig(t)

	k, err := NewKernel(context.Background(), cfg,
		WithRawClientFunc(fakeClients()),
		WithSecretDetector(noSecrets{}),
	)
	require.NoError(t, err)
	require.NoError(t, k.Start())
	defer func() { assert.NoError(t, k.Stop()) }()

	resp, err := k.Orchestrator.ProcessQuery(k.Context(), "What is the capital of Australia?", nil)
	require.NoError(t, err)
	assert.Equal(t, proto.AgentGeneral, resp.AgentUsed)
	assert.Contains(t, resp.Text, "<strong>Australia</strong>")

	for _, model := range []string{"router-model", "general-model", "refine-model", "validate-model"} {
		mm := k.Usage.GetModelMetrics(model)
		require.NotNil(t, mm, model)
		assert.Equal(t, int64(1), mm.RequestCount, model)
	}
	assert.Nil(t, k.Usage.GetModelMetrics("search-model"))
	assert.Equal(t, int64(1), k.Usage.Outcomes()["complete"])
}

func TestKernelAppliesRateLimitConfig(t *testing.T) {
	t.Setenv("AGENTIC_SEARCH_RATE_LIMIT__MAX_REQUESTS", "1")
	cfg := testConfig(t)

	k, err := NewKernel(context.Background(), cfg,
		WithRawClientFunc(fakeClients()),
		WithSecretDetector(noSecrets{}),
		WithRenderer(render.Plain{}),
	)
	require.NoError(t, err)

	_, err = k.Orchestrator.ProcessQuery(context.Background(), "first", nil)
	require.NoError(t, err)
	_, err = k.Orchestrator.ProcessQuery(context.Background(), "second", nil)
	assert.True(t, proto.IsKind(err, proto.KindRateLimited))
	assert.Equal(t, int64(1), k.Usage.Rejections(security.ReasonRateLimited))
}

func TestKernelServesMetrics(t *testing.T) {
	cfg := testConfig(t)

	k, err := NewKernel(context.Background(), cfg,
		WithRawClientFunc(fakeClients()),
		WithSecretDetector(noSecrets{}),
		WithMetricsAddr("127.0.0.1:0"),
	)
	require.NoError(t, err)
	require.NoError(t, k.Start())
	defer func() { assert.NoError(t, k.Stop()) }()

	_, err = k.Orchestrator.ProcessQuery(context.Background(), "What is the capital of Australia?", nil)
	require.NoError(t, err)

	addr := k.MetricsAddr()
	require.NotEmpty(t, addr)
	resp, err := http.Get("http://" + addr + "/metrics") //nolint:noctx // test
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `agentic_search_queries_total{outcome="complete"} 1`)
}

func TestKernelMetricsAddrRequiresMetrics(t *testing.T) {
	t.Setenv("AGENTIC_SEARCH_METRICS__ENABLED", "false")
	cfg := testConfig(t)

	k, err := NewKernel(context.Background(), cfg,
		WithRawClientFunc(fakeClients()),
		WithMetricsAddr("127.0.0.1:0"),
	)
	require.NoError(t, err)
	assert.Nil(t, k.Prometheus)
	assert.Error(t, k.Start())
	assert.NoError(t, k.Stop())
}

func TestNewKernelRequiresCredentials(t *testing.T) {
	t.Setenv(config.EnvGoogleAPIKey, "")
	t.Setenv(config.EnvGoogleAPIKeyAlt, "")
	cfg, err := config.Load("")
	require.NoError(t, err)

	_, err = NewKernel(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewKernelRequiresConfig(t *testing.T) {
	_, err := NewKernel(context.Background(), nil)
	assert.Error(t, err)
}
