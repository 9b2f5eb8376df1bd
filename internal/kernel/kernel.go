// Package kernel builds the search pipeline from configuration and owns
// the shared infrastructure around it: model clients, the admission
// limiter, metrics recorders and the optional metrics endpoint.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"agenticsearch/pkg/agent"
	"agenticsearch/pkg/config"
	"agenticsearch/pkg/logx"
	"agenticsearch/pkg/metrics"
	"agenticsearch/pkg/pipeline"
	"agenticsearch/pkg/render"
	"agenticsearch/pkg/security"
)

const shutdownTimeout = 5 * time.Second

// Kernel holds the wired pipeline and its supporting services.
type Kernel struct {
	ctx    context.Context //nolint:containedctx // Required for kernel lifecycle management
	cancel context.CancelFunc

	Config *config.Config
	Logger *logx.Logger

	// Usage aggregates model usage in memory for the CLI summary.
	Usage *metrics.InternalRecorder
	// Prometheus is nil when metrics are disabled.
	Prometheus   *metrics.PrometheusRecorder
	Recorder     metrics.Recorder
	LLMFactory   *agent.LLMClientFactory
	Limiter      *security.SlidingWindowLimiter
	Gate         *security.Gate
	Orchestrator *pipeline.Orchestrator

	metricsServer *http.Server
	metricsAddr   string
	running       bool
}

// Option customizes kernel construction.
type Option func(*options)

type options struct {
	renderer    render.Renderer
	rawClient   agent.RawClientFunc
	clock       security.Clock
	secrets     security.SecretDetector
	metricsAddr string
}

// WithRenderer sets the renderer for final answers. The default is HTML.
func WithRenderer(r render.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithRawClientFunc replaces provider client construction.
func WithRawClientFunc(fn agent.RawClientFunc) Option {
	return func(o *options) { o.rawClient = fn }
}

// WithClock sets the clock used by the admission limiter.
func WithClock(c security.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSecretDetector replaces the gitleaks credential scanner.
func WithSecretDetector(d security.SecretDetector) Option {
	return func(o *options) { o.secrets = d }
}

// WithMetricsAddr overrides metrics.listen_addr.
func WithMetricsAddr(addr string) Option {
	return func(o *options) { o.metricsAddr = addr }
}

// NewKernel wires the pipeline described by cfg.
func NewKernel(parent context.Context, cfg *config.Config, opts ...Option) (*Kernel, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	o := &options{metricsAddr: cfg.Metrics.ListenAddr}
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(parent)
	k := &Kernel{
		ctx:         ctx,
		cancel:      cancel,
		Config:      cfg,
		Logger:      logx.NewLogger("kernel"),
		Usage:       metrics.NewInternalRecorder(),
		metricsAddr: o.metricsAddr,
	}

	if err := k.initializeServices(o); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize kernel services: %w", err)
	}
	return k, nil
}

func (k *Kernel) initializeServices(o *options) error {
	k.Recorder = k.Usage
	if k.Config.Metrics.Enabled {
		k.Prometheus = metrics.NewPrometheusRecorder(k.Config.Metrics.Namespace)
		k.Recorder = metrics.Tee(k.Usage, k.Prometheus)
	}

	var factoryOpts []agent.FactoryOption
	if o.rawClient != nil {
		factoryOpts = append(factoryOpts, agent.WithRawClientFunc(o.rawClient))
	}
	k.LLMFactory = agent.NewLLMClientFactory(*k.Config, k.Recorder, factoryOpts...)
	clients, err := k.LLMFactory.CreateStageClients()
	if err != nil {
		return err
	}

	k.Limiter = security.NewSlidingWindowLimiter(k.Config.RateLimit.Window, k.Config.RateLimit.MaxRequests, o.clock)

	secrets := o.secrets
	if secrets == nil && k.Config.Security.SecretScan {
		secrets = security.NewGitleaksDetector()
	}
	k.Gate = security.NewGate(k.Limiter, security.NewScreener(secrets),
		security.WithScanDelay(k.Config.Pacing.Scan),
		security.WithRecorder(k.Recorder),
	)

	renderer := o.renderer
	if renderer == nil {
		renderer = render.NewHTML()
	}
	k.Orchestrator = pipeline.NewOrchestrator(k.Gate,
		pipeline.NewRouter(clients.Router),
		pipeline.NewGenerator(clients.Search, clients.General),
		pipeline.NewRefiner(clients.Refine),
		pipeline.NewValidator(clients.Validate),
		pipeline.WithRenderer(renderer),
		pipeline.WithPacing(pipeline.Pacing{Draft: k.Config.Pacing.Draft, Validate: k.Config.Pacing.Validate}),
		pipeline.WithMetrics(k.Recorder),
	)

	k.Logger.Info("Kernel initialized (provider %s)", k.Config.Provider)
	return nil
}

// Context returns the kernel's lifecycle context.
func (k *Kernel) Context() context.Context {
	return k.ctx
}

// Start starts the metrics endpoint when one is configured.
func (k *Kernel) Start() error {
	if k.running {
		return fmt.Errorf("kernel already running")
	}
	if k.metricsAddr != "" {
		if k.Prometheus == nil {
			return fmt.Errorf("metrics listen address %s set but metrics are disabled", k.metricsAddr)
		}
		if err := k.startMetricsServer(); err != nil {
			return err
		}
	}
	k.running = true
	return nil
}

func (k *Kernel) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", k.Prometheus.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ln, err := net.Listen("tcp", k.metricsAddr)
	if err != nil {
		return logx.Wrap(err, "failed to listen on "+k.metricsAddr)
	}
	k.metricsAddr = ln.Addr().String()
	k.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := k.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			k.Logger.Error("metrics server stopped: %v", err)
		}
	}()
	k.Logger.Info("Serving metrics on http://%s/metrics", k.metricsAddr)
	return nil
}

// MetricsAddr returns the address the metrics endpoint listens on, or "".
func (k *Kernel) MetricsAddr() string {
	if k.metricsServer == nil {
		return ""
	}
	return k.metricsAddr
}

// Stop shuts the metrics endpoint down and cancels the kernel context.
func (k *Kernel) Stop() error {
	defer k.cancel()
	if !k.running {
		return nil
	}
	k.running = false

	if k.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := k.metricsServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop metrics server: %w", err)
		}
	}
	k.Logger.Info("Kernel stopped")
	return nil
}
