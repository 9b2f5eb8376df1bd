package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"agenticsearch/internal/kernel"
	"agenticsearch/pkg/agent/middleware/resilience/ratelimit"
	"agenticsearch/pkg/config"
	"agenticsearch/pkg/logx"
	"agenticsearch/pkg/pipeline"
	"agenticsearch/pkg/proto"
	"agenticsearch/pkg/render"
)

var (
	askJSON    bool
	askExample int
	askRaw     bool
	askQuiet   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Run a query through the pipeline",
	Long: `Run a query through the pipeline and print the answer, its sources and
the validator's confidence. Progress is written to stderr.

Examples:
  agentic-search ask "What is the capital of Australia?"
  agentic-search ask --example 2
  agentic-search ask --json "latest news on fusion energy"`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the result as JSON")
	askCmd.Flags().IntVar(&askExample, "example", 0, "submit example query N (see 'examples')")
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "print the answer as markdown without rendering")
	askCmd.Flags().BoolVarP(&askQuiet, "quiet", "q", false, "do not print stage progress")
}

// askResult is the --json output.
type askResult struct {
	QueryID    string         `json:"query_id"`
	Query      string         `json:"query"`
	Agent      proto.Agent    `json:"agent"`
	Reasoning  string         `json:"reasoning"`
	Answer     string         `json:"answer"`
	Sources    []proto.Source `json:"sources"`
	Confidence float64        `json:"confidence"`
	Critique   string         `json:"critique"`
	DurationMS int64          `json:"duration_ms"`
}

// askError is the --json output for a failed query.
type askError struct {
	Query       string      `json:"query"`
	Kind        proto.Kind  `json:"kind"`
	Error       string      `json:"error"`
	FailedStage proto.Stage `json:"failed_stage"`
}

func resolveQuery(args []string) (string, error) {
	if askExample > 0 {
		if len(args) > 0 {
			return "", errors.New("pass either a query or --example, not both")
		}
		if askExample > len(exampleQueries) {
			return "", fmt.Errorf("no example %d (there are %d)", askExample, len(exampleQueries))
		}
		return exampleQueries[askExample-1], nil
	}
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return "", errors.New("query must not be empty")
	}
	return query, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	query, err := resolveQuery(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := unlockSecrets(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	renderer, err := chooseRenderer()
	if err != nil {
		return err
	}
	opts := []kernel.Option{kernel.WithRenderer(renderer)}
	if metricsAddr != "" {
		opts = append(opts, kernel.WithMetricsAddr(metricsAddr))
	}
	k, err := kernel.NewKernel(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	if err := k.Start(); err != nil {
		return err
	}
	defer func() { _ = k.Stop() }()

	tracker := pipeline.NewTracker()
	observers := pipeline.Observers{tracker}
	if !askQuiet && !askJSON {
		observers = append(observers, newProgressPrinter(cmd.ErrOrStderr(), tracker))
	}

	res, runErr := k.Orchestrator.Run(k.Context(), query, observers)
	if runErr != nil {
		var qe *proto.QueryError
		if askJSON && errors.As(runErr, &qe) {
			_ = writeJSON(cmd.OutOrStdout(), askError{Query: query, Kind: qe.Kind, Error: qe.Message, FailedStage: qe.Stage})
		}
		return runErr
	}

	if askJSON {
		out := askResult{
			QueryID:    res.QueryID,
			Query:      query,
			Agent:      res.Response.AgentUsed,
			Reasoning:  res.Reasoning,
			Answer:     res.Response.Text,
			Sources:    res.Response.Sources,
			Critique:   res.Critique,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Response.Confidence != nil {
			out.Confidence = *res.Response.Confidence
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}

	printAnswer(cmd.OutOrStdout(), res)
	if !askQuiet {
		printUsage(cmd.ErrOrStderr(), k)
	}
	return nil
}

// chooseRenderer styles the answer for a terminal and emits HTML otherwise.
func chooseRenderer() (render.Renderer, error) {
	if askRaw {
		return render.Plain{}, nil
	}
	fd := int(os.Stdout.Fd()) //nolint:gosec // fd fits in int
	if askJSON || !term.IsTerminal(fd) {
		return render.NewHTML(), nil
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = render.DefaultWordWrap
	}
	return render.NewTerminal(min(width, 120))
}

// unlockSecrets decrypts the secrets file when a password is available.
func unlockSecrets(cfg *config.Config) error {
	if cfg.Security.SecretsFile == "" {
		return nil
	}
	password := os.Getenv(config.EnvSecretsPassword)
	if password == "" {
		logx.Warnf("secrets file %s is configured but %s is not set; falling back to environment keys",
			cfg.Security.SecretsFile, config.EnvSecretsPassword)
		return nil
	}
	if err := cfg.LoadSecrets(password); err != nil {
		return fmt.Errorf("failed to unlock secrets file: %w", err)
	}
	logx.Infof("loaded secrets from %s", cfg.Security.SecretsFile)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func printAnswer(w io.Writer, res *pipeline.Result) {
	resp := res.Response
	fmt.Fprintln(w, strings.TrimRight(resp.Text, "\n"))
	fmt.Fprintln(w)

	if len(resp.Sources) > 0 {
		fmt.Fprintln(w, "Sources:")
		for i, s := range resp.Sources {
			fmt.Fprintf(w, "  [%d] %s\n      %s\n", i+1, s.Title, s.URI)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Agent: %s", resp.AgentUsed)
	if resp.Confidence != nil {
		fmt.Fprintf(w, "  Confidence: %.0f%%", *resp.Confidence*100)
	}
	fmt.Fprintln(w)
}

func printUsage(w io.Writer, k *kernel.Kernel) {
	var prompt, completion int64
	for _, m := range k.Usage.AllModelMetrics() {
		prompt += m.PromptTokens
		completion += m.CompletionTokens
	}
	fmt.Fprintf(w, "Estimated tokens: %d prompt, %d completion\n", prompt, completion)
	if k.LLMFactory != nil {
		fmt.Fprintln(w, formatPacing(k.LLMFactory.LimiterStats()))
	}
}

func formatPacing(s ratelimit.LimiterStats) string {
	return fmt.Sprintf("Provider pacing (%s): %.1f req/s, burst %d, %d throttled", s.Provider, s.Limit, s.Burst, s.WaitCount)
}
