// Package main implements the agentic-search CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"agenticsearch/pkg/config"
	"agenticsearch/pkg/logx"
	"agenticsearch/pkg/version"
)

var (
	configPath  string
	metricsAddr string
	logLevel    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentic-search",
	Short: "Answer questions through a screened, routed, grounded and validated model pipeline",
	Long: `agentic-search sends a query through a fixed pipeline: security screening,
routing to a Search or General agent, drafting (with web grounding for Search),
fact-checking refinement and a validation pass that scores confidence.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.listen_addr)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(examplesCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := logx.SetLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if err := logx.SetFormat(cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}
	if len(cfg.Log.DebugDomains) > 0 {
		logx.SetDebugDomains(cfg.Log.DebugDomains)
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("agentic-search %s\n", version.String())
	},
}
