// Command sochend runs the workflow coordination server: a WebSocket
// endpoint for starting, observing and cancelling agent workflows, plus
// health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sochen-ai/sochen/agent"
	"github.com/sochen-ai/sochen/config"
	"github.com/sochen-ai/sochen/engine"
	"github.com/sochen-ai/sochen/logging"
	"github.com/sochen-ai/sochen/memory"
	"github.com/sochen-ai/sochen/metrics"
	"github.com/sochen-ai/sochen/model"
	anthropicmodel "github.com/sochen-ai/sochen/model/anthropic"
	openaimodel "github.com/sochen-ai/sochen/model/openai"
	"github.com/sochen-ai/sochen/routing"
	"github.com/sochen-ai/sochen/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:          "sochend",
		Short:        "Multi-agent workflow coordination server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: os.Stdout,
	})

	mdl, err := buildModel(cfg.Provider)
	if err != nil {
		return err
	}

	store := memory.NewInMemoryStore()
	m := metrics.New(prometheus.DefaultRegisterer)

	agentOpts := []func(o *agent.Options){
		agent.WithMemory(store),
		agent.WithLogger(logger.WithComponent("agent")),
		agent.WithTemperature(cfg.Provider.Temperature),
	}
	if mdl != nil {
		agentOpts = append(agentOpts, agent.WithModel(mdl))
	}

	policy := routing.DefaultPolicy()
	policy.MaxTotalSteps = cfg.Workflow.MaxTotalSteps
	policy.MaxAgentRepeats = cfg.Workflow.MaxAgentRepeats

	registry, err := engine.New(
		agent.Roster(agentOpts...),
		engine.WithPolicy(policy),
		engine.WithConfig(engine.Config{
			EventBufferSize: cfg.Workflow.EventBufferSize,
			MaxRetries:      cfg.Workflow.MaxRetries,
			RetryBackoff:    cfg.Workflow.RetryBackoff.Duration(),
			Retention:       cfg.Workflow.Retention.Duration(),
		}),
		engine.WithMemoryStore(store),
		engine.WithLogger(logger.WithComponent("engine")),
		engine.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	srv := server.New(registry, server.WithLogger(logger.WithComponent("server")))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting sochend",
		"addr", cfg.Server.Addr, "provider", cfg.Provider.Name)
	err = srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout.Duration())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// buildModel wires the configured provider; "mock" leaves the roster on its
// deterministic heuristics.
func buildModel(cfg config.ProviderConfig) (model.Model, error) {
	switch cfg.Name {
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		}), nil
	case "openai":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		}), nil
	case "mock":
		return nil, nil
	default:
		return nil, fmt.Errorf("provider %q is not supported", cfg.Name)
	}
}
