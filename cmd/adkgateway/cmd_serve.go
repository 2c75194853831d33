package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bdrazn/adkextension/internal/compact"
	"github.com/bdrazn/adkextension/internal/config"
	"github.com/bdrazn/adkextension/internal/gateway"
	"github.com/bdrazn/adkextension/internal/runner"
	"github.com/bdrazn/adkextension/internal/scheduler"
	"github.com/bdrazn/adkextension/internal/session"
	"github.com/bdrazn/adkextension/internal/strategies"
	"github.com/bdrazn/adkextension/internal/tokens"
	"github.com/bdrazn/adkextension/internal/trim"
	"github.com/bdrazn/adkextension/pkg/llm"
	"github.com/bdrazn/adkextension/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.LogLevel)

	estimator, err := buildEstimator(cfg)
	if err != nil {
		return fmt.Errorf("create token estimator: %w", err)
	}

	llmCfg := llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	}
	factory := func(c *llm.Config) llm.Provider { return openai.New(c) }

	// Session store with the decorator stack: compaction on the inside,
	// trimming on the outside, so summarization lands before eviction.
	store := session.NewInMemoryService()
	var svc session.Service = store

	if cfg.EnableCompaction {
		summarizer := compact.NewLLMSummarizer(llmCfg, compact.ProviderFactory(factory))
		compactor, err := compact.NewCompactor(
			cfg.CompactionInterval, cfg.CompactionOverlap, cfg.CompactionMinEvents, summarizer)
		if err != nil {
			return fmt.Errorf("create compactor: %w", err)
		}
		svc = session.NewCompacting(svc, compactor)
	}

	var tools *strategies.Set
	var ranker trim.Ranker
	if cfg.EnableContextStrategies {
		tools = &strategies.Set{
			Memory: strategies.NewFileMemory(cfg.MemoryPath),
			Stuck:  strategies.NewRepetitionDetector(),
			Ranker: strategies.NewHeuristicRanker(),
		}
		ranker = tools.Ranker
	}

	svc = session.NewTrimming(svc, ranker, estimator, session.TrimConfig{
		BaseBudget:   cfg.RankTokenBudget,
		BufferTokens: cfg.BufferTokens,
	})

	run := runner.NewLLMRunner(llmCfg, runner.ProviderFactory(factory), cfg.ToolExecutorURL)
	srv := gateway.NewServer(cfg, svc, run, tools)

	sweeper := scheduler.New(store, cfg.SessionTTL)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer sweeper.Stop()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if cfg.PortFile != "" {
		port := listener.Addr().(*net.TCPAddr).Port
		if err := os.WriteFile(cfg.PortFile, []byte(strconv.Itoa(port)+"\n"), 0o644); err != nil {
			return fmt.Errorf("write port file: %w", err)
		}
		defer os.Remove(cfg.PortFile)
	}

	httpServer := &http.Server{Handler: srv}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	slog.Info("adkgateway started",
		"addr", listener.Addr().String(),
		"model", cfg.LLM.Model,
		"compaction", cfg.EnableCompaction,
		"context_strategies", cfg.EnableContextStrategies,
		"rank_token_budget", cfg.RankTokenBudget,
		"buffer_tokens", cfg.BufferTokens,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func buildEstimator(cfg *config.Config) (tokens.Estimator, error) {
	if cfg.TokenEstimator == "tiktoken" {
		return tokens.NewTiktokenEstimator(cfg.LLM.Model)
	}
	return tokens.CharEstimator{}, nil
}
