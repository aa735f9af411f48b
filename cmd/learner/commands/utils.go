/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the learner commands. Provides configuration loading,
logger and store setup, signal handling and output writers used across all command
implementations.
*/

package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/config"
	"github.com/kleascm/regular-learner/pkg/core"
	"github.com/kleascm/regular-learner/pkg/logging"
	"github.com/kleascm/regular-learner/pkg/store"
	"github.com/kleascm/regular-learner/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from defaults, file, environment and flags
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogging creates the session logger
func SetupLogging(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// openStore opens the session store when a path is configured. A nil store means
// persistence is disabled.
func openStore(cfg *config.Config, logger *logging.Logger) (*store.Store, error) {
	if cfg.StorePath == "" {
		return nil, nil
	}
	storeCfg := store.DefaultConfig(cfg.StorePath)
	storeCfg.Logger = logger.GetLogger()
	s, err := store.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

// requireStore opens the configured store and fails when none is configured
func requireStore(cfg *config.Config) (*store.Store, error) {
	if cfg.StorePath == "" {
		return nil, fmt.Errorf("no store configured, use --store or LEARNER_STORE_PATH")
	}
	s, err := store.Open(store.DefaultConfig(cfg.StorePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Println("\n🛑 Received shutdown signal, stopping session...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// writeOutputs writes the automaton to the files named by the --output and --dot flags
func writeOutputs(cmd *cobra.Command, name string, c *automaton.Conjecture) error {
	if c == nil {
		return nil
	}
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		doc := &automaton.Document{Name: name, Conjecture: *c}
		if err := doc.SaveYAML(path); err != nil {
			return err
		}
		fmt.Printf("💾 Automaton written to %s\n", path)
	}
	if path, _ := cmd.Flags().GetString("dot"); path != "" {
		if err := os.WriteFile(path, []byte(c.Dot()), 0644); err != nil {
			return fmt.Errorf("failed to write dot file: %w", err)
		}
		fmt.Printf("💾 Dot graph written to %s\n", path)
	}
	return nil
}

// writeReport writes the session result as JSON under the --report directory
func writeReport(cmd *cobra.Command, result *core.SessionResult) error {
	dir, _ := cmd.Flags().GetString("report")
	if dir == "" {
		return nil
	}
	path, err := utils.WriteReport(dir, result.Algorithm, result.SessionID, result)
	if err != nil {
		return err
	}
	fmt.Printf("📝 Session report written to %s\n", path)
	return nil
}

// printResult prints the session outcome and final statistics
func printResult(result *core.SessionResult) {
	stats := result.Stats
	duration := time.Since(stats.StartTime)

	fmt.Println("\n📊 Final Statistics")
	fmt.Println("==================")
	fmt.Printf("Session: %s\n", result.SessionID)
	fmt.Printf("Algorithm: %s\n", result.Algorithm)
	fmt.Printf("Total Runtime: %v\n", duration.Round(time.Millisecond))
	fmt.Printf("Rounds: %d\n", result.Rounds)
	fmt.Printf("Membership Queries: %d\n", stats.MembershipQueries)
	fmt.Printf("Equivalence Queries: %d\n", stats.EquivalenceQueries)
	fmt.Printf("Counterexamples: %d\n", stats.Counterexamples)
	fmt.Printf("Query Batches: %d\n", stats.Batches)
	if stats.Timeouts > 0 {
		fmt.Printf("Timeouts: %d\n", stats.Timeouts)
	}
	if result.Conjecture != nil {
		fmt.Printf("States: %d\n", result.Conjecture.StateCount)
		fmt.Printf("Transitions: %d\n", len(result.Conjecture.Transitions))
		fmt.Printf("Deterministic: %t\n", result.Conjecture.Deterministic)
	}
	if result.Equal {
		fmt.Println("✅ Conjecture confirmed equivalent to the target")
	}
}
