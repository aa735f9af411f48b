/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: infer.go
Description: Infer command implementation. Reads labelled samples into a knowledgebase
and derives one automaton consistent with them, without any oracle.
*/

package commands

import (
	"fmt"
	"os"

	"github.com/kleascm/regular-learner/pkg/core"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/learner"
	"github.com/spf13/cobra"
)

// RunInfer infers an automaton from a sample file
func RunInfer(cmd *cobra.Command, args []string) error {
	fmt.Println("🔍 Regular Learner - Sample Inference")
	fmt.Println("=====================================")
	fmt.Println()

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := SetupLogging(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	samplesPath, _ := cmd.Flags().GetString("samples")
	kb, err := loadSamples(samplesPath, cfg.AlphabetSize)
	if err != nil {
		return err
	}
	stats := kb.Stats()
	fmt.Printf("📚 Samples: %d labelled words over alphabet %d\n", stats.Answered, stats.AlphabetSize)
	fmt.Printf("🧠 Algorithm: %s\n", cfg.Algorithm)

	session := cfg.Session()
	session.AlphabetSize = stats.AlphabetSize
	if learner.Online(cfg.Algorithm) {
		session.Offline = true
	}

	engine := core.NewEngine(session, logger.GetLogger())
	engine.SetKnowledgebase(kb)
	engine.AddReporter(core.NewLoggerReporter(logger))

	sessionStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if sessionStore != nil {
		defer sessionStore.Close()
		engine.SetSnapshotter(sessionStore)
	}

	if err := engine.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, runErr := engine.Run(ctx)
	if result != nil {
		printResult(result)
		if err := writeOutputs(cmd, "inferred-"+cfg.Algorithm, result.Conjecture); err != nil {
			return err
		}
		if err := writeReport(cmd, result); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("inference failed: %w", runErr)
	}

	fmt.Println("\n✨ Inference completed!")
	return nil
}

func loadSamples(path string, alphabetSize int) (*knowledgebase.Knowledgebase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples: %w", err)
	}
	defer f.Close()

	kb := knowledgebase.New(alphabetSize)
	if _, err := kb.ReadSamples(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return kb, nil
}
