/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: learn.go
Description: Learn command implementation. Builds a teacher from a target automaton file
and runs an online learning session against it, with optional session persistence,
resumption and a Prometheus metrics endpoint.
*/

package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kleascm/regular-learner/pkg/automaton"
	"github.com/kleascm/regular-learner/pkg/config"
	"github.com/kleascm/regular-learner/pkg/core"
	"github.com/kleascm/regular-learner/pkg/logging"
	"github.com/kleascm/regular-learner/pkg/oracle"
	"github.com/kleascm/regular-learner/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RunLearn executes an online learning session
func RunLearn(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 Regular Learner - Starting Learning Session")
	fmt.Println("==============================================")
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

	targetPath, _ := cmd.Flags().GetString("target")
	doc, err := automaton.LoadYAML(targetPath)
	if err != nil {
		return err
	}
	teacher, err := oracle.NewReferenceTeacher(&doc.Conjecture)
	if err != nil {
		return err
	}
	if cfg.AlphabetSize == 0 {
		cfg.AlphabetSize = teacher.AlphabetSize()
	}
	fmt.Printf("🎯 Target: %s (%d states, alphabet %d)\n", describe(doc, targetPath), doc.StateCount, cfg.AlphabetSize)
	fmt.Printf("🧠 Algorithm: %s\n", cfg.Algorithm)

	engine := core.NewEngine(cfg.Session(), logger.GetLogger())
	engine.SetTeacher(teacher)
	engine.AddReporter(core.NewLoggerReporter(logger))

	sessionStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if sessionStore != nil {
		defer sessionStore.Close()
		engine.SetSnapshotter(sessionStore)
		if err := resume(engine, sessionStore, cfg, logger); err != nil {
			return err
		}
	}

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(engine, cfg.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	if err := engine.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, runErr := engine.Run(ctx)
	if result != nil {
		printResult(result)
		if err := writeOutputs(cmd, describe(doc, targetPath)+"-learned", result.Conjecture); err != nil {
			return err
		}
		if err := writeReport(cmd, result); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("learning session failed: %w", runErr)
	}

	fmt.Println("\n✨ Learning session completed!")
	return nil
}

// resume loads the stored knowledgebase, observation table and statistics of
// the configured session, if any
func resume(engine *core.Engine, s *store.Store, cfg *config.Config, logger *logging.Logger) error {
	if cfg.SessionID == "" {
		return nil
	}
	kb, err := s.LoadKnowledgebase(cfg.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		logger.GetLogger().WithField("session_id", cfg.SessionID).Info("No stored knowledge, starting fresh session")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resume session %s: %w", cfg.SessionID, err)
	}
	if kb.AlphabetSize() < cfg.AlphabetSize {
		if err := kb.SetAlphabetSize(cfg.AlphabetSize); err != nil {
			return err
		}
	}

	tableData, err := s.LoadTable(cfg.SessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load observation table of %s: %w", cfg.SessionID, err)
	}
	var stats *core.SessionStats
	var saved core.SessionStats
	switch err := s.LoadStats(cfg.SessionID, &saved); {
	case err == nil:
		stats = &saved
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("failed to load statistics of %s: %w", cfg.SessionID, err)
	}
	engine.Resume(kb, tableData, stats)

	kbStats := kb.Stats()
	logger.GetLogger().WithFields(logrus.Fields{
		"session_id":  cfg.SessionID,
		"answered":    kbStats.Answered,
		"nodes":       kbStats.Nodes,
		"table":       len(tableData) > 0,
		"conjectures": saved.Conjectures,
	}).Info("Resumed session")
	fmt.Printf("♻️  Resumed session %s with %d known answers after %d conjectures\n", cfg.SessionID, kbStats.Answered, saved.Conjectures)
	return nil
}

// serveMetrics registers a Prometheus reporter on a fresh registry and serves it
// until the returned stop function is called
func serveMetrics(engine *core.Engine, addr string, logger *logging.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reporter, err := core.NewPrometheusReporter(reg)
	if err != nil {
		return nil, err
	}
	engine.AddReporter(reporter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().WithError(err).Error("Metrics server failed")
		}
	}()
	fmt.Printf("📈 Metrics on http://%s/metrics\n", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}, nil
}

func describe(doc *automaton.Document, path string) string {
	if doc.Name != "" {
		return doc.Name
	}
	return path
}
