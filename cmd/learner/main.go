/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command line entry point of the regular language learner. Learns automata
from a target description through membership and equivalence queries, infers automata
from labelled samples, and inspects stored knowledgebases.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kleascm/regular-learner/cmd/learner/commands"
	"github.com/kleascm/regular-learner/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string
	logLevel   string
	logFormat  string
	logDir     string

	// Session configuration
	algorithm    string
	alphabetSize int
	workers      int
	queryTimeout time.Duration
	maxRounds    int
	maxStates    int
	storePath    string
	sessionID    string
)

func main() {
	config.Configure(viper.GetViper())

	rootCmd := &cobra.Command{
		Use:   "learner",
		Short: "Regular language learner",
		Long: `Learns finite automata for regular languages. Online algorithms ask a teacher
membership and equivalence queries; offline algorithms infer an automaton from
labelled samples.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for log files, empty logs to stderr only")
	rootCmd.PersistentFlags().StringVar(&algorithm, "algorithm", "angluin", "Learning algorithm")
	rootCmd.PersistentFlags().IntVar(&maxStates, "max-states", 16, "State bound for SAT inference")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Session store directory, empty disables persistence")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("logging.output_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("algorithm", rootCmd.PersistentFlags().Lookup("algorithm"))
	viper.BindPFlag("max_states", rootCmd.PersistentFlags().Lookup("max-states"))
	viper.BindPFlag("store_path", rootCmd.PersistentFlags().Lookup("store"))

	// Learn command
	learnCmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn the language of a target automaton",
		Long: `Runs an online learning session against a target automaton described in YAML.
The target answers membership queries and checks every conjecture until the
learned automaton is equivalent.`,
		RunE: commands.RunLearn,
	}
	learnCmd.Flags().String("target", "", "Target automaton YAML file (required)")
	learnCmd.Flags().IntVar(&alphabetSize, "alphabet", 0, "Alphabet size, 0 takes the target's")
	learnCmd.Flags().IntVar(&workers, "workers", 4, "Concurrent membership queries")
	learnCmd.Flags().DurationVar(&queryTimeout, "query-timeout", 5*time.Second, "Timeout per query")
	learnCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Equivalence query limit, 0 for none")
	learnCmd.Flags().StringVar(&sessionID, "resume", "", "Resume a stored session by id")
	learnCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address during the session")
	learnCmd.Flags().String("output", "", "Write the learned automaton as YAML")
	learnCmd.Flags().String("dot", "", "Write the learned automaton as graphviz dot")
	learnCmd.Flags().String("report", "", "Write a JSON session report under this directory")
	learnCmd.MarkFlagRequired("target")

	viper.BindPFlag("alphabet_size", learnCmd.Flags().Lookup("alphabet"))
	viper.BindPFlag("workers", learnCmd.Flags().Lookup("workers"))
	viper.BindPFlag("query_timeout", learnCmd.Flags().Lookup("query-timeout"))
	viper.BindPFlag("max_rounds", learnCmd.Flags().Lookup("max-rounds"))
	viper.BindPFlag("session_id", learnCmd.Flags().Lookup("resume"))
	viper.BindPFlag("metrics_addr", learnCmd.Flags().Lookup("metrics-addr"))

	rootCmd.AddCommand(learnCmd)

	// Infer command
	inferCmd := &cobra.Command{
		Use:   "infer",
		Short: "Infer an automaton from labelled samples",
		Long: `Infers an automaton consistent with a sample file. Each line holds an answer
and a word, e.g. "+ .0.1." or "- .0.". Works with rpni, biermann and the table
algorithms in offline mode.`,
		RunE: commands.RunInfer,
	}
	inferCmd.Flags().String("samples", "", "Sample file (required)")
	inferCmd.Flags().String("output", "", "Write the inferred automaton as YAML")
	inferCmd.Flags().String("dot", "", "Write the inferred automaton as graphviz dot")
	inferCmd.Flags().String("report", "", "Write a JSON session report under this directory")
	inferCmd.MarkFlagRequired("samples")

	rootCmd.AddCommand(inferCmd)

	// Knowledgebase commands
	kbCmd := &cobra.Command{
		Use:   "kb",
		Short: "Inspect serialized knowledgebases",
	}
	kbShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print every answered word",
		RunE:  commands.RunKnowledgebaseShow,
	}
	kbStatsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print knowledgebase statistics",
		RunE:  commands.RunKnowledgebaseStats,
	}
	kbExportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored session knowledgebase to a file",
		RunE:  commands.RunKnowledgebaseExport,
	}
	for _, c := range []*cobra.Command{kbShowCmd, kbStatsCmd} {
		c.Flags().String("file", "", "Serialized knowledgebase file")
		c.Flags().String("session", "", "Read the knowledgebase of a stored session instead")
		c.Flags().String("dot", "", "Also write the knowledgebase trie as graphviz dot")
	}
	kbExportCmd.Flags().String("session", "", "Stored session id (required)")
	kbExportCmd.Flags().String("file", "", "Output file (required)")
	kbExportCmd.MarkFlagRequired("session")
	kbExportCmd.MarkFlagRequired("file")
	kbCmd.AddCommand(kbShowCmd, kbStatsCmd, kbExportCmd)

	rootCmd.AddCommand(kbCmd)

	// Sessions command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "sessions",
		Short: "List sessions in the store",
		RunE:  commands.ListSessions,
	})

	// Algorithms command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "algorithms",
		Short: "List available learning algorithms",
		Run:   commands.ListAlgorithms,
	})

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   commands.PrintVersion,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
