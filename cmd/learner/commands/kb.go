/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: kb.go
Description: Knowledgebase commands. Prints the contents and statistics of serialized
knowledgebases, read either from a file or from a stored session together with its
session counters, and exports stored session knowledge to a file.
*/

package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/kleascm/regular-learner/pkg/core"
	"github.com/kleascm/regular-learner/pkg/knowledgebase"
	"github.com/kleascm/regular-learner/pkg/store"
	"github.com/spf13/cobra"
)

// RunKnowledgebaseShow prints every answered word as a sample line
func RunKnowledgebaseShow(cmd *cobra.Command, args []string) error {
	kb, err := loadKnowledgebase(cmd)
	if err != nil {
		return err
	}
	if err := kb.WriteSamples(os.Stdout); err != nil {
		return err
	}
	return writeKnowledgebaseDot(cmd, kb)
}

// RunKnowledgebaseStats prints the size of a knowledgebase
func RunKnowledgebaseStats(cmd *cobra.Command, args []string) error {
	kb, err := loadKnowledgebase(cmd)
	if err != nil {
		return err
	}
	stats := kb.Stats()

	fmt.Println("📊 Knowledgebase Statistics")
	fmt.Println("===========================")
	fmt.Printf("Alphabet Size: %d\n", stats.AlphabetSize)
	fmt.Printf("Nodes: %d\n", stats.Nodes)
	fmt.Printf("Answered: %d\n", stats.Answered)
	fmt.Printf("Pending: %d\n", stats.Pending)

	if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
		if err := printSessionStats(sessionID); err != nil {
			return err
		}
	}
	return writeKnowledgebaseDot(cmd, kb)
}

// printSessionStats prints the counters stored with a session, if any
func printSessionStats(sessionID string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	s, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	var stats core.SessionStats
	if err := s.LoadStats(sessionID, &stats); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Println("\nNo session statistics stored")
			return nil
		}
		return err
	}
	fmt.Println()
	fmt.Println("📈 Session Statistics")
	fmt.Println("=====================")
	fmt.Printf("Membership Queries: %d\n", stats.MembershipQueries)
	fmt.Printf("Equivalence Queries: %d\n", stats.EquivalenceQueries)
	fmt.Printf("Counterexamples: %d\n", stats.Counterexamples)
	fmt.Printf("Conjectures: %d\n", stats.Conjectures)
	fmt.Printf("Last State Count: %d\n", stats.LastStateCount)
	return nil
}

// RunKnowledgebaseExport writes the knowledgebase of a stored session to a file
func RunKnowledgebaseExport(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	s, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	sessionID, _ := cmd.Flags().GetString("session")
	path, _ := cmd.Flags().GetString("file")
	kb, err := s.LoadKnowledgebase(sessionID)
	if err != nil {
		return err
	}
	data, err := kb.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write knowledgebase: %w", err)
	}
	fmt.Printf("💾 Knowledgebase of session %s written to %s\n", sessionID, path)
	return nil
}

func loadKnowledgebase(cmd *cobra.Command) (*knowledgebase.Knowledgebase, error) {
	path, _ := cmd.Flags().GetString("file")
	sessionID, _ := cmd.Flags().GetString("session")

	switch {
	case path != "" && sessionID != "":
		return nil, errors.New("use either --file or --session")
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read knowledgebase: %w", err)
		}
		return knowledgebase.Unmarshal(data)
	case sessionID != "":
		cfg, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		s, err := requireStore(cfg)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.LoadKnowledgebase(sessionID)
	}
	return nil, errors.New("one of --file or --session is required")
}

func writeKnowledgebaseDot(cmd *cobra.Command, kb *knowledgebase.Knowledgebase) error {
	path, _ := cmd.Flags().GetString("dot")
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dot file: %w", err)
	}
	if err := kb.WriteDot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
