/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utilities.go
Description: Utility commands for the learner. Lists algorithms and stored sessions and
prints version information.
*/

package commands

import (
	"fmt"
	"runtime"

	"github.com/kleascm/regular-learner/pkg/learner"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags
var Version = "dev"

var algorithmDescriptions = map[string]string{
	learner.NameAngluin:    "L* with counterexample prefixes added as rows",
	learner.NameAngluinCol: "L* with counterexample suffixes added as columns",
	learner.NameNLStar:     "NL*, learns residual nondeterministic automata",
	learner.NameRPNI:       "Offline state merging over the sample prefix tree",
	learner.NameBiermann:   "Offline minimal DFA search through SAT",
}

// ListAlgorithms lists every registered learning algorithm
func ListAlgorithms(cmd *cobra.Command, args []string) {
	fmt.Println("🧠 Regular Learner - Available Algorithms")
	fmt.Println("=========================================")
	fmt.Println()

	for _, name := range learner.Names() {
		mode := "online"
		if !learner.Online(name) {
			mode = "offline"
		}
		fmt.Printf("  %-12s %-8s %s\n", name, mode, algorithmDescriptions[name])
	}
}

// ListSessions lists the sessions in the configured store
func ListSessions(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	s, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	sessions, err := s.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No stored sessions")
		return nil
	}
	for _, meta := range sessions {
		fmt.Printf("%s  rounds=%d  updated=%s\n", meta.ID, meta.Rounds, meta.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// PrintVersion prints version information
func PrintVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("learner %s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
