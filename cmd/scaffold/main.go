// Package main implements the scaffold CLI: the command-line entrypoint to
// the blueprint pipeline (Path Sentinel -> Parser -> AST Weaver ->
// Transactional Materializer -> Chronicle Scribe). The subcommands live in
// the sibling files rite.go, validate.go, undo.go and chronicle.go.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/novalym/velm-sub003/internal/logging"
)

var (
	verbose   bool
	workspace string
	timeout   time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "scaffold - a declarative project-scaffolding engine",
	Long: `scaffold materializes blueprint scriptures into real projects.

It tokenizes a blueprint (.scripture), prunes its conditionals and splices
its traits against a resolved variable context, stages every resulting
file transactionally, validates the staged tree, and only then promotes
it atomically into the target project - recording a reversible Ledger
entry and a federated manifest (scaffold.lock) for every rite it runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := resolveWorkspace()
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func resolveWorkspace() string {
	ws := workspace
	if ws == "" {
		ws, _ = os.Getwd()
		return ws
	}
	if abs, err := filepath.Abs(ws); err == nil {
		return abs
	}
	return ws
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Project workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Rite timeout")

	rootCmd.AddCommand(riteCmd, undoCmd, validateCmd, chronicleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
