package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/novalym/velm-sub003/internal/config"
	"github.com/novalym/velm-sub003/internal/gnosis"
	"github.com/novalym/velm-sub003/internal/ledger"
	"github.com/novalym/velm-sub003/internal/symphony"
	"github.com/novalym/velm-sub003/internal/types"
)

var undoTxID string

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Reverse a prior rite's effects using its recorded Ledger entries",
	Long: `undo replays the journal a previous rite appended to
.scaffold/ledger.jsonl in reverse order, restoring every overwritten file's
prior content, removing every file the rite created, and running each
entry's on-undo edicts where one was bound. Pass --tx to undo only the
entries recorded under a specific transaction ID; otherwise every entry in
the journal is reversed.`,
	RunE: runUndo,
}

func init() {
	undoCmd.Flags().StringVar(&undoTxID, "tx", "", "Only reverse entries recorded under this transaction ID")
}

func runUndo(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ws := resolveWorkspace()
	cfg, err := config.Load(ws)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	project, err := buildProjectSanctum(cfg, ws)
	if err != nil {
		return err
	}

	entries, err := ledger.ReadJournal(ctx, project, ".scaffold/ledger.jsonl")
	if err != nil {
		return fmt.Errorf("read ledger journal: %w", err)
	}
	if undoTxID != "" {
		entries = filterByTxID(entries, undoTxID)
	}
	if len(entries) == 0 {
		fmt.Println("nothing to undo")
		return nil
	}

	conductor := symphony.NewConductor(ws, nil)
	conductor.Sanctum = project
	var exec gnosis.Executor = symphony.NewExecutor(conductor)

	heresies := ledger.Reverse(ctx, project, entries, exec)
	if len(heresies) > 0 {
		printHeresies(heresies)
		return fmt.Errorf("undo completed with %d heresy/heresies", len(heresies))
	}

	fmt.Printf("undo: reversed %d ledger entry/entries\n", len(entries))
	return nil
}

// filterByTxID keeps entries recorded under txID, preserving their
// original (forward) order since ledger.Reverse itself walks back to
// front.
func filterByTxID(entries []types.LedgerEntry, txID string) []types.LedgerEntry {
	var out []types.LedgerEntry
	for _, entry := range entries {
		if entry.TransactionID == txID {
			out = append(out, entry)
		}
	}
	return out
}
