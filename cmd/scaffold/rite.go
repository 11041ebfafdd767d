package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/novalym/velm-sub003/internal/alchemist"
	"github.com/novalym/velm-sub003/internal/chronicle"
	"github.com/novalym/velm-sub003/internal/config"
	"github.com/novalym/velm-sub003/internal/gnosis"
	"github.com/novalym/velm-sub003/internal/ledger"
	"github.com/novalym/velm-sub003/internal/logging"
	"github.com/novalym/velm-sub003/internal/materializer"
	"github.com/novalym/velm-sub003/internal/sanctum"
	"github.com/novalym/velm-sub003/internal/sentinel"
	"github.com/novalym/velm-sub003/internal/symphony"
	"github.com/novalym/velm-sub003/internal/types"
)

var (
	riteSetVars []string
	riteDryRun  bool
)

var riteCmd = &cobra.Command{
	Use:   "rite <blueprint>",
	Short: "Materialize a blueprint into the workspace",
	Long: `rite parses a blueprint scripture, weaves its conditionals and traits
against a resolved variable context, and materializes the result
transactionally: every file is staged and validated before anything is
promoted into the project root. Pass --dry-run to compute a Prophecy diff
without touching the project at all.`,
	Args: cobra.ExactArgs(1),
	RunE: runRite,
}

func init() {
	riteCmd.Flags().StringArrayVar(&riteSetVars, "set", nil, "Override a variable, e.g. --set name=value")
	riteCmd.Flags().BoolVar(&riteDryRun, "dry-run", false, "Compute a Prophecy diff without touching the project")
}

func runRite(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ws := resolveWorkspace()
	cfg, err := config.Load(ws)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	text, err := loadScripture(args[0])
	if err != nil {
		return err
	}

	overrides, err := parseSetFlags(riteSetVars)
	if err != nil {
		return err
	}

	plan, vars, heresies := parseAndWeave(args[0], text, overrides)
	if plan == nil {
		printHeresies(heresies)
		return fmt.Errorf("blueprint %s failed to parse", args[0])
	}
	if len(heresies) > 0 {
		printHeresies(heresies)
	}

	project, err := buildProjectSanctum(cfg, ws)
	if err != nil {
		return err
	}

	txID := newTxID()
	var stagingSanctum types.Sanctum
	if cfg.Sanctum.Backend == "memory" || riteDryRun {
		stagingSanctum = sanctum.NewMemorySanctum(filepath.Join(".scaffold", "staging", txID))
	} else {
		stagingSanctum = sanctum.NewLocalSanctum(filepath.Join(ws, ".scaffold", "staging", txID))
	}

	conductor := symphony.NewConductor(ws, stringifyContext(overrides))
	conductor.Sanctum = project
	var exec gnosis.Executor = symphony.NewExecutor(conductor)

	sent := sentinel.New(ws)
	existing, err := sanctum.WalkFiles(project)
	if err != nil {
		return fmt.Errorf("scanning existing project tree: %w", err)
	}
	sent.SeedExisting(existing)

	led := ledger.New()
	reg := newValidatorRegistry(cfg)

	opts := materializer.Options{
		Project:     project,
		StagingRoot: stagingSanctum,
		TxID:        txID,
		DryRun:      riteDryRun,
		Vars:        vars,
		Dossier:     plan.Dossier,
		Exec:        exec,
		LockTimeout: time.Duration(cfg.Limits.LockTimeoutSec) * time.Second,
		LockPath:    filepath.Join(ws, ".scaffold", "lock"),
		JournalPath: ".scaffold/ledger.jsonl",
	}

	m := materializer.New(opts, sent, led, reg)
	result := m.Run(ctx, plan)

	logging.Materializer("rite %s: %d results, %d heresies, tainted=%v", txID, len(result.Results), len(result.Heresies), result.Tainted)

	if len(result.Heresies) > 0 {
		printHeresies(result.Heresies)
	}

	if riteDryRun {
		for _, entry := range result.Prophecy {
			fmt.Println(entry.Path, entry.Status)
		}
		return nil
	}

	if result.Tainted {
		return fmt.Errorf("rite %s failed and could not be fully rolled back", txID)
	}
	if len(result.Results) == 0 && anyFatalHeresy(result.Heresies) {
		return fmt.Errorf("rite %s aborted", txID)
	}

	if err := federateChronicle(ctx, project, ws, txID, args[0], result.Results); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: chronicle federation failed: %v\n", err)
	}

	fmt.Printf("rite %s: %d file(s) materialized\n", txID, len(result.Results))
	return nil
}

func federateChronicle(ctx context.Context, project types.Sanctum, ws, txID, rite string, results []*types.WriteResult) error {
	manifestPath := ".scaffold/scaffold.lock"
	archiver := chronicle.NewArchiver(project, ".scaffold/chronicles", clockString)
	scribe := chronicle.New(project, manifestPath, archiver)

	prior, err := scribe.Load(ctx)
	if err != nil {
		return err
	}
	next := chronicle.Federate(prior, results, rite, types.Provenance{
		Timestamp: time.Now(),
		Architect: os.Getenv("USER"),
	})
	return scribe.Commit(ctx, prior, next, txID)
}

func stringifyContext(overrides alchemist.Context) map[string]string {
	out := make(map[string]string, len(overrides))
	for k, v := range overrides {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
