package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/novalym/velm-sub003/internal/chronicle"
	"github.com/novalym/velm-sub003/internal/config"
	"github.com/novalym/velm-sub003/internal/sanctum"
)

var chronicleCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Inspect a project's federated manifest and archived history",
}

var chronicleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current scaffold.lock manifest summary",
	RunE:  runChronicleShow,
}

var chronicleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived chronicle snapshots under .scaffold/chronicles",
	RunE:  runChronicleList,
}

func init() {
	chronicleCmd.AddCommand(chronicleShowCmd, chronicleListCmd)
}

func runChronicleShow(cmd *cobra.Command, args []string) error {
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

	archiver := chronicle.NewArchiver(project, ".scaffold/chronicles", clockString)
	scribe := chronicle.New(project, ".scaffold/scaffold.lock", archiver)
	manifest, err := scribe.Load(ctx)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	fmt.Printf("version: %d\n", manifest.Version)
	fmt.Printf("architect: %s\n", manifest.Provenance.Architect)
	fmt.Printf("last rite: %s\n", manifest.Provenance.Timestamp)
	fmt.Printf("files: %d\n", len(manifest.Files))
	fmt.Printf("integrity: content=%s manifest=%s\n", manifest.Integrity.ContentHash, manifest.Integrity.ManifestHash)

	paths := make([]string, 0, len(manifest.Files))
	for path := range manifest.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		entry := manifest.Files[path]
		fmt.Printf("  %s  %s  %d bytes\n", entry.Action, path, entry.Bytes)
	}
	return nil
}

func runChronicleList(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	cfg, err := config.Load(ws)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	project, err := buildProjectSanctum(cfg, ws)
	if err != nil {
		return err
	}

	local, ok := project.(*sanctum.LocalSanctum)
	if !ok {
		return fmt.Errorf("chronicle list requires a local sanctum backend; got %q", cfg.Sanctum.Backend)
	}

	dir := filepath.Join(local.Root, ".scaffold", "chronicles")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no archived chronicles yet")
			return nil
		}
		return fmt.Errorf("list chronicles: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
