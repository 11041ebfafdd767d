package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	validateSetVars []string
	validateWatch   bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <blueprint>",
	Short: "Parse and weave a blueprint without materializing it",
	Long: `validate runs a blueprint through the Parser and AST Weaver and reports
every heresy it raises, without staging or promoting a single file. Use it
to check a scripture's grammar and variable contracts before committing to
a real rite. Pass --watch to keep re-validating on every save instead of
exiting after the first pass.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringArrayVar(&validateSetVars, "set", nil, "Override a variable, e.g. --set name=value")
	validateCmd.Flags().BoolVar(&validateWatch, "watch", false, "Re-validate whenever the blueprint file changes")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateWatch {
		return watchValidate(args[0])
	}
	return validateOnce(args[0])
}

func validateOnce(path string) error {
	text, err := loadScripture(path)
	if err != nil {
		return err
	}

	overrides, err := parseSetFlags(validateSetVars)
	if err != nil {
		return err
	}

	plan, _, heresies := parseAndWeave(path, text, overrides)
	if len(heresies) > 0 {
		printHeresies(heresies)
	}
	if plan == nil {
		return fmt.Errorf("blueprint %s failed to parse", path)
	}
	if anyFatalHeresy(heresies) {
		return fmt.Errorf("blueprint %s did not pass validation", path)
	}

	fmt.Printf("blueprint %s: %d item(s) woven, no fatal heresies\n", path, len(plan.Items))
	return nil
}

// watchValidate re-parses and re-weaves path every time fsnotify reports
// it changed, never staging or promoting anything - a heresy surfaces
// immediately instead of waiting for the next real rite. Ctrl-C stops the
// watch the same way the teacher's long-running subcommands do.
func watchValidate(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting blueprint watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := validateOnce(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", path)

	for {
		select {
		case <-sigCh:
			fmt.Println("\nwatch stopped")
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := validateOnce(path); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
	}
}
