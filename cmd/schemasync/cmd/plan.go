package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/database"
	"github.com/dbsmedya/schemasync/internal/inventory"
	"github.com/dbsmedya/schemasync/internal/logger"
	"github.com/dbsmedya/schemasync/internal/orchestrator"
	"github.com/dbsmedya/schemasync/internal/types"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var planMode string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the dependency-ordered sync plan",
	Long: `Plan reads the reference graph of the configured views or procedures
from the base database and prints the waves a sync would run in. Objects
in one wave are applied concurrently; a wave starts after the previous
one has finished.

No target is contacted and nothing is changed.

Example:
  schemasync plan --mode sync-view --config schemasync.yaml`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planMode, "mode", "sync-view",
		"Sync mode to plan: sync-view or sync-procedure")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	mode, err := types.ParseMode(planMode)
	if err != nil {
		return err
	}
	kind := mode.ObjectType()
	if kind == types.Table {
		return fmt.Errorf("mode %s has no sync plan", mode)
	}

	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return err
	}
	cfg.Sync.OrderByDependencies = true

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	accounts, err := inventory.LoadAccounts(cfg)
	if err != nil {
		return err
	}
	names, err := inventory.LoadObjects(cfg, kind)
	if err != nil {
		return err
	}

	connector, closeAll := connectorFactory(cfg)
	defer func() { _ = closeAll() }()

	ctx, stop := database.SetupSignalHandler(nil)
	defer stop()

	o := orchestrator.New(connector, cfg, log)
	base, err := o.OpenBase(ctx, accounts.Base)
	if err != nil {
		return err
	}
	waves, err := o.Waves(ctx, base, kind, names)
	if err != nil {
		return err
	}

	printPlan(outputWriter, kind, base.Label(), waves)
	return nil
}

func printPlan(w io.Writer, kind types.ObjectType, base string, waves [][]string) {
	fmt.Fprintf(w, "Sync plan for %s objects from %s\n\n", kind, base)

	total := 0
	for i, wave := range waves {
		fmt.Fprintf(w, "Wave %d: %s\n", i+1, strings.Join(wave, ", "))
		total += len(wave)
	}

	fmt.Fprintf(w, "\nObjects: %d, waves: %d\n", total, len(waves))
}
