package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/database"
	"github.com/dbsmedya/schemasync/internal/inventory"
	"github.com/dbsmedya/schemasync/internal/logger"
	"github.com/dbsmedya/schemasync/internal/orchestrator"
	"github.com/dbsmedya/schemasync/internal/report"
	"github.com/dbsmedya/schemasync/internal/types"
)

const timestampLayout = "2006-01-02 15:04:05"

var (
	runMode        string
	runOutput      string
	runFormat      string
	runShowContent bool
	runAllowCreate bool
	runConcurrency int
	runNoColor     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compare or sync objects across the configured databases",
	Long: `Compare table structures, views or stored procedures between the base
database and every target, or push base definitions to the targets.

Modes:
  schema          compare columns, keys, indexes, triggers and unique constraints
  view            compare view definitions
  procedure       compare stored procedure definitions
  sync-view       replace target views with the base definition
  sync-procedure  replace target procedures with the base definition

Without --output the report is printed to the console. With --output it is
written as JSON (default) or CSV.

Example:
  schemasync run --mode schema --config schemasync.yaml
  schemasync run --mode procedure --show-content -o diff.json
  schemasync run --mode sync-view --allow-create-new`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runMode, "mode", "",
		"Run mode: schema, view, procedure, sync-view, sync-procedure (required)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "",
		"Write the report to this file instead of the console")
	runCmd.Flags().StringVar(&runFormat, "format", "",
		"Output file format (json, csv)")
	runCmd.Flags().BoolVar(&runShowContent, "show-content", false,
		"Add line diffs to definitions that differ")
	runCmd.Flags().BoolVar(&runAllowCreate, "allow-create-new", false,
		"Create objects that do not exist on a target during sync")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0,
		"Override the number of concurrent target tasks")
	runCmd.Flags().BoolVar(&runNoColor, "no-color", false,
		"Disable colored console output")

	_ = runCmd.MarkFlagRequired("mode")
}

// modeHandler runs one mode over the resolved accounts and object names.
type modeHandler func(ctx context.Context, o *orchestrator.Orchestrator, acc *inventory.Accounts, names []string) (*report.Report, error)

func compareDefinitions(kind types.ObjectType) modeHandler {
	return func(ctx context.Context, o *orchestrator.Orchestrator, acc *inventory.Accounts, names []string) (*report.Report, error) {
		return o.CompareDefinitions(ctx, kind, acc.Base, acc.Targets, names)
	}
}

func syncDefinitions(kind types.ObjectType) modeHandler {
	return func(ctx context.Context, o *orchestrator.Orchestrator, acc *inventory.Accounts, names []string) (*report.Report, error) {
		return o.Sync(ctx, kind, acc.Base, acc.Targets, names)
	}
}

var modeHandlers = map[types.Mode]modeHandler{
	types.ModeSchema: func(ctx context.Context, o *orchestrator.Orchestrator, acc *inventory.Accounts, names []string) (*report.Report, error) {
		return o.CompareSchemas(ctx, acc.Base, acc.Targets, names)
	},
	types.ModeView:          compareDefinitions(types.View),
	types.ModeProcedure:     compareDefinitions(types.StoredProcedure),
	types.ModeSyncView:      syncDefinitions(types.View),
	types.ModeSyncProcedure: syncDefinitions(types.StoredProcedure),
}

func runRun(cmd *cobra.Command, args []string) error {
	mode, err := types.ParseMode(runMode)
	if err != nil {
		return err
	}
	handler, ok := modeHandlers[mode]
	if !ok {
		return fmt.Errorf("mode %s has no handler", mode)
	}

	cfg, err := loadConfig(config.Overrides{
		Concurrency:    runConcurrency,
		OutputFile:     runOutput,
		OutputFormat:   runFormat,
		ShowContent:    runShowContent,
		AllowCreateNew: runAllowCreate,
		NoColor:        runNoColor,
	})
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.WithMode(mode.String())

	accounts, err := inventory.LoadAccounts(cfg)
	if err != nil {
		return err
	}
	names, err := inventory.LoadObjects(cfg, mode.ObjectType())
	if err != nil {
		return err
	}

	// The console writer is chosen only when no output file is given.
	format := ""
	if cfg.Output.File != "" {
		format = cfg.Output.Format
	}
	writer, err := report.NewWriter(format, cfg.Output.Color)
	if err != nil {
		return err
	}

	connector, closeAll := connectorFactory(cfg)
	defer func() {
		if err := closeAll(); err != nil {
			log.Warnf("Failed to close connections: %v", err)
		}
	}()

	ctx, stop := database.SetupSignalHandler(func(sig os.Signal) {
		log.Warnf("Received %s, cancelling run", sig)
	})
	defer stop()

	out := cmd.OutOrStdout()
	start := time.Now()
	fmt.Fprintf(out, "Start Time: %s\n", start.Format(timestampLayout))
	log.Infof("Running %s over %d objects and %d targets", mode, len(names), len(accounts.Targets))

	rep, err := handler(ctx, orchestrator.New(connector, cfg, log), accounts, names)
	if err != nil {
		return err
	}

	if cfg.Output.File == "" {
		err = writer.Write(out, rep)
	} else {
		err = report.WriteFile(cfg.Output.File, writer, rep)
		if err == nil {
			log.Infof("Report written to %s (%d entries)", cfg.Output.File, rep.Count())
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	end := time.Now()
	fmt.Fprintf(out, "End Time: %s\n", end.Format(timestampLayout))
	log.Infof("Finished in %s", end.Sub(start).Round(time.Millisecond))
	return nil
}
