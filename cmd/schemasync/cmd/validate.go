package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/database"
	"github.com/dbsmedya/schemasync/internal/inventory"
	"github.com/dbsmedya/schemasync/internal/logger"
	"github.com/dbsmedya/schemasync/internal/types"
)

var validateSkipConnect bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration, inputs and connectivity",
	Long: `Validate checks the configuration file, the account and object lists,
and that every configured database can be reached.

Checks performed:
  - Configuration syntax and required fields
  - Accounts sheet and object sheets, when configured
  - Connectivity to the base and to every target

Example:
  schemasync validate --config schemasync.yaml
  schemasync validate --skip-connect`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateSkipConnect, "skip-connect", false,
		"Only check configuration and input files")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig(config.Overrides{})
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(out, "Config file: %s\n", configFile)

	accounts, err := inventory.LoadAccounts(cfg)
	if err != nil {
		fmt.Fprintf(out, "❌ Accounts: %v\n", err)
		return fmt.Errorf("validation failed")
	}
	fmt.Fprintf(out, "Base: %s/%s\n", accounts.Base.Server, accounts.Base.Database)
	fmt.Fprintf(out, "Targets: %d\n\n", len(accounts.Targets))

	printObjectCounts(out, cfg)

	if validateSkipConnect {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "=== Validation Complete ===")
		fmt.Fprintln(out, "✅ Configuration is valid (connectivity not checked)")
		return nil
	}

	connector, closeAll := connectorFactory(cfg)
	defer func() { _ = closeAll() }()

	ctx, stop := database.SetupSignalHandler(nil)
	defer stop()

	fmt.Fprintf(out, "\n--- Connectivity ---\n")
	hasErrors := false
	all := append([]config.ConnectionConfig{accounts.Base}, accounts.Targets...)
	for i, conn := range all {
		role := "target"
		if i == 0 {
			role = "base"
		}
		if _, err := connector.Open(ctx, conn); err != nil {
			log.WithTarget(conn.Server, conn.Database).Errorf("Connectivity check failed: %v", err)
			fmt.Fprintf(out, "❌ %s %s/%s: %v\n", role, conn.Server, conn.Database, err)
			hasErrors = true
			continue
		}
		fmt.Fprintf(out, "✅ %s %s/%s\n", role, conn.Server, conn.Database)
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more databases")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Validation Complete ===")
	fmt.Fprintln(out, "✅ All databases reachable")
	return nil
}

// printObjectCounts reports how many names each object list resolves to.
// An empty list is not an error here; only the mode that needs it fails.
func printObjectCounts(out io.Writer, cfg *config.Config) {
	for _, kind := range []types.ObjectType{types.Table, types.View, types.StoredProcedure} {
		names, err := inventory.LoadObjects(cfg, kind)
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s names: %d\n", kind, len(names))
		case types.IsKind(err, types.InputFailure) && objectsFile(cfg, kind) == "":
			fmt.Fprintf(out, "%s names: none\n", kind)
		default:
			fmt.Fprintf(out, "❌ %s names: %v\n", kind, err)
		}
	}
}

// objectsFile returns the sheet the names for kind are read from, if any.
func objectsFile(cfg *config.Config, kind types.ObjectType) string {
	switch kind {
	case types.Table:
		if cfg.Objects.TablesFile != "" {
			return cfg.Objects.TablesFile
		}
	case types.View:
		if cfg.Objects.ViewsFile != "" {
			return cfg.Objects.ViewsFile
		}
	case types.StoredProcedure:
		if cfg.Objects.ProceduresFile != "" {
			return cfg.Objects.ProceduresFile
		}
	}
	return ""
}
