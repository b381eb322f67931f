package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/schemasync/internal/config"
	"github.com/dbsmedya/schemasync/internal/inventory"
)

var listTargetsCmd = &cobra.Command{
	Use:   "list-targets",
	Short: "List the base and target databases",
	Long: `List-targets displays the base database and every target resolved from
the configuration file or the accounts sheet. Passwords are never printed.

Example:
  schemasync list-targets --config schemasync.yaml`,
	RunE: runListTargets,
}

func init() {
	rootCmd.AddCommand(listTargetsCmd)
}

func runListTargets(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	accounts, err := inventory.LoadAccounts(cfg)
	if err != nil {
		return err
	}

	source := configFile
	if cfg.AccountsFile != "" {
		source = cfg.AccountsFile
	}
	cmd.Printf("Databases defined in %s:\n\n", source)

	cmd.Printf("Base:\n")
	printConnection(cmd, "   ", accounts.Base)

	if len(accounts.Targets) == 0 {
		cmd.Printf("\nNo targets defined\n")
		return nil
	}

	cmd.Printf("\nTargets (%d):\n", len(accounts.Targets))
	for i, t := range accounts.Targets {
		cmd.Printf("%d. %s/%s\n", i+1, t.Server, t.Database)
		printConnection(cmd, "   ", t)
	}
	return nil
}

func printConnection(cmd *cobra.Command, indent string, c config.ConnectionConfig) {
	cmd.Printf("%sServer:   %s\n", indent, c.Server)
	if c.Port != 0 {
		cmd.Printf("%sPort:     %d\n", indent, c.Port)
	}
	cmd.Printf("%sDatabase: %s\n", indent, c.Database)
	cmd.Printf("%sUsername: %s\n", indent, c.Username)

	driver := c.Driver
	if driver == "" {
		driver = "sqlserver"
	}
	cmd.Printf("%sDriver:   %s\n", indent, driver)
}
