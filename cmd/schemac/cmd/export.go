package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/schemac/compiler/export"
)

// Export flags.
const (
	FlagDriver = "driver"
	FlagDSN    = "dsn"
)

func newExport() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the graph index to a SQL database",
		Example: `  schemac export --driver sqlite --dsn index.db
  schemac export --driver postgres --dsn "postgres://localhost/schemas?sslmode=disable"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			driver, _ := cmd.Flags().GetString(FlagDriver)
			dsn, _ := cmd.Flags().GetString(FlagDSN)
			if dsn == "" {
				return fmt.Errorf("--%s is required", FlagDSN)
			}
			res, _, err := compile(ctx, configFrom(ctx))
			if err != nil {
				return err
			}
			drv, err := export.Open(driver, dsn)
			if err != nil {
				return err
			}
			defer drv.Close()
			sum, err := export.Export(ctx, drv, res)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported run %s: %d schemas, %d references, %d diagnostics\n",
				sum.RunID, sum.Nodes, sum.Edges, sum.Diagnostics)
			return err
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	cmd.Flags().String(FlagDriver, export.SQLite, "database dialect: sqlite, postgres or mysql")
	cmd.Flags().String(FlagDSN, "", "data source name")
	return cmd
}
