package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n8nkit/itembatch/batch"
	"github.com/n8nkit/itembatch/processor"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize NAME...",
		Short: "Print the accessor keys for source names",
		Long: `Print the key each source name gets in the transform's auxiliary data.

Examples:
  itembatch normalize "Ingestion Sources"   # ingestionSources
  itembatch normalize API_Config-v2         # apiConfigV2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				fmt.Fprintln(cmd.OutOrStdout(), batch.NormalizeName(name))
			}
			return nil
		},
	}
}

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the field operations accepted by --field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, op := range processor.FieldOps() {
				fmt.Fprintln(cmd.OutOrStdout(), op)
			}
			return nil
		},
	}
}
