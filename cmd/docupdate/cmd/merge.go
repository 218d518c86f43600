package cmd

import (
	"github.com/spf13/cobra"

	"github.com/solatis/docupdate/internal/update"
)

var mergeCmd = &cobra.Command{
	Use:   "merge FILE...",
	Short: "Merge update operations into one equivalent operation",
	Long: `merge folds a sequence of update operations, read from JSON or YAML
files in order, into a single operation with the same effect when applied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringP("output", "o", "json", "output format (json, yaml)")
}

func runMerge(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")

	ops := make([]any, 0, len(args))
	for _, path := range args {
		op, err := readValue(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	merged, err := update.Merge(ops...)
	if err != nil {
		return err
	}
	return writeValue(cmd.OutOrStdout(), merged.Plain(), format)
}
