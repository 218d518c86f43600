package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/docupdate/internal/update"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply an update operation to a document file",
	Example: `  docupdate apply --doc book.json --op op.yaml
  docupdate apply --doc book.json --op op.json --path meta.author --diff`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().String("doc", "", "document file, JSON or YAML (- for stdin)")
	applyCmd.Flags().String("op", "", "update operation file, JSON or YAML (- for stdin)")
	applyCmd.Flags().String("path", "", "apply the operation to the sub-document at this path")
	applyCmd.Flags().Bool("diff", false, "print a line diff instead of the updated document")
	applyCmd.Flags().String("color", "auto", "colorize diff output (auto, always, never)")
	applyCmd.Flags().StringP("output", "o", "json", "output format (json, yaml)")
	applyCmd.MarkFlagRequired("doc")
	applyCmd.MarkFlagRequired("op")
}

func runApply(cmd *cobra.Command, args []string) error {
	docPath, _ := cmd.Flags().GetString("doc")
	opPath, _ := cmd.Flags().GetString("op")
	path, _ := cmd.Flags().GetString("path")
	showDiff, _ := cmd.Flags().GetBool("diff")
	colorMode, _ := cmd.Flags().GetString("color")
	format, _ := cmd.Flags().GetString("output")

	if docPath == "-" && opPath == "-" {
		return fmt.Errorf("--doc and --op cannot both read stdin")
	}
	doc, err := readValue(docPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	op, err := readValue(opPath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	engine := update.NewEngine(update.WithLogger(logger))

	var updated any
	if path != "" {
		updated, err = engine.UpdateAtPath(doc, path, op)
	} else {
		updated, err = engine.Update(doc, op)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !showDiff {
		return writeValue(out, updated, format)
	}

	var before, after bytes.Buffer
	if err := writeValue(&before, doc, format); err != nil {
		return err
	}
	if err := writeValue(&after, updated, format); err != nil {
		return err
	}

	colorize := false
	switch colorMode {
	case "always":
		colorize = true
	case "auto":
		colorize = isTerminal(out)
	case "never":
	default:
		return fmt.Errorf("invalid --color %q (expected auto, always or never)", colorMode)
	}
	return writeLineDiff(out, before.String(), after.String(), colorize)
}
