package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// isTerminal reports whether w is a terminal, for automatic coloring.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeLineDiff prints a line diff of before and after, one line per
// output line prefixed with "-", "+" or " ".
func writeLineDiff(w io.Writer, before, after string, colorize bool) error {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	del := color.New(color.FgRed)
	ins := color.New(color.FgGreen)
	same := color.New(color.Reset)
	if colorize {
		del.EnableColor()
		ins.EnableColor()
		same.EnableColor()
	} else {
		del.DisableColor()
		ins.DisableColor()
		same.DisableColor()
	}

	for _, d := range diffs {
		prefix, c := " ", same
		switch d.Type {
		case diffpatch.DiffDelete:
			prefix, c = "-", del
		case diffpatch.DiffInsert:
			prefix, c = "+", ins
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			if _, err := c.Fprint(w, prefix+strings.TrimSuffix(line, "\n")); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}
