package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hanpama/hwptext"
	"github.com/hanpama/hwptext/internal/extract"
)

const previewWidth = 40

func newStrategiesCmd(v *viper.Viper, flags *rootFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies <file>",
		Short: "Compare the in-process decoders on an HWP file",
		Long: `Runs every in-process decoder against an HWP v5 file and prints how much
text each one recovered. The multi strategy picks the row with the most
characters.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(v, *flags, stderr)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			results := hwptext.Compare(cmd.Context(), args[0], hwptext.WithLogger(log), hwptext.WithTimeout(cfg.Timeout))
			return renderComparison(stdout, results)
		},
	}
}

func renderComparison(w io.Writer, results []hwptext.Comparison) error {
	best, _ := extract.Longest(results)

	table := tablewriter.NewWriter(w)
	table.Header("Strategy", "Chars", "Lines", "Status", "Preview")
	for _, r := range results {
		status := "ok"
		switch {
		case r.Err != nil:
			status = "error: " + r.Err.Error()
		case r.Text == "":
			status = "empty"
		case r.Strategy == best.Strategy:
			status = "selected"
		}
		row := []string{
			r.Strategy.String(),
			strconv.Itoa(extract.CharCount(r.Text)),
			strconv.Itoa(extract.LineCount(r.Text)),
			status,
			extract.Preview(r.Text, previewWidth),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
	}
	return table.Render()
}
