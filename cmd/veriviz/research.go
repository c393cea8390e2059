// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/veriviz/internal/render"
	"github.com/pdiddy/veriviz/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research <topic...>",
	Short: "Research a topic and write a visual report",
	Long: `Research runs the full pipeline for one topic: grounded research,
structuring for the chosen audience, and an illustration. Progress is
printed to stderr. The report is written to the output directory, or to
stdout with --stdout.

The exit status is non-zero when research or structuring fails. A failed
illustration still produces a report.`,
	Example: `  veriviz research "global EV sales 2024" --audience executive
  veriviz research coral reef bleaching --audience kids --format json --stdout`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audienceFlag, _ := cmd.Flags().GetString("audience")
		toStdout, _ := cmd.Flags().GetBool("stdout")

		audience, err := types.ParseAudience(audienceFlag)
		if err != nil {
			return err
		}
		topic := strings.Join(args, " ")

		st, err := newStages(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		orch := st.orchestrator(cfg, logger)
		orch.Observe(progressPrinter(cmd.ErrOrStderr()))

		out, err := orch.Run(cmd.Context(), topic, audience)
		if err != nil {
			return err
		}

		doc := &render.Document{
			RunID:       out.RunID,
			Topic:       topic,
			Audience:    audience,
			GeneratedAt: time.Now(),
			Report:      out.Report,
			Image:       out.Image,
		}
		return emit(cmd, doc, toStdout)
	},
}

// progressPrinter prints one line per state change.
func progressPrinter(w io.Writer) func(types.Snapshot) {
	return func(s types.Snapshot) {
		switch s.State {
		case types.StateError:
			fmt.Fprintf(w, "[%3d%%] %s %s\n", s.State.Progress(), s.State.Message(), s.Error)
		case types.StateIdle:
		default:
			fmt.Fprintf(w, "[%3d%%] %s\n", s.State.Progress(), s.State.Message())
		}
	}
}

// emit writes doc to stdout or saves it under the configured output dir.
func emit(cmd *cobra.Command, doc *render.Document, toStdout bool) error {
	if toStdout {
		w, err := render.New(cfg.Output.Format, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		_, err = w.Write(doc)
		return err
	}

	path, err := render.Save(cfg.Output.Dir, cfg.Output.Format, doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	if doc.Image == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "No illustration was generated.")
	}
	return nil
}

func init() {
	researchCmd.Flags().StringP("audience", "a", "general", "audience: general, executive, academic, kids, teens")
	researchCmd.Flags().String("format", "", "report format: markdown, json, yaml, csl (default from config)")
	researchCmd.Flags().String("output-dir", "", "directory for reports and images (default from config)")
	researchCmd.Flags().String("reasoning", "", "research reasoning effort: none, low, medium, high")
	researchCmd.Flags().Bool("stdout", false, "write the report to stdout instead of a file")

	bindFlag(researchCmd, "format", "output.format")
	bindFlag(researchCmd, "output-dir", "output.dir")
	bindFlag(researchCmd, "reasoning", "research.reasoning")

	rootCmd.AddCommand(researchCmd)
}
