// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/veriviz/internal/pipeline"
	"github.com/pdiddy/veriviz/internal/render"
)

var batchCmd = &cobra.Command{
	Use:   "batch <queries.yaml>",
	Short: "Run every query in a query file",
	Long: `Batch reads a YAML query file and runs each query on its own pipeline,
a few at a time. One report is written per successful query. A failed query
does not stop the others; the exit status is non-zero if any failed.

Query file format:

  audience: executive        # default for queries without one
  queries:
    - topic: global EV sales 2024
    - topic: coral reef bleaching
      audience: kids`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qf, err := pipeline.ReadQueryFile(args[0])
		if err != nil {
			return err
		}
		reqs, err := qf.Requests()
		if err != nil {
			return err
		}

		st, err := newStages(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		factory := func() *pipeline.Orchestrator {
			return st.orchestrator(cfg, logger)
		}

		var mu sync.Mutex
		out := cmd.OutOrStdout()
		handle := func(i int, res pipeline.BatchResult) {
			mu.Lock()
			defer mu.Unlock()
			prefix := fmt.Sprintf("[%d/%d] %s:", i+1, len(reqs), res.Request.Topic)
			if res.Err != nil {
				fmt.Fprintln(out, prefix, "failed:", res.Err)
				return
			}
			doc := &render.Document{
				RunID:       res.Outcome.RunID,
				Topic:       res.Request.Topic,
				Audience:    res.Request.Audience,
				GeneratedAt: time.Now(),
				Report:      res.Outcome.Report,
				Image:       res.Outcome.Image,
			}
			path, err := render.Save(cfg.Output.Dir, cfg.Output.Format, doc)
			if err != nil {
				fmt.Fprintln(out, prefix, "writing report:", err)
				return
			}
			fmt.Fprintln(out, prefix, path)
		}

		results := pipeline.Batch(cmd.Context(), factory, reqs,
			pipeline.WithConcurrency(cfg.Pipeline.Concurrency),
			pipeline.WithBatchLogger(logger),
			pipeline.WithResultHandler(handle),
		)

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		fmt.Fprintf(out, "%d of %d queries succeeded\n", len(results)-failed, len(results))
		if failed > 0 {
			return fmt.Errorf("%d queries failed", failed)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().Int("concurrency", 0, "queries run at once (default from config)")
	batchCmd.Flags().String("format", "", "report format: markdown, json, yaml, csl (default from config)")
	batchCmd.Flags().String("output-dir", "", "directory for reports and images (default from config)")

	bindFlag(batchCmd, "concurrency", "pipeline.concurrency")
	bindFlag(batchCmd, "format", "output.format")
	bindFlag(batchCmd, "output-dir", "output.dir")

	rootCmd.AddCommand(batchCmd)
}
