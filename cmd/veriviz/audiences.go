// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/pdiddy/veriviz/pkg/types"
)

var audiencesCmd = &cobra.Command{
	Use:   "audiences",
	Short: "List the supported audiences",
	RunE: func(cmd *cobra.Command, args []string) error {
		all := types.Audiences()
		rows := make([][]string, len(all))
		for i, a := range all {
			rows[i] = []string{a.Key(), a.Label(), string(a)}
		}
		return markdown.NewMarkdown(cmd.OutOrStdout()).
			Table(markdown.TableSet{
				Header: []string{"Key", "Label", "Prompt value"},
				Rows:   rows,
			}).
			Build()
	},
}

func init() {
	rootCmd.AddCommand(audiencesCmd)
}
