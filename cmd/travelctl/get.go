package main

import (
	"github.com/spf13/cobra"
)

func newGetCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show a processed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.addr != "" {
				client, closeFn, err := g.client()
				if err != nil {
					return err
				}
				defer closeFn()
				doc, err := client.GetDocument(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc)
			}

			app, _, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			doc, err := app.Documents.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
}
