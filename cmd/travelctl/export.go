package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newExportCmd(g *globals) *cobra.Command {
	var out, from, to string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write processed travelers to an Excel workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data []byte
				err  error
			)
			if g.addr != "" {
				client, closeFn, cerr := g.client()
				if cerr != nil {
					return cerr
				}
				defer closeFn()
				data, err = client.ExportTravelers(cmd.Context(), from, to)
			} else {
				fromT, ferr := parseDay(from)
				if ferr != nil {
					return ferr
				}
				toT, terr := parseDay(to)
				if terr != nil {
					return terr
				}
				app, _, aerr := g.app(cmd.Context())
				if aerr != nil {
					return aerr
				}
				defer app.Close()
				data, err = app.Exporter.TravelersXLSX(cmd.Context(), fromT, toT)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "travelers.xlsx", "output workbook")
	cmd.Flags().StringVar(&from, "from", "", "first capture day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last capture day, YYYY-MM-DD (default today)")
	return cmd
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	return &t, nil
}
