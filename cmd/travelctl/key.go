package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/bootstrap"
	"github.com/joseph-ayodele/traveler-intake/internal/storage"
)

func newKeyCmd(g *globals) *cobra.Command {
	var date, subtype string
	cmd := &cobra.Command{
		Use:   "key passport|boarding-pass",
		Short: "Print the storage key a capture would be filed under",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			dt, ok := constants.CanonicalizeDocumentType(args[0])
			if !ok {
				return fmt.Errorf("unknown document type %q", args[0])
			}
			st, ok := constants.CanonicalizeSubtype(subtype)
			if !ok || !constants.ValidSubtype(dt, st) {
				return fmt.Errorf("subtype %q is not valid for %s", subtype, dt)
			}
			keys := storage.NewKeyBuilder(cfg.Storage.BucketRoot, bootstrap.Site(cfg))
			fmt.Fprintln(cmd.OutOrStdout(), keys.ImageKey(date, dt, st, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "YYYYMMDD folder (default today)")
	cmd.Flags().StringVar(&subtype, "subtype", "", "main, arrival or departure")
	return cmd
}
