package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/traveler-intake/internal/bootstrap"
	"github.com/joseph-ayodele/traveler-intake/internal/prefill"
	"github.com/joseph-ayodele/traveler-intake/internal/storage"
)

func newDeclareCmd(g *globals) *cobra.Command {
	var (
		passport, arrival, departure, answers string
		submit                                bool
	)
	cmd := &cobra.Command{
		Use:   "declare",
		Short: "Prefill a customs declaration from passenger JSON files",
		Long: `Merges the passenger JSON written for a passport and its boarding passes
(later documents win, missing values never clear earlier ones), overlays the
answers file and prints the declaration. With --submit the form is validated,
given a confirmation number and filed under FORMS_DIR.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := prefill.LoadSession(passport, arrival, departure)
			if err != nil {
				return err
			}
			d := session.Declaration()
			if answers != "" {
				raw, err := os.ReadFile(answers)
				if err != nil {
					return fmt.Errorf("read answers: %w", err)
				}
				var a prefill.Declaration
				if err := json.Unmarshal(raw, &a); err != nil {
					return fmt.Errorf("parse answers: %w", err)
				}
				d = d.Apply(a)
			}
			if !submit {
				return printJSON(cmd.OutOrStdout(), d)
			}

			cfg, err := g.config()
			if err != nil {
				return err
			}
			logger := g.logger(cfg)
			store, err := storage.NewLocalStore(cfg.Storage.Root, logger)
			if err != nil {
				return err
			}
			sub, err := prefill.NewSubmitter(cfg.Storage.FormsDir, bootstrap.Site(cfg), store, logger).Submit(cmd.Context(), d)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"confirmation_number": sub.ConfirmationNumber,
				"path":                sub.LocalPath,
				"key":                 sub.Key,
				"uri":                 sub.URI,
			})
		},
	}
	cmd.Flags().StringVar(&passport, "passport", "", "passport .passenger.json")
	cmd.Flags().StringVar(&arrival, "arrival", "", "arrival boarding pass .passenger.json")
	cmd.Flags().StringVar(&departure, "departure", "", "departure boarding pass .passenger.json")
	cmd.Flags().StringVar(&answers, "answers", "", "JSON file with the traveler's answers")
	cmd.Flags().BoolVar(&submit, "submit", false, "validate and file the declaration")
	return cmd
}
