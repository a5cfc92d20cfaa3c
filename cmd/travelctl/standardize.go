package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/fields"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
)

func newStandardizeCmd(g *globals) *cobra.Command {
	var review bool
	cmd := &cobra.Command{
		Use:   "standardize passport|boarding-pass [file|-]",
		Short: "Extract normalized fields from OCR text",
		Long: `Reads OCR text from a file or stdin and prints the normalized field
mapping. Input may be plain text or an OCR dump of the form {"text": "..."}.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, ok := constants.CanonicalizeDocumentType(args[0])
			if !ok {
				return fmt.Errorf("unknown document type %q (want one of %s)", args[0], strings.Join(constants.DocumentTypes(), ", "))
			}
			text, err := readText(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			if g.addr != "" {
				client, closeFn, err := g.client()
				if err != nil {
					return err
				}
				defer closeFn()
				call := client.StandardizePassport
				if dt == constants.BoardingPass {
					call = client.StandardizeBoardingPass
				}
				out, err := call(cmd.Context(), text)
				if err != nil {
					return err
				}
				if !review {
					return printJSON(cmd.OutOrStdout(), out["fields"])
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			ext, err := pipeline.Standardize(dt, text)
			if err != nil {
				return err
			}
			if !review {
				return printJSON(cmd.OutOrStdout(), ext.Record)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"fields":       ext.Record,
				"needs_review": ext.NeedsReview(),
				"review":       ext.Flags,
			})
		},
	}
	cmd.Flags().BoolVar(&review, "review", false, "include the fields a traveler must confirm")
	return cmd
}

// readText loads OCR text from the named file, or stdin for none or "-". An
// OCR dump ({"text": ...}) is unwrapped.
func readText(stdin io.Reader, args []string) (string, error) {
	var (
		raw []byte
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var dump fields.RawText
		if json.Unmarshal(trimmed, &dump) == nil {
			return dump.Text, nil
		}
	}
	return string(raw), nil
}
