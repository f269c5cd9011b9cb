package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/faq"
	"github.com/Epistemic-Technology/vetrecords/models"
)

func newFAQsCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "faqs FILE.json",
		Short: "Answer the FAQ panel from a JSON list of categorized dates",
		Long: `Reads either a JSON array of categorized dates or an object with a
"categorized_dates" field (such as a saved extraction) and prints the FAQ
panel. No model is called. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			dates, err := parseDates(data)
			if err != nil {
				return err
			}
			faqs := extraction.DeriveFAQs(dates)

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(faqs)
			case "table":
				return writeTable(cmd.OutOrStdout(), faqs)
			default:
				return fmt.Errorf("--format must be json or table")
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json or table")
	return cmd
}

func parseDates(data []byte) ([]models.CategorizedDate, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var dates []models.CategorizedDate
		if err := json.Unmarshal(data, &dates); err != nil {
			return nil, fmt.Errorf("invalid categorized dates: %w", err)
		}
		return dates, nil
	}
	var wrapped struct {
		CategorizedDates []models.CategorizedDate `json:"categorized_dates"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid categorized dates: %w", err)
	}
	return wrapped.CategorizedDates, nil
}

func writeTable(w io.Writer, faqs models.FAQs) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUESTION\tDATE\tSOURCE")
	for _, rule := range faq.Rules() {
		entry, _ := faq.Lookup(faqs, rule.Key)
		date, source := "-", ""
		if entry.Date != nil {
			date = *entry.Date
		}
		if entry.Source != nil {
			source = *entry.Source
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rule.Question, date, source)
	}
	return tw.Flush()
}
