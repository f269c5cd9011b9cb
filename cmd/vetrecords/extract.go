package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/vetrecords/internal/app"
	"github.com/Epistemic-Technology/vetrecords/internal/export"
	"github.com/Epistemic-Technology/vetrecords/internal/llm"
	"github.com/Epistemic-Technology/vetrecords/internal/operations"
)

type extractOptions struct {
	urls       []string
	zoteroIDs  []string
	schemaMode string
	inputMode  string
	models     []string
	xlsxPath   string
}

func newExtractCmd(opts *rootOptions) *cobra.Command {
	eo := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract [FILE.pdf...]",
		Short: "Extract one or more records and print the merged result as JSON",
		Example: `  vetrecords extract rex-2022.pdf rex-2023.pdf
  vetrecords extract --url https://clinic.example/records/rex.pdf --xlsx rex.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := eo.sources(args)
			if len(sources) == 0 {
				return fmt.Errorf("give at least one FILE, --url or --zotero")
			}
			cfg := opts.cfg
			if err := eo.validate(); err != nil {
				return err
			}
			if eo.schemaMode != "" {
				cfg.LLM.SchemaMode = eo.schemaMode
			}
			if eo.inputMode != "" {
				cfg.LLM.InputMode = eo.inputMode
			}
			if len(eo.models) > 0 {
				cfg.LLM.Models = eo.models
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := opts.logger()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := operations.ExtractSources(cmd.Context(), a.Service, a.ZoteroConfig(), sources, log)
			if err != nil {
				return err
			}

			if eo.xlsxPath != "" {
				buf, err := export.WriteWorkbook(result)
				if err != nil {
					return err
				}
				if err := os.WriteFile(eo.xlsxPath, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", eo.xlsxPath, err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&eo.urls, "url", nil, "record URL (repeatable)")
	f.StringArrayVar(&eo.zoteroIDs, "zotero", nil, "Zotero attachment key (repeatable)")
	f.StringVar(&eo.schemaMode, "schema-mode", "", "strict or lenient (overrides llm.schema_mode)")
	f.StringVar(&eo.inputMode, "input-mode", "", "text or file (overrides llm.input_mode)")
	f.StringSliceVar(&eo.models, "models", nil, "provider:model chain (overrides llm.models)")
	f.StringVar(&eo.xlsxPath, "xlsx", "", "also write the result as an xlsx workbook")
	return cmd
}

// sources keeps the command-line order: files, then URLs, then Zotero keys.
func (eo *extractOptions) sources(files []string) []operations.Source {
	var out []operations.Source
	for _, p := range files {
		out = append(out, operations.Source{Path: p})
	}
	for _, u := range eo.urls {
		out = append(out, operations.Source{URL: u})
	}
	for _, z := range eo.zoteroIDs {
		out = append(out, operations.Source{ZoteroID: z})
	}
	return out
}

func (eo *extractOptions) validate() error {
	switch llm.SchemaMode(eo.schemaMode) {
	case "", llm.SchemaStrict, llm.SchemaLenient:
	default:
		return fmt.Errorf("--schema-mode must be strict or lenient")
	}
	switch llm.InputMode(eo.inputMode) {
	case "", llm.InputText, llm.InputFile:
	default:
		return fmt.Errorf("--input-mode must be text or file")
	}
	return nil
}
