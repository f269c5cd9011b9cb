package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/vetrecords/internal/app"
	"github.com/Epistemic-Technology/vetrecords/internal/config"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
)

type rootOptions struct {
	configFile string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "vetrecords",
		Short: "Extract vaccines, procedures and key dates from veterinary PDF records",
		Long: `vetrecords sends veterinary PDF records through a chain of hosted language
models, validates the structured output and answers a fixed FAQ panel
(last rabies vaccine, spay/neuter date, last dental cleaning, ...).

Configuration comes from vetrecords.yaml, VETRECORDS_* environment variables
and the conventional OPENAI_API_KEY / GEMINI_API_KEY variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ./vetrecords.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newExtractCmd(opts),
		newFAQsCmd(opts),
	)
	return root
}

func (o *rootOptions) logger() (logger.Logger, error) {
	log, err := app.NewLogger(o.cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
