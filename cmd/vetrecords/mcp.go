package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/Epistemic-Technology/vetrecords/internal/app"
	"github.com/Epistemic-Technology/vetrecords/server"
)

// stdout carries the protocol, so the logger must be configured for stderr or a file.
func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := opts.logger()
			if err != nil {
				return err
			}
			log.Info("Starting vetrecords MCP server")

			a, err := app.New(cmd.Context(), opts.cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.CreateServer(a.Service, a.ZoteroConfig(), log)
			if err := srv.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
				log.Error("Server failed: %v", err)
				return err
			}
			return nil
		},
	}
}
