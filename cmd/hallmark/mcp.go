package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hallmark-app/hallmark/pkg/mcp"
)

func newMCPCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start Hallmark as an MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, logger, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			srv := mcp.New(ws.Prices, ws.Settings, ws.History, logger, version)
			logger.Info("mcp server started", "user", ws.User, "endpoints", ws.Provider.Endpoints())
			return srv.Run(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}
