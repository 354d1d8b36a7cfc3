package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve extract_outline and rank_sections as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// stdout carries the protocol, so logs go to stderr.
		a, err := newApp(cmd, os.Stderr)
		if err != nil {
			return err
		}
		a.log.Info("serving MCP over stdio", "embed_provider", a.embedder.Name())
		return mcpserver.Serve(mcpserver.New(a.runner, version, a.log))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
