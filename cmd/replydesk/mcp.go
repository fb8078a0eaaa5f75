package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/internal/transport/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:          "mcp",
	Short:        "Serve operator tools over MCP stdio",
	Long:         `Runs a Model Context Protocol server on stdin/stdout so an MCP client can search knowledge, review escalations and resolve conversations.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// stdout carries the protocol.
		ctx, appCfg, flushLog := bootstrap(ctx, os.Stderr)
		defer flushLog()

		rt := newComponents(ctx, appCfg)
		defer rt.db.Close()

		s := mcp.NewServer(mcp.Deps{
			Store:      rt.store,
			Knowledge:  rt.knowledge,
			Resolver:   rt.orch,
			Summarizer: rt.summarizer,
		}, core.AppVersion)
		return mcp.ServeStdio(ctx, s, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
