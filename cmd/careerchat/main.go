// Command careerchat runs the career counselor as a web app, a terminal chat,
// a Telegram bot or an MCP tool server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "careerchat",
		Short: "Career counselor chat backed by a generative language model",
		Long: `careerchat keeps one model conversation per user session, primed with a
career counselor persona, and serves it over HTTP, the terminal, Telegram or MCP.

Configuration is read from the environment and an optional .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		chatCmd(),
		telegramCmd(),
		mcpCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
