package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/docqa-backend/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			return a.Run(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
