package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/docqa-backend/internal/app"
)

var rootCmd = &cobra.Command{
	Use:           "docqa",
	Short:         "PDF ingestion and question answering backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// withApp builds the application, runs fn and tears everything down.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), log)
	if err != nil {
		log.Sync()
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
