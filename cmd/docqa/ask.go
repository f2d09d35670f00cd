package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/docqa-backend/internal/app"
)

var askCmd = &cobra.Command{
	Use:   "ask [document-id] [question...]",
	Short: "Answer a question from one indexed document",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	docID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}
	question := strings.Join(args[1:], " ")
	return withApp(cmd, func(a *app.App) error {
		ans, err := a.DocQA().Answer(cmd.Context(), docID, question)
		if err != nil {
			return fmt.Errorf("answer failed: %w", err)
		}
		return printJSON(cmd, ans)
	})
}
