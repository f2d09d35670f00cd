package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/docqa-backend/internal/app"
	"github.com/yungbote/docqa-backend/internal/modules/docqa"
)

var (
	ingestOwner    string
	ingestTitle    string
	ingestCategory string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-url]",
	Short: "Fetch, chunk, embed and index one PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "owner user id (required)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title")
	ingestCmd.Flags().StringVar(&ingestCategory, "category", "", "document category")
	_ = ingestCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	owner, err := uuid.Parse(ingestOwner)
	if err != nil {
		return fmt.Errorf("invalid --owner: %w", err)
	}
	return withApp(cmd, func(a *app.App) error {
		doc, err := a.DocQA().Ingest(cmd.Context(), docqa.IngestRequest{
			SourceURL:   args[0],
			Title:       ingestTitle,
			Category:    ingestCategory,
			OwnerUserID: owner,
		})
		if err != nil {
			if doc != nil {
				return fmt.Errorf("ingest failed for document %s: %w", doc.ID, err)
			}
			return fmt.Errorf("ingest failed: %w", err)
		}
		return printJSON(cmd, map[string]any{
			"documentId": doc.ID,
			"status":     doc.Status,
			"pages":      doc.PageCount,
			"chunks":     doc.ChunkCount,
		})
	})
}
