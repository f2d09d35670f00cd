package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	"github.com/yungbote/docqa-backend/internal/http/response"
)

type AnswerService interface {
	Answer(ctx context.Context, documentID uuid.UUID, question string) (documents.Answer, error)
}

type AskHandler struct {
	answers AnswerService
}

func NewAskHandler(answers AnswerService) *AskHandler {
	return &AskHandler{answers: answers}
}

type askBody struct {
	DocumentID string `json:"documentId"`
	Question   string `json:"question"`
}

// POST /api/ask
func (h *AskHandler) Ask(c *gin.Context) {
	var body askBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	docID, err := uuid.Parse(strings.TrimSpace(body.DocumentID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_question", errors.New("question is required"))
		return
	}

	ans, err := h.answers.Answer(c.Request.Context(), docID, body.Question)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if ans.RecommendedPages == nil {
		ans.RecommendedPages = []int{}
	}
	response.RespondOK(c, ans)
}
