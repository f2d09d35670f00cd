package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/docqa-backend/internal/domain/documents"
	httpMW "github.com/yungbote/docqa-backend/internal/http/middleware"
	"github.com/yungbote/docqa-backend/internal/http/response"
	"github.com/yungbote/docqa-backend/internal/modules/docqa"
	"github.com/yungbote/docqa-backend/internal/platform/apierr"
)

type DocumentService interface {
	Ingest(ctx context.Context, req docqa.IngestRequest) (*documents.Document, error)
	Reingest(ctx context.Context, documentID uuid.UUID) (*documents.Document, error)
	Get(ctx context.Context, documentID uuid.UUID) (*documents.Document, error)
	Delete(ctx context.Context, documentID uuid.UUID) error
	ListByCompany(ctx context.Context, companyID uuid.UUID, limit int) ([]*documents.Document, error)
}

type DocumentHandler struct {
	docs DocumentService
}

func NewDocumentHandler(docs DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

type ingestBody struct {
	SourceURL   string `json:"sourceUrl"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	OwnerUserID string `json:"ownerUserId"`
}

type ingestReply struct {
	DocumentID string             `json:"documentId,omitempty"`
	Status     documents.Status   `json:"status"`
	Error      *response.APIError `json:"error,omitempty"`
}

// POST /api/documents/ingest
func (h *DocumentHandler) Ingest(c *gin.Context) {
	var body ingestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	owner, err := resolveOwnerParam(c, body.OwnerUserID)
	if err != nil {
		response.Fail(c, err)
		return
	}

	doc, err := h.docs.Ingest(c.Request.Context(), docqa.IngestRequest{
		SourceURL:   body.SourceURL,
		Title:       body.Title,
		Category:    body.Category,
		OwnerUserID: owner,
	})
	if err != nil {
		if doc == nil {
			response.Fail(c, err)
			return
		}
		status, code := response.StatusAndCode(err)
		_ = c.Error(err)
		c.JSON(status, ingestReply{
			DocumentID: doc.ID.String(),
			Status:     documents.StatusFailed,
			Error:      &response.APIError{Message: err.Error(), Code: code},
		})
		return
	}
	response.RespondOK(c, ingestReply{DocumentID: doc.ID.String(), Status: doc.Status})
}

// POST /api/documents/:id/reingest
func (h *DocumentHandler) Reingest(c *gin.Context) {
	id, ok := documentIDParam(c)
	if !ok {
		return
	}
	doc, err := h.docs.Reingest(c.Request.Context(), id)
	if err != nil {
		if doc == nil || documents.IsKind(err, documents.KindNotFound) {
			response.Fail(c, err)
			return
		}
		status, code := response.StatusAndCode(err)
		_ = c.Error(err)
		c.JSON(status, ingestReply{
			DocumentID: doc.ID.String(),
			Status:     documents.StatusFailed,
			Error:      &response.APIError{Message: err.Error(), Code: code},
		})
		return
	}
	response.RespondOK(c, ingestReply{DocumentID: doc.ID.String(), Status: doc.Status})
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := documentIDParam(c)
	if !ok {
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := documentIDParam(c)
	if !ok {
		return
	}
	if err := h.docs.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/companies/:id/documents?limit=N
func (h *DocumentHandler) ListByCompany(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_company_id", err)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be between 1 and 500"))
			return
		}
		limit = n
	}
	docs, err := h.docs.ListByCompany(c.Request.Context(), companyID, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}

func documentIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// resolveOwnerParam parses the body owner and, with bearer auth on, makes
// sure it is the authenticated user.
func resolveOwnerParam(c *gin.Context, raw string) (uuid.UUID, error) {
	acting := httpMW.ActingUser(c)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if acting != uuid.Nil {
			return acting, nil
		}
		return uuid.Nil, documents.InvalidOwnerError("ingest", errors.New("ownerUserId is required"))
	}
	owner, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, documents.InvalidOwnerError("ingest", err)
	}
	if acting != uuid.Nil && acting != owner {
		return uuid.Nil, apierr.New(http.StatusForbidden, "owner_mismatch", errors.New("ownerUserId does not match the authenticated user"))
	}
	return owner, nil
}
