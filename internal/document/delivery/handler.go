package delivery

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/tgrozenski/agent-email/internal/apperr"
	authdelivery "github.com/tgrozenski/agent-email/internal/auth/delivery"
	docdomain "github.com/tgrozenski/agent-email/internal/document/domain"
	docdto "github.com/tgrozenski/agent-email/internal/document/dto"
	"github.com/tgrozenski/agent-email/internal/document/usecase"

	"github.com/gin-gonic/gin"
)

// Retriever ranks the caller's documents against a query.
type Retriever interface {
	Retrieve(ctx context.Context, userID uint, query string, k int) ([]docdomain.RetrievedContext, error)
}

type DocumentHandler struct {
	documentUsecase usecase.DocumentUsecase
	retriever       Retriever
}

func NewDocumentHandler(documentUsecase usecase.DocumentUsecase, retriever Retriever) *DocumentHandler {
	return &DocumentHandler{
		documentUsecase: documentUsecase,
		retriever:       retriever,
	}
}

func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID, ok := authdelivery.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := usecase.DefaultPageLimit
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > usecase.MaxPageLimit {
		limit = usecase.MaxPageLimit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	docs, err := h.documentUsecase.List(c.Request.Context(), userID, offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, docdto.DocumentsResponse{
		Documents: docs,
		Offset:    offset,
		Limit:     limit,
	})
}

func (h *DocumentHandler) SaveDocument(c *gin.Context) {
	userID, ok := authdelivery.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req docdto.SaveDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.documentUsecase.Save(c.Request.Context(), userID, req.DocName, req.TextContent, req.DocID)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if req.DocID != nil {
		status = http.StatusOK
	}
	c.JSON(status, doc)
}

func (h *DocumentHandler) GetDocument(c *gin.Context) {
	userID, docID, ok := h.pathIDs(c)
	if !ok {
		return
	}

	doc, err := h.documentUsecase.Get(c.Request.Context(), userID, docID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userID, docID, ok := h.pathIDs(c)
	if !ok {
		return
	}

	if err := h.documentUsecase.Delete(c.Request.Context(), userID, docID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

// SearchDocuments previews the context a reply to the query would receive.
func (h *DocumentHandler) SearchDocuments(c *gin.Context) {
	userID, ok := authdelivery.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	k := 3
	if kStr := c.Query("k"); kStr != "" {
		if parsed, err := strconv.Atoi(kStr); err == nil && parsed >= 0 {
			k = parsed
		}
	}

	results, err := h.retriever.Retrieve(c.Request.Context(), userID, query, k)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docdto.SearchResponse{Query: query, Results: results})
}

func (h *DocumentHandler) pathIDs(c *gin.Context) (uint, uint, bool) {
	userID, ok := authdelivery.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, 0, false
	}

	docID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return 0, 0, false
	}
	return userID, uint(docID), true
}

func writeError(c *gin.Context, err error) {
	var validationErr *apperr.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.Is(err, docdomain.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case apperr.IsStorageError(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
