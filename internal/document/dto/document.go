package dto

import docdomain "github.com/tgrozenski/agent-email/internal/document/domain"

type SaveDocumentRequest struct {
	DocName     string `json:"doc_name" binding:"required"`
	TextContent string `json:"text_content"`
	DocID       *uint  `json:"doc_id"`
}

type DocumentsResponse struct {
	Documents []docdomain.Document `json:"documents"`
	Offset    int                  `json:"offset"`
	Limit     int                  `json:"limit"`
}

type SearchResponse struct {
	Query   string                       `json:"query"`
	Results []docdomain.RetrievedContext `json:"results"`
}
