package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docqa/internal/app"
	"docqa/internal/transport/http/response"
)

type DocumentHandler struct {
	documents *app.DocumentService
	maxBytes  int64
}

type IngestURLRequest struct {
	URL string `json:"url" binding:"required"`
}

func NewDocumentHandler(documents *app.DocumentService, maxBytes int64) *DocumentHandler {
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &DocumentHandler{documents: documents, maxBytes: maxBytes}
}

// Upload accepts a multipart form with "file" and ingests it.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > h.maxBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge,
			fmt.Sprintf("file too large (max %d bytes)", h.maxBytes))
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	result, err := h.documents.IngestFile(c.Request.Context(), app.IngestFileInput{
		Filename: file.Filename,
		Data:     data,
	})
	if err != nil {
		writeServiceError(c, err, "ingest failed")
		return
	}

	response.OK(c, result)
}

func (h *DocumentHandler) IngestURL(c *gin.Context) {
	var req IngestURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.documents.IngestURL(c.Request.Context(), req.URL)
	if err != nil {
		writeServiceError(c, err, "ingest url failed")
		return
	}

	response.OK(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.ListDocuments(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.documents.DeleteDocument(c.Request.Context(), filename); err != nil {
		writeServiceError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted": filename})
}

// Clear removes every document. It requires ?confirm=true.
func (h *DocumentHandler) Clear(c *gin.Context) {
	if c.Query("confirm") != "true" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "add confirm=true to delete all documents")
		return
	}

	n, err := h.documents.ClearDocuments(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "clear documents failed")
		return
	}
	response.OK(c, gin.H{"deleted_chunks": n})
}
