package handler

import (
	"github.com/gin-gonic/gin"

	"docqa/internal/app"
	"docqa/internal/transport/http/response"
)

type SystemHandler struct {
	documents *app.DocumentService
	checker   *app.SystemChecker
}

func NewSystemHandler(documents *app.DocumentService, checker *app.SystemChecker) *SystemHandler {
	return &SystemHandler{documents: documents, checker: checker}
}

func (h *SystemHandler) Stats(c *gin.Context) {
	stats, err := h.documents.Stats(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "get stats failed")
		return
	}
	response.OK(c, stats)
}

// Check runs one probe through every pipeline stage.
func (h *SystemHandler) Check(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())
	response.OK(c, gin.H{"ok": report.OK(), "checks": report})
}
