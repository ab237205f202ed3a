package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docqa/internal/app"
	"docqa/internal/transport/http/middleware"
	"docqa/internal/transport/http/response"
)

type ChatHandler struct {
	assistant *app.AssistantService
}

type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	Model     string `json:"model"`
	WebSearch *bool  `json:"web_search"`
	TopK      int    `json:"top_k" binding:"gte=0,lte=20"`
}

func NewChatHandler(assistant *app.AssistantService) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

func (h *ChatHandler) Models(c *gin.Context) {
	response.OK(c, h.assistant.Models())
}

func (h *ChatHandler) Ask(c *gin.Context) {
	sessionID, ok := getSessionIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.assistant.Ask(c.Request.Context(), req.input(sessionID))
	if err != nil {
		writeServiceError(c, err, "ask failed")
		return
	}

	response.OK(c, result)
}

// Stream answers over server-sent events: one data event per chunk, then a
// sources event and a done event.
func (h *ChatHandler) Stream(c *gin.Context) {
	sessionID, ok := getSessionIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeEvent := func(event, data string) error {
		var frame string
		if event != "" {
			frame = "event: " + event + "\n"
		}
		frame += "data: " + data + "\n\n"
		if _, err := c.Writer.Write([]byte(frame)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	result, err := h.assistant.StreamAsk(c.Request.Context(), req.input(sessionID), func(chunk string) error {
		return writeEvent("", sanitizeSSE(chunk))
	})
	if err != nil {
		_ = c.Error(err)
		_ = writeEvent("error", sanitizeSSE(err.Error()))
		return
	}

	sources, _ := json.Marshal(gin.H{"sources": result.Sources, "web_sources": result.WebSources})
	if err := writeEvent("sources", string(sources)); err != nil {
		return
	}
	done, _ := json.Marshal(gin.H{
		"model":           result.Model,
		"used_fallback":   result.UsedFallback,
		"used_web_search": result.UsedWebSearch,
	})
	_ = writeEvent("done", string(done))
}

func (h *ChatHandler) History(c *gin.Context) {
	sessionID, ok := getSessionIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	history, err := h.assistant.History(c.Request.Context(), sessionID, queryLimit(c, 50))
	if err != nil {
		writeServiceError(c, err, "get history failed")
		return
	}
	response.OK(c, history)
}

func (h *ChatHandler) Recent(c *gin.Context) {
	convs, err := h.assistant.RecentConversations(c.Request.Context(), queryLimit(c, 10))
	if err != nil {
		writeServiceError(c, err, "list conversations failed")
		return
	}
	response.OK(c, convs)
}

func (r AskRequest) input(sessionID string) app.AskInput {
	return app.AskInput{
		SessionID: sessionID,
		Question:  r.Question,
		Model:     r.Model,
		WebSearch: r.WebSearch,
		TopK:      r.TopK,
	}
}

func getSessionIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextSessionIDKey)
	if !exists {
		return "", false
	}
	sessionID, ok := v.(string)
	return sessionID, ok && sessionID != ""
}

func queryLimit(c *gin.Context, fallback int) int {
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
