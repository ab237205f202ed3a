package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docqa/internal/pkg/jwtutil"
	"docqa/internal/transport/http/response"
)

// SessionHandler issues anonymous chat sessions. The token is the only
// credential; there are no user accounts.
type SessionHandler struct {
	secret     string
	expiration time.Duration
}

func NewSessionHandler(secret string, expiration time.Duration) *SessionHandler {
	return &SessionHandler{secret: secret, expiration: expiration}
}

func (h *SessionHandler) Create(c *gin.Context) {
	sessionID := uuid.NewString()
	token, err := jwtutil.GenerateToken(h.secret, h.expiration, sessionID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create session failed")
		return
	}

	response.OK(c, gin.H{
		"session_id": sessionID,
		"token":      token,
		"expires_at": time.Now().Add(h.expiration),
	})
}
