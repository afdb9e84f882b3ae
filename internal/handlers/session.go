package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/krishimitra/krishimitra-api/internal/models"
	"github.com/krishimitra/krishimitra-api/internal/service"
	"github.com/krishimitra/krishimitra-api/internal/util"
)

// SessionHandler is the handler for conversation-session requests.
type SessionHandler struct {
	Service *service.ConversationService
}

// NewSessionHandler is the constructor function for initializing a new SessionHandler.
func NewSessionHandler(conversationService *service.ConversationService) *SessionHandler {
	return &SessionHandler{Service: conversationService}
}

// SessionResponse is the response object for a session.
type SessionResponse struct {
	UID       string            `json:"uid"`
	Title     string            `json:"title"`
	Voice     bool              `json:"voice"`
	UpdatedAt time.Time         `json:"updated_at"`
	Messages  []MessageResponse `json:"messages,omitempty"`
}

// MessageResponse is the response object for a message.
type MessageResponse struct {
	Seq     int    `json:"seq"`
	Role    string `json:"role"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// CreateSession opens a new session for the authenticated device.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	deviceID, err := util.GetDeviceIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Voice bool `json:"voice"`
	}
	_ = c.ShouldBindJSON(&req)

	session, err := h.Service.CreateSession(deviceID, req.Voice)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(session, false)})
}

// ListSessions lists the device's sessions, most recently active first.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	deviceID, err := util.GetDeviceIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	sessions, err := h.Service.ListSessions(deviceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	responses := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, toSessionResponse(s, false))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": responses})
}

// GetSession returns one session with its messages.
func (h *SessionHandler) GetSession(c *gin.Context) {
	deviceID, err := util.GetDeviceIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	session, err := h.Service.GetSessionForDevice(deviceID, c.Param("session_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(session, true)})
}

// PostMessage runs one typed turn and returns the assistant reply.
func (h *SessionHandler) PostMessage(c *gin.Context) {
	deviceID, err := util.GetDeviceIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	reply, err := h.Service.SubmitText(c.Request.Context(), deviceID, c.Param("session_id"), req.Content)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": toMessageResponse(reply)})
}

func toSessionResponse(session *models.Session, withMessages bool) SessionResponse {
	resp := SessionResponse{
		UID:       session.UID,
		Title:     session.Title,
		Voice:     session.Voice,
		UpdatedAt: session.UpdatedAt,
	}
	if withMessages {
		for _, m := range session.Messages {
			resp.Messages = append(resp.Messages, toMessageResponse(m))
		}
	}
	return resp
}

func toMessageResponse(m *models.Message) MessageResponse {
	return MessageResponse{
		Seq:     m.Seq,
		Role:    string(m.Role),
		Content: m.Content,
		IsError: m.IsError,
	}
}
