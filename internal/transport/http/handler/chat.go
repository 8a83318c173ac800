package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storechat/internal/app"
	"storechat/internal/transport/http/middleware"
	"storechat/internal/transport/http/response"
)

type ChatHandler struct {
	sessions *app.SessionService
	messages *app.MessageService
}

type CreateSessionRequest struct {
	ProductID uint `json:"product_id"`
}

type SessionRequest struct {
	SessionID uint `json:"session_id" binding:"required,gt=0"`
}

type SendMessageRequest struct {
	SessionID    uint   `json:"session_id" binding:"required,gt=0"`
	Message      string `json:"message"`
	AttachmentID uint   `json:"attachment_id"`
}

func NewChatHandler(sessions *app.SessionService, messages *app.MessageService) *ChatHandler {
	return &ChatHandler{sessions: sessions, messages: messages}
}

// CreateSession answers 201 for a new session and 200 when the caller's
// session for the product already exists.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.sessions.CreateOrGet(c.Request.Context(), middleware.ActorFrom(c), req.ProductID)
	if err != nil {
		response.FromError(c, err, "create session failed")
		return
	}
	if result.Created {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) Claim(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	owner, err := h.sessions.Claim(c.Request.Context(), middleware.ActorFrom(c), req.SessionID)
	if err != nil {
		response.FromError(c, err, "claim session failed")
		return
	}
	response.OK(c, gin.H{"owner": owner})
}

func (h *ChatHandler) Participants(c *gin.Context) {
	sessionID, ok := queryUint(c, "session_id")
	if !ok {
		return
	}

	participants, err := h.sessions.ListParticipants(c.Request.Context(), middleware.ActorFrom(c), sessionID)
	if err != nil {
		response.FromError(c, err, "list participants failed")
		return
	}
	response.OK(c, participants)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	sessionID, ok := queryUint(c, "session_id")
	if !ok {
		return
	}
	afterID, ok := queryCursor(c, "after_id")
	if !ok {
		return
	}

	messages, err := h.messages.FetchSince(c.Request.Context(), middleware.ActorFrom(c), sessionID, afterID)
	if err != nil {
		response.FromError(c, err, "fetch messages failed")
		return
	}
	response.OK(c, messages)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), middleware.ActorFrom(c), app.SendMessageInput{
		SessionID:    req.SessionID,
		Text:         req.Message,
		AttachmentID: req.AttachmentID,
	})
	if err != nil {
		response.FromError(c, err, "send message failed")
		return
	}
	response.OK(c, gin.H{"id": msg.ID})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	lastID, err := h.messages.MarkRead(c.Request.Context(), middleware.ActorFrom(c), req.SessionID)
	if err != nil {
		response.FromError(c, err, "mark read failed")
		return
	}
	response.OK(c, gin.H{"ok": true, "last_read_id": lastID})
}

func queryUint(c *gin.Context, key string) (uint, bool) {
	raw := c.Query(key)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid "+key)
		return 0, false
	}
	return uint(parsed), true
}

// queryCursor reads an optional message cursor. Missing or 0 means from the
// start.
func queryCursor(c *gin.Context, key string) (uint, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid "+key)
		return 0, false
	}
	return uint(parsed), true
}
