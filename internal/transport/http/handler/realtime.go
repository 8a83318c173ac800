package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storechat/internal/app"
	"storechat/internal/transport/http/middleware"
	"storechat/internal/transport/http/response"
)

type RealtimeHandler struct {
	realtime *app.RealtimeService
}

func NewRealtimeHandler(realtime *app.RealtimeService) *RealtimeHandler {
	return &RealtimeHandler{realtime: realtime}
}

func (h *RealtimeHandler) SetTyping(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.realtime.SetTyping(c.Request.Context(), middleware.ActorFrom(c), req.SessionID); err != nil {
		response.FromError(c, err, "set typing failed")
		return
	}
	response.OK(c, gin.H{"ok": true})
}

func (h *RealtimeHandler) GetTyping(c *gin.Context) {
	sessionID, ok := queryUint(c, "session_id")
	if !ok {
		return
	}
	others, err := h.realtime.OthersTyping(c.Request.Context(), middleware.ActorFrom(c), sessionID)
	if err != nil {
		response.FromError(c, err, "get typing failed")
		return
	}
	response.OK(c, gin.H{"others_typing": others})
}

func (h *RealtimeHandler) Ping(c *gin.Context) {
	if err := h.realtime.Ping(c.Request.Context(), middleware.ActorFrom(c)); err != nil {
		response.FromError(c, err, "presence ping failed")
		return
	}
	response.OK(c, gin.H{"online": true})
}

func (h *RealtimeHandler) GetPresence(c *gin.Context) {
	sessionID, ok := queryUint(c, "session_id")
	if !ok {
		return
	}
	online, err := h.realtime.PresenceLookup(c.Request.Context(), middleware.ActorFrom(c), sessionID, parseIDList(c.Query("user_ids")))
	if err != nil {
		response.FromError(c, err, "get presence failed")
		return
	}
	response.OK(c, online)
}

// parseIDList reads "1,2,3"; malformed entries are skipped.
func parseIDList(raw string) []uint {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || v == 0 {
			continue
		}
		ids = append(ids, uint(v))
	}
	return ids
}
