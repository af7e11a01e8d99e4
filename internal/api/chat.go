package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Roan1982/saraianew/internal/auth"
)

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "método no permitido")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeAssistantUse)
	if !ok {
		return
	}

	var req ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Mensaje requerido")
		return
	}

	now := h.service.Now()
	reply, err := h.assistant.Reply(r.Context(), claims.UserID, message, now)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.logger.Debug("chat reply", zap.Int64("user_id", claims.UserID), zap.String("intent", string(reply.Intent)))
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply.Text, Intent: string(reply.Intent), Timestamp: now})
}
