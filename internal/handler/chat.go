package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/stock-advisor/internal/apperror"
	"github.com/sakif/stock-advisor/internal/auth"
	"github.com/sakif/stock-advisor/internal/service"
)

// ChatHandler exposes the quota-limited agent endpoint.
type ChatHandler struct {
	chats  *service.ChatService
	logger *slog.Logger
}

func NewChatHandler(chats *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chats:  chats,
		logger: logger,
	}
}

// ChatRequest is the POST /chat body.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is one completed agent exchange.
type ChatResponse struct {
	Response         string    `json:"response"`
	Timestamp        time.Time `json:"timestamp"`
	UserID           string    `json:"user_id"`
	MessageID        string    `json:"message_id"`
	QueriesRemaining int       `json:"queries_remaining"`
}

// HandleChat sends a message to the advisor agent, charging one query
// against the caller's daily allowance.
//
// HTTP: POST /chat
// Auth: required
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	result, err := h.chats.Send(r.Context(), claims.SubjectID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:         result.Response,
		Timestamp:        result.Timestamp,
		UserID:           result.UserID,
		MessageID:        result.MessageID,
		QueriesRemaining: result.Remaining,
	})
}
