package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aigoflow/chef-gateway/internal/models"
	"github.com/aigoflow/chef-gateway/internal/services"
)

const errInvalidChatBody = "Invalid request body or empty messages"

// ChatProcessor is satisfied by *services.ChatService.
type ChatProcessor interface {
	Process(ctx context.Context, req services.ChatRequest, source string) *services.ChatResponse
}

type ChatHandler struct {
	chat ChatProcessor
}

func NewChatHandler(chat ChatProcessor) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /chat/query", h.handleQuery)
}

func (h *ChatHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Turns) == 0 {
		writeError(w, http.StatusBadRequest, errInvalidChatBody)
		return
	}

	resp := h.chat.Process(r.Context(), services.ChatRequest{
		TraceID: r.Header.Get("X-Trace-ID"),
		Request: req,
	}, "http")

	w.Header().Set("X-Request-ID", resp.ReqID)
	writeJSON(w, http.StatusOK, resp.Response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
