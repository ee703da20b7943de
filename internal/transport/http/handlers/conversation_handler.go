package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/service"
	"github.com/Fahry-a/Chat/internal/transport/http/middleware"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
	messageService      *service.MessageService
}

func NewConversationHandler(conversationService *service.ConversationService, messageService *service.MessageService) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		messageService:      messageService,
	}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.conversationService.List(r.Context(), userID, r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	n, err := h.messageService.MarkRead(r.Context(), convID, userID)
	if err != nil {
		writeServiceError(w, "mark read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
