package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/service"
	"github.com/Fahry-a/Chat/internal/transport/http/middleware"
)

type SyncHandler struct {
	syncService   *service.SyncService
	unreadService *service.UnreadService
}

func NewSyncHandler(syncService *service.SyncService, unreadService *service.UnreadService) *SyncHandler {
	return &SyncHandler{syncService: syncService, unreadService: unreadService}
}

func (h *SyncHandler) Poll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := parseTimestamp(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be an RFC 3339 timestamp")
			return
		}
		since = &t
	}

	convID, err := queryUUID(r, "conversation_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	result, err := h.syncService.Poll(r.Context(), userID, since, convID)
	if err != nil {
		writeServiceError(w, "poll", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *SyncHandler) Unread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	per, err := h.unreadService.ByConversation(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "unread by conversation", err)
		return
	}

	total := 0
	for _, n := range per {
		total += n
	}

	writeJSON(w, http.StatusOK, struct {
		UnreadCount   int               `json:"unread_count"`
		Conversations map[uuid.UUID]int `json:"conversations"`
	}{total, per})
}
