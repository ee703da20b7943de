package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/Fahry-a/Chat/internal/service"
	"github.com/Fahry-a/Chat/internal/storage"
	"github.com/Fahry-a/Chat/pkg/validator"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

type errorResponse struct {
	err     error
	status  int
	code    string
	message string
}

var knownErrors = []errorResponse{
	{service.ErrMissingRecipient, http.StatusBadRequest, "MISSING_RECIPIENT", "Recipient is required"},
	{service.ErrInvalidParticipants, http.StatusBadRequest, "INVALID_PARTICIPANTS", "Cannot start a conversation with yourself"},
	{service.ErrEmptyMessage, http.StatusBadRequest, "EMPTY_MESSAGE", "Message text or file is required"},
	{service.ErrMissingSince, http.StatusBadRequest, "MISSING_SINCE", "since is required"},
	{service.ErrNoSelfContact, http.StatusBadRequest, "NO_SELF_CONTACT", "Cannot add yourself as a contact"},
	{service.ErrUploadsDisabled, http.StatusBadRequest, "UPLOADS_DISABLED", "File uploads are not configured"},
	{storage.ErrFileTooLarge, http.StatusBadRequest, "FILE_TOO_LARGE", "File size exceeds maximum allowed size"},
	{storage.ErrFileTypeNotAllowed, http.StatusBadRequest, "FILE_TYPE_NOT_ALLOWED", "File type not allowed"},
	{storage.ErrEmptyFile, http.StatusBadRequest, "EMPTY_FILE", "File is empty"},

	{service.ErrInvalidCreds, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"},

	{service.ErrNotParticipant, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation"},
	{service.ErrDeleteForAllNotSender, http.StatusForbidden, "FORBIDDEN", "Only the sender can delete a message for everyone"},

	{service.ErrConversationNotFound, http.StatusNotFound, "NOT_FOUND", "Conversation not found"},
	{service.ErrMessageNotFound, http.StatusNotFound, "NOT_FOUND", "Message not found"},
	{service.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND", "User not found"},
	{service.ErrFileNotFound, http.StatusNotFound, "NOT_FOUND", "File not found"},

	{service.ErrDuplicateContact, http.StatusConflict, "DUPLICATE_CONTACT", "Already in contacts"},
	{service.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN", "Email is already registered"},
}

// writeServiceError maps a service error onto its HTTP response. Anything
// unrecognised is logged under op and reported as a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	for _, known := range knownErrors {
		if errors.Is(err, known.err) {
			writeError(w, known.status, known.code, known.message)
			return
		}
	}

	log.Error().Err(err).Str("op", op).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
}

// legacyTimeLayout is the timestamp form older clients send, always UTC.
const legacyTimeLayout = "2006-01-02 15:04:05"

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(legacyTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// queryUUID reads an optional uuid query parameter.
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}
