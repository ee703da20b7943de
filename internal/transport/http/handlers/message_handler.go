package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/domain"
	"github.com/Fahry-a/Chat/internal/service"
	"github.com/Fahry-a/Chat/internal/transport/http/middleware"
	"github.com/Fahry-a/Chat/pkg/validator"
)

// multipartOverhead is the room left for form fields around the file part.
const multipartOverhead = 1 << 20

type MessageHandler struct {
	messageService *service.MessageService
	maxUpload      int64
}

func NewMessageHandler(messageService *service.MessageService, maxUpload int64) *MessageHandler {
	return &MessageHandler{messageService: messageService, maxUpload: maxUpload}
}

// Send accepts either a JSON body or a multipart form carrying a file.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.SendInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
		if err := r.ParseMultipartForm(multipartOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "File size exceeds maximum allowed size")
				return
			}
			writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		if raw := r.FormValue("recipient_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid recipient ID")
				return
			}
			input.RecipientID = id
		}
		input.Body = r.FormValue("message")

		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer file.Close()
			input.File = &domain.Upload{Name: header.Filename, Size: header.Size, Content: file}
		case !errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid file part")
			return
		}
	} else {
		var body struct {
			RecipientID uuid.UUID `json:"recipient_id"`
			Message     string    `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
			return
		}
		input.RecipientID = body.RecipientID
		input.Body = body.Message
	}

	if errs := validator.ValidateMessage(input.Body); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Send(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// List returns a page of the conversation and marks the other side's
// messages as read.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convID, err := queryUUID(r, "conversation_id")
	if err != nil || convID == nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	limit := queryInt(r, "limit", service.DefaultPageSize)
	offset := queryInt(r, "offset", 0)

	resp, err := h.messageService.ListVisible(r.Context(), userID, *convID, limit, offset)
	if err != nil {
		writeServiceError(w, "list messages", err)
		return
	}

	if _, err := h.messageService.MarkRead(r.Context(), *convID, userID); err != nil {
		writeServiceError(w, "mark read", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		MessageID    uuid.UUID `json:"message_id"`
		DeleteForAll bool      `json:"delete_for_all"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.MessageID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "message_id is required")
		return
	}

	scope, err := h.messageService.SetDeleted(r.Context(), input.MessageID, userID, input.DeleteForAll)
	if err != nil {
		writeServiceError(w, "delete message", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]domain.DeleteScope{"scope": scope})
}
