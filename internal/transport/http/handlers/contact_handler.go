package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/Fahry-a/Chat/internal/service"
	"github.com/Fahry-a/Chat/internal/transport/http/middleware"
	"github.com/Fahry-a/Chat/pkg/validator"
)

type ContactHandler struct {
	contactService *service.ContactService
}

func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	entries, err := h.contactService.List(r.Context(), userID, r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, "list contacts", err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *ContactHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		ContactUserID uuid.UUID `json:"contact_user_id"`
		ContactName   *string   `json:"contact_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.ContactUserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "contact_user_id is required")
		return
	}
	if input.ContactName != nil {
		if errs := validator.ValidateContactName(*input.ContactName); errs.HasErrors() {
			writeValidationErrors(w, errs)
			return
		}
	}

	contact, err := h.contactService.Add(r.Context(), userID, input.ContactUserID, input.ContactName)
	if err != nil {
		writeServiceError(w, "add contact", err)
		return
	}

	writeJSON(w, http.StatusCreated, contact)
}
