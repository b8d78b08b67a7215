package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rolohq/rolo/internal/model"
	"github.com/rolohq/rolo/internal/storage"
)

type ContactRequest struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Company string   `json:"company"`
	Status  string   `json:"status"`
	Tags    []string `json:"tags"`
}

func handleCreateContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ContactRequest
		if err := decodeJSON(r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		if req.Status == "" {
			req.Status = model.ContactStatusLead
		}
		if !validContactStatus(req.Status) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid status %q", req.Status)
			return
		}

		contact := model.Contact{
			ID:           uuid.New().String(),
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			Company:      req.Company,
			Status:       req.Status,
			Tags:         req.Tags,
			LastActivity: time.Now().UTC(),
		}
		if err := deps.Store.SaveContact(contact); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save contact: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, contact)
	}
}

func handleListContacts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 500)
		offset := parseIntParam(r, "offset", 0, 0)

		contacts, err := deps.Store.ListContacts(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list contacts: %v", err)
			return
		}
		if contacts == nil {
			contacts = []model.Contact{}
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

func handleGetContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contact, err := deps.Store.GetContact(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "contact not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get contact: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

func handleUpdateContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		existing, err := deps.Store.GetContact(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "contact not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get contact: %v", err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ContactRequest
		if err := decodeJSON(r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}
		if req.Status == "" {
			req.Status = existing.Status
		}
		if !validContactStatus(req.Status) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid status %q", req.Status)
			return
		}

		contact := model.Contact{
			ID:           id,
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			Company:      req.Company,
			Status:       req.Status,
			Tags:         req.Tags,
			LastActivity: time.Now().UTC(),
		}
		if err := deps.Store.UpdateContact(contact); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update contact: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, contact)
	}
}

func handleDeleteContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteContact(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "contact not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete contact: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func validContactStatus(status string) bool {
	switch status {
	case model.ContactStatusLead, model.ContactStatusActive, model.ContactStatusInactive:
		return true
	}
	return false
}
