package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/rolohq/rolo/internal/match"
	"github.com/rolohq/rolo/internal/model"
	"github.com/rolohq/rolo/internal/storage"
)

const maxNoteBodySize = 10 << 20 // 10MB, PDF uploads are base64-encoded

type CreateNoteRequest struct {
	// Type is "text" (default) or "pdf". PDF content arrives base64-encoded
	// and is converted to plain text before storage.
	Type      string `json:"type"`
	Content   string `json:"content"`
	ContactID string `json:"contact_id"`
}

func handleCreateNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxNoteBodySize)
		defer r.Body.Close()

		var req CreateNoteRequest
		if err := decodeJSON(r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Content == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}

		content := req.Content
		if req.Type == "pdf" {
			text, err := extractPDFText(req.Content)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to extract pdf text: %v", err)
				return
			}
			content = text
		}

		if req.ContactID != "" {
			if _, err := deps.Store.GetContact(req.ContactID); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					httpError(w, http.StatusNotFound, "not_found", "contact not found")
					return
				}
				httpError(w, http.StatusInternalServerError, "api_error", "failed to check contact: %v", err)
				return
			}
		}

		note := model.Note{
			ID:        uuid.New().String(),
			Content:   content,
			ContactID: req.ContactID,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveNote(note); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save note: %v", err)
			return
		}

		// A note against a contact counts as activity on that contact.
		if note.ContactID != "" {
			if err := deps.Store.TouchContact(note.ContactID, note.CreatedAt); err != nil {
				deps.Logger.Warn("note saved but contact activity not updated", "contact_id", note.ContactID, "error", err)
			}
		}

		writeJSON(w, http.StatusCreated, note)
	}
}

// extractPDFText decodes a base64 PDF payload and concatenates the plain
// text of all pages.
func extractPDFText(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func handleListNotes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 500)
		offset := parseIntParam(r, "offset", 0, 0)

		notes, err := deps.Store.ListNotes(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list notes: %v", err)
			return
		}
		if notes == nil {
			notes = []model.Note{}
		}
		writeJSON(w, http.StatusOK, notes)
	}
}

func handleGetNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		note, err := deps.Store.GetNote(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get note: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, note)
	}
}

func handleDeleteNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := deps.Store.DeleteNote(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete note: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// handleNoteMatches scores the note against the current event and task
// snapshots and returns ranked candidates.
func handleNoteMatches(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		note, err := deps.Store.GetNote(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get note: %v", err)
			return
		}

		events, err := deps.Store.Events()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load events: %v", err)
			return
		}
		tasks, err := deps.Store.Tasks()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load tasks: %v", err)
			return
		}

		results := match.ForNote(note, events, tasks)
		if results == nil {
			results = []model.MatchResult{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleLinkNoteToEvent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID := chi.URLParam(r, "id")
		eventID := chi.URLParam(r, "eventID")

		err := deps.Store.LinkNoteToEvent(noteID, eventID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to link: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "linked", "note_id": noteID, "event_id": eventID})
	}
}

func handleLinkNoteToTask(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		noteID := chi.URLParam(r, "id")
		taskID := chi.URLParam(r, "taskID")

		err := deps.Store.LinkNoteToTask(noteID, taskID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to link: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "linked", "note_id": noteID, "task_id": taskID})
	}
}
