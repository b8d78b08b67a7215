// Package api exposes the daemon's local HTTP surface: sync triggers,
// snapshot reads, CRM contact and note management, match and link
// operations, and the chat assistant passthrough. Everything except
// /health requires the shared bearer token.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rolohq/rolo/internal/assist"
	"github.com/rolohq/rolo/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// SyncRunner abstracts the sync orchestrator.
type SyncRunner interface {
	SyncResource(ctx context.Context, resource string) error
	SyncAll(ctx context.Context) map[string]error
}

// AssistClient abstracts the hosted chat completion API.
type AssistClient interface {
	Chat(ctx context.Context, req assist.ChatRequest) (string, error)
	ListModels(ctx context.Context) ([]assist.Model, error)
}

// Deps holds everything the HTTP handlers need.
type Deps struct {
	Store  *storage.Store
	Syncer SyncRunner
	Assist AssistClient // optional; chat endpoints return 503 when nil
	Model  string
	Token  string
	Logger *slog.Logger
}

// NewHandler builds the daemon's HTTP router.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/sync", handleSyncAll(deps))
		r.Post("/sync/{resource}", handleSyncResource(deps))
		r.Get("/sync/status", handleSyncStatus(deps))

		r.Get("/agenda", handleAgenda(deps))

		r.Get("/events", handleListEvents(deps))
		r.Post("/events/{id}/attendees/resolve", handleResolveAttendees(deps))

		r.Get("/tasks", handleListTasks(deps))
		r.Post("/tasks/{id}/suggestion", handleSuggestContact(deps))
		r.Put("/tasks/{id}/suggestion", handleSelectSuggestion(deps))

		r.Get("/emails", handleListEmails(deps))
		r.Get("/emails/{id}/matches", handleEmailMatches(deps))
		r.Post("/emails/{id}/link/note/{noteID}", handleLinkEmailToNote(deps))
		r.Post("/emails/{id}/link/event/{eventID}", handleLinkEmailToEvent(deps))

		r.Get("/provider-contacts", handleListProviderContacts(deps))

		r.Post("/notes", handleCreateNote(deps))
		r.Get("/notes", handleListNotes(deps))
		r.Get("/notes/{id}", handleGetNote(deps))
		r.Delete("/notes/{id}", handleDeleteNote(deps))
		r.Get("/notes/{id}/matches", handleNoteMatches(deps))
		r.Post("/notes/{id}/link/event/{eventID}", handleLinkNoteToEvent(deps))
		r.Post("/notes/{id}/link/task/{taskID}", handleLinkNoteToTask(deps))

		r.Post("/contacts", handleCreateContact(deps))
		r.Get("/contacts", handleListContacts(deps))
		r.Get("/contacts/{id}", handleGetContact(deps))
		r.Put("/contacts/{id}", handleUpdateContact(deps))
		r.Delete("/contacts/{id}", handleDeleteContact(deps))

		r.Post("/chat", handleChat(deps))
		r.Get("/models", handleModels(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleSyncAll(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := deps.Syncer.SyncAll(r.Context())

		out := make(map[string]string, len(results))
		failed := 0
		for resource, err := range results {
			if err != nil {
				out[resource] = err.Error()
				failed++
			} else {
				out[resource] = "ok"
			}
		}

		status := http.StatusOK
		if failed == len(results) && failed > 0 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, out)
	}
}

func handleSyncResource(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resource := chi.URLParam(r, "resource")
		if !validResource(resource) {
			httpError(w, http.StatusNotFound, "not_found", "unknown resource %q", resource)
			return
		}

		if err := deps.Syncer.SyncResource(r.Context(), resource); err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "sync failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "synced", "resource": resource})
	}
}

func handleSyncStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		times, err := deps.Store.SyncTimes()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read sync state: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, times)
	}
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Assist == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "chat assistant not configured")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req assist.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Messages) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "messages is required and must not be empty")
			return
		}
		if req.Model == "" {
			req.Model = deps.Model
		}

		reply, err := deps.Assist.Chat(r.Context(), req)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "upstream error: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	}
}

func handleModels(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Assist == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "chat assistant not configured")
			return
		}
		models, err := deps.Assist.ListModels(r.Context())
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to list models: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, models)
	}
}

func validResource(resource string) bool {
	for _, r := range storage.Resources {
		if r == resource {
			return true
		}
	}
	return false
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
