package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rolohq/rolo/internal/match"
	"github.com/rolohq/rolo/internal/model"
	"github.com/rolohq/rolo/internal/resolve"
	"github.com/rolohq/rolo/internal/storage"
)

// Read-only views over the synced snapshots, plus the match, resolve and
// link operations that act on them.

func handleListEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := deps.Store.Events()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load events: %v", err)
			return
		}
		if events == nil {
			events = []model.CalendarEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func handleListTasks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks, err := deps.Store.Tasks()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load tasks: %v", err)
			return
		}
		if tasks == nil {
			tasks = []model.Task{}
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func handleListEmails(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emails, err := deps.Store.Emails()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load emails: %v", err)
			return
		}
		if emails == nil {
			emails = []model.Email{}
		}
		writeJSON(w, http.StatusOK, emails)
	}
}

func handleListProviderContacts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := deps.Store.ProviderContacts()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load provider contacts: %v", err)
			return
		}
		if contacts == nil {
			contacts = []model.ProviderContact{}
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

// handleResolveAttendees resolves every attendee of an event against the
// CRM and the external contact pool. Unmatched attendees are reported with
// a null match so the caller can offer to create a contact.
func handleResolveAttendees(deps Deps) http.HandlerFunc {
	type resolvedAttendee struct {
		Attendee string                 `json:"attendee"`
		Match    *resolve.AttendeeMatch `json:"match"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "id")

		events, err := deps.Store.Events()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load events: %v", err)
			return
		}

		var event *model.CalendarEvent
		for i := range events {
			if events[i].ID == eventID {
				event = &events[i]
				break
			}
		}
		if event == nil {
			httpError(w, http.StatusNotFound, "not_found", "event not found")
			return
		}

		crm, err := deps.Store.AllContacts()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load contacts: %v", err)
			return
		}
		external, err := deps.Store.ProviderContacts()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load provider contacts: %v", err)
			return
		}

		out := make([]resolvedAttendee, 0, len(event.Attendees))
		for _, attendee := range event.Attendees {
			out = append(out, resolvedAttendee{
				Attendee: attendee,
				Match:    resolve.Attendee(attendee, crm, external),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleSuggestContact computes and persists a task's contact-association
// suggestion from its title and body.
func handleSuggestContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")

		tasks, err := deps.Store.Tasks()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load tasks: %v", err)
			return
		}

		var task *model.Task
		for i := range tasks {
			if tasks[i].ID == taskID {
				task = &tasks[i]
				break
			}
		}
		if task == nil {
			httpError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}

		crm, err := deps.Store.AllContacts()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load contacts: %v", err)
			return
		}
		external, err := deps.Store.ProviderContacts()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load provider contacts: %v", err)
			return
		}

		sug := resolve.Suggest(*task, crm, external)
		if err := deps.Store.UpdateTaskSuggestion(taskID, sug); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save suggestion: %v", err)
			return
		}
		if sug == nil {
			writeJSON(w, http.StatusOK, map[string]any{"suggestion": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suggestion": sug})
	}
}

type selectSuggestionRequest struct {
	Selected string `json:"selected"`
}

// handleSelectSuggestion records the user's pick among a task's suggested
// contact options. The pick must be one of the stored options.
func handleSelectSuggestion(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "id")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req selectSuggestionRequest
		if err := decodeJSON(r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Selected == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "selected is required")
			return
		}

		tasks, err := deps.Store.Tasks()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load tasks: %v", err)
			return
		}

		var task *model.Task
		for i := range tasks {
			if tasks[i].ID == taskID {
				task = &tasks[i]
				break
			}
		}
		if task == nil {
			httpError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		if task.Suggestion == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "task has no suggestion")
			return
		}

		valid := false
		for _, opt := range task.Suggestion.Options {
			if opt == req.Selected {
				valid = true
				break
			}
		}
		if !valid {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%q is not among the suggested options", req.Selected)
			return
		}

		sug := &model.ContactSuggestion{
			Options:  task.Suggestion.Options,
			Selected: req.Selected,
		}
		if err := deps.Store.UpdateTaskSuggestion(taskID, sug); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save selection: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"suggestion": sug})
	}
}

// handleEmailMatches scores an email against the note collection and the
// event snapshot.
func handleEmailMatches(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emailID := chi.URLParam(r, "id")

		emails, err := deps.Store.Emails()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load emails: %v", err)
			return
		}

		var email *model.Email
		for i := range emails {
			if emails[i].ID == emailID {
				email = &emails[i]
				break
			}
		}
		if email == nil {
			httpError(w, http.StatusNotFound, "not_found", "email not found")
			return
		}

		notes, err := deps.Store.AllNotes()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load notes: %v", err)
			return
		}
		events, err := deps.Store.Events()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load events: %v", err)
			return
		}

		results := match.ForEmail(*email, notes, events)
		if results == nil {
			results = []model.MatchResult{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func handleLinkEmailToNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emailID := chi.URLParam(r, "id")
		noteID := chi.URLParam(r, "noteID")

		err := deps.Store.LinkEmailToNote(noteID, emailID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to link: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "linked", "email_id": emailID, "note_id": noteID})
	}
}

func handleLinkEmailToEvent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		emailID := chi.URLParam(r, "id")
		eventID := chi.URLParam(r, "eventID")

		err := deps.Store.LinkEmailToEvent(eventID, emailID)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to link: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "linked", "email_id": emailID, "event_id": eventID})
	}
}
