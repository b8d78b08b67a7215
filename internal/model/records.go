package model

import "time"

// Record kinds a match result can point at.
const (
	KindNote  = "note"
	KindEvent = "event"
	KindTask  = "task"
)

// Dimensions a match was scored on.
const (
	MatchedOnTitle    = "title"
	MatchedOnContent  = "content"
	MatchedOnTime     = "time"
	MatchedOnContacts = "contacts"
	MatchedOnManual   = "manual"
)

// Task status values as reported by the provider.
const (
	TaskStatusNeedsAction = "needsAction"
	TaskStatusCompleted   = "completed"
)

// CRM contact lifecycle states.
const (
	ContactStatusLead     = "lead"
	ContactStatusActive   = "active"
	ContactStatusInactive = "inactive"
)

// CreateContactOption is the sentinel appended to a task's contact
// suggestion list, offering to create a new CRM contact instead of
// picking a matched one.
const CreateContactOption = "Nuevo contacto"

// CalendarEvent is a provider calendar event normalized to internal shape.
// Identifiers are opaque strings scoped to the provider.
type CalendarEvent struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Location     string    `json:"location,omitempty"`
	Attendees    []string  `json:"attendees"`
	LinkedNoteID string    `json:"linked_note_id,omitempty"`
}

// TaskList is a provider task list; tasks are fetched per list.
type TaskList struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Task is a provider task normalized to internal shape.
type Task struct {
	ID           string             `json:"id"`
	ListID       string             `json:"list_id"`
	Title        string             `json:"title"`
	Notes        string             `json:"notes,omitempty"`
	Due          *time.Time         `json:"due,omitempty"`
	Completed    bool               `json:"completed"`
	Status       string             `json:"status"`
	URL          string             `json:"url,omitempty"`
	LinkedNoteID string             `json:"linked_note_id,omitempty"`
	Suggestion   *ContactSuggestion `json:"suggestion,omitempty"`
}

// ContactSuggestion is the contact-association hint attached to a task:
// candidate display names followed by the CreateContactOption sentinel,
// and at most one user-selected choice.
type ContactSuggestion struct {
	Options  []string `json:"options"`
	Selected string   `json:"selected,omitempty"`
}

// Email is a provider mail message normalized to internal shape. The body
// is plain text only; HTML parts are not carried over.
type Email struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	From          string    `json:"from"`
	To            []string  `json:"to"`
	Body          string    `json:"body"`
	ReceivedAt    time.Time `json:"received_at"`
	LinkedNoteID  string    `json:"linked_note_id,omitempty"`
	LinkedEventID string    `json:"linked_event_id,omitempty"`
}

// ProviderContact is an externally-synced contact. It has no local CRM id;
// importing one is an explicit user action that creates a Contact.
type ProviderContact struct {
	ResourceID string `json:"resource_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Company    string `json:"company,omitempty"`
}

// Contact is a local CRM contact.
type Contact struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Company      string    `json:"company,omitempty"`
	Status       string    `json:"status"`
	Tags         []string  `json:"tags"`
	LastActivity time.Time `json:"last_activity"`
}

// Note is a free-text CRM note, optionally owned by a contact. External
// records link *to* notes; a note carries no reverse index of its links.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	ContactID string    `json:"contact_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchResult is a scored, non-authoritative suggestion that a source
// record relates to the target. Never persisted; recomputed on demand.
type MatchResult struct {
	TargetKind string `json:"target_kind"`
	TargetID   string `json:"target_id"`
	Confidence int    `json:"confidence"`
	MatchedOn  string `json:"matched_on"`
}

// Classification is the coarse category and priority tier assigned to a
// calendar event or task for display.
type Classification struct {
	Type     string        `json:"type"`
	Priority string        `json:"priority"`
	StartsAt time.Time     `json:"starts_at"`
	Duration time.Duration `json:"duration"`
}
