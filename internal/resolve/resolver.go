// Package resolve maps free-text fragments (attendee emails, task text)
// onto known contacts. Matching is substring-based, not tokenized; a
// contact named "Ana" will match the text "Anales". That false positive is
// an accepted limitation of the heuristic.
package resolve

import (
	"strings"

	"github.com/rolohq/rolo/internal/model"
)

// AttendeeMatch is the result of resolving one attendee email.
type AttendeeMatch struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	ContactID string `json:"contact_id,omitempty"`
	// Linked is true for a CRM contact match (authoritative, carries a
	// local id). False means the match came from the externally-synced
	// pool and needs an explicit import to become a CRM contact.
	Linked bool `json:"linked"`
}

// Attendee resolves an attendee email against the two candidate pools.
// Exact case-insensitive email equality only, with a fixed priority: a CRM
// match wins outright; an external match is returned as importable.
// Returns nil when nothing matches.
func Attendee(attendeeEmail string, crm []model.Contact, external []model.ProviderContact) *AttendeeMatch {
	needle := strings.ToLower(strings.TrimSpace(attendeeEmail))
	if needle == "" {
		return nil
	}

	for _, c := range crm {
		if c.Email != "" && strings.ToLower(c.Email) == needle {
			return &AttendeeMatch{Name: c.Name, Email: c.Email, ContactID: c.ID, Linked: true}
		}
	}
	for _, c := range external {
		if c.Email != "" && strings.ToLower(c.Email) == needle {
			return &AttendeeMatch{Name: c.Name, Email: c.Email, Linked: false}
		}
	}
	return nil
}

// Text collects the display names of every contact whose name or email
// appears as a substring of the fragment, case-insensitively. Results are
// de-duplicated by display name in first-seen order: CRM contacts first,
// then external ones.
func Text(fragment string, crm []model.Contact, external []model.ProviderContact) []string {
	haystack := strings.ToLower(fragment)
	if strings.TrimSpace(haystack) == "" {
		return nil
	}

	var names []string
	seen := make(map[string]bool)

	add := func(name, email string) {
		if name == "" || seen[name] {
			return
		}
		if containsField(haystack, name) || containsField(haystack, email) {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, c := range crm {
		add(c.Name, c.Email)
	}
	for _, c := range external {
		add(c.Name, c.Email)
	}
	return names
}

func containsField(haystack, field string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(haystack, strings.ToLower(field))
}

// Suggest builds a task's contact-association suggestion from its title
// and body. The "create new contact" sentinel is appended after all
// matched names; when nothing matched at all the suggestion block is
// omitted entirely (nil).
func Suggest(t model.Task, crm []model.Contact, external []model.ProviderContact) *model.ContactSuggestion {
	names := Text(t.Title+" "+t.Notes, crm, external)
	if len(names) == 0 {
		return nil
	}
	return &model.ContactSuggestion{
		Options: append(names, model.CreateContactOption),
	}
}
