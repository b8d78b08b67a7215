package provider

import (
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/people/v1"
	"google.golang.org/api/tasks/v1"

	"github.com/rolohq/rolo/internal/model"
)

// Placeholder titles substituted when the provider omits them.
const (
	noTitle      = "No title"
	unnamedTask  = "Unnamed Task"
	allDayLayout = "2006-01-02"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// NormalizeEvent converts a raw calendar item into the internal shape.
// Returns ok=false for cancelled items and nil payloads; those are dropped
// from the normalized collection entirely.
//
// Defaulting table:
//
//	title        missing → "No title"
//	start/end    timed dateTime preferred; date-only treated as midnight UTC
//	end          missing → start
//	attendees    missing → empty list
func NormalizeEvent(item *calendar.Event) (model.CalendarEvent, bool) {
	if item == nil || item.Status == "cancelled" {
		return model.CalendarEvent{}, false
	}

	title := item.Summary
	if title == "" {
		title = noTitle
	}

	start := eventTime(item.Start)
	end := eventTime(item.End)
	if end.IsZero() {
		end = start
	}

	attendees := make([]string, 0, len(item.Attendees))
	for _, a := range item.Attendees {
		if a != nil && a.Email != "" {
			attendees = append(attendees, a.Email)
		}
	}

	return model.CalendarEvent{
		ID:          item.Id,
		Title:       title,
		Description: item.Description,
		Start:       start,
		End:         end,
		Location:    item.Location,
		Attendees:   attendees,
	}, true
}

// eventTime prefers a timed start/end over an all-day date. All-day dates
// are anchored at midnight UTC, so an all-day event spans midnight to
// midnight of the following day.
func eventTime(edt *calendar.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err == nil {
			return t
		}
	}
	if edt.Date != "" {
		t, err := time.Parse(allDayLayout, edt.Date)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// NormalizeTaskList converts a raw task list into the internal shape.
func NormalizeTaskList(item *tasks.TaskList) model.TaskList {
	return model.TaskList{ID: item.Id, Title: item.Title}
}

// NormalizeTask converts a raw task into the internal shape. The completed
// flag is derived from the status string; a URL embedded in the notes body
// is extracted for display.
func NormalizeTask(listID string, item *tasks.Task) model.Task {
	title := item.Title
	if title == "" {
		title = unnamedTask
	}

	status := item.Status
	if status == "" {
		status = model.TaskStatusNeedsAction
	}

	var due *time.Time
	if item.Due != "" {
		if t, err := time.Parse(time.RFC3339, item.Due); err == nil {
			due = &t
		}
	}

	return model.Task{
		ID:        item.Id,
		ListID:    listID,
		Title:     title,
		Notes:     item.Notes,
		Due:       due,
		Completed: status == model.TaskStatusCompleted,
		Status:    status,
		URL:       urlPattern.FindString(item.Notes),
	}
}

// NormalizeEmail converts a raw mail message into the internal shape.
// Headers are matched case-sensitively by name; the plain-text body is
// assembled by walking the MIME part tree depth-first and concatenating
// every text/plain leaf. Received time falls back to now when the provider
// supplies no internal date.
func NormalizeEmail(msg *gmail.Message, now func() time.Time) model.Email {
	var subject, from string
	var to []string
	if msg.Payload != nil {
		subject = headerValue(msg.Payload.Headers, "Subject")
		from = headerValue(msg.Payload.Headers, "From")
		to = splitRecipients(headerValue(msg.Payload.Headers, "To"))
	}

	received := now().UTC()
	if msg.InternalDate != 0 {
		received = time.UnixMilli(msg.InternalDate).UTC()
	}

	return model.Email{
		ID:         msg.Id,
		Subject:    subject,
		From:       from,
		To:         to,
		Body:       extractBody(msg.Payload),
		ReceivedAt: received,
	}
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && h.Name == name {
			return h.Value
		}
	}
	return ""
}

func splitRecipients(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// extractBody walks the part tree depth-first collecting decoded text/plain
// leaves. When the top-level payload carries a body directly (no parts),
// that body is decoded instead.
func extractBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if len(part.Parts) == 0 {
		if part.Body != nil && part.Body.Data != "" && (part.MimeType == "" || part.MimeType == "text/plain") {
			return decodeBody(part.Body.Data)
		}
		return ""
	}

	var b strings.Builder
	var walk func(p *gmail.MessagePart)
	walk = func(p *gmail.MessagePart) {
		if p == nil {
			return
		}
		if p.MimeType == "text/plain" && p.Body != nil && p.Body.Data != "" {
			b.WriteString(decodeBody(p.Body.Data))
		}
		for _, child := range p.Parts {
			walk(child)
		}
	}
	for _, child := range part.Parts {
		walk(child)
	}
	return b.String()
}

// decodeBody decodes the provider's URL-safe base64 body encoding, which
// arrives both padded and unpadded in practice.
func decodeBody(data string) string {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded)
	}
	return ""
}

// NormalizeContact converts a raw person into the internal shape, taking
// the first listed name, email, phone, and organization.
func NormalizeContact(p *people.Person) model.ProviderContact {
	c := model.ProviderContact{ResourceID: p.ResourceName}
	if len(p.Names) > 0 && p.Names[0] != nil {
		c.Name = p.Names[0].DisplayName
	}
	if len(p.EmailAddresses) > 0 && p.EmailAddresses[0] != nil {
		c.Email = p.EmailAddresses[0].Value
	}
	if len(p.PhoneNumbers) > 0 && p.PhoneNumbers[0] != nil {
		c.Phone = p.PhoneNumbers[0].Value
	}
	if len(p.Organizations) > 0 && p.Organizations[0] != nil {
		c.Company = p.Organizations[0].Name
	}
	return c
}
