// Package classify assigns coarse display categories to normalized
// calendar events and tasks using keyword heuristics. The rule ladder is
// deliberately simple: it produces a best-effort UX hint, not a
// correctness-critical decision.
package classify

import (
	"strings"
	"time"

	"github.com/rolohq/rolo/internal/model"
)

// Category labels produced by the rule ladder.
const (
	TypeCall        = "call"
	TypeReview      = "review"
	TypeAppointment = "Agenda de citas"
	TypeEvent       = "Evento"
	TypeTask        = "Tarea"
)

// Priority tiers. The keyword path never produces a low tier.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// taskDuration is the synthetic duration assigned to tasks so they can be
// laid out alongside timed events.
const taskDuration = 30 * time.Minute

// Event classifies a calendar event. Matching is a case-insensitive
// substring test against title and description; the first matching rule
// wins.
func Event(ev model.CalendarEvent) model.Classification {
	title := strings.ToLower(ev.Title)
	desc := strings.ToLower(ev.Description)

	typ := TypeEvent
	switch {
	case containsAny(title, "call", "chat") || containsAny(desc, "call", "chat"):
		typ = TypeCall
	case strings.Contains(title, "review") || strings.Contains(desc, "review"):
		typ = TypeReview
	case containsAny(title, "cita", "reunión", "meeting"):
		typ = TypeAppointment
	}

	return model.Classification{
		Type:     typ,
		Priority: priorityOf(title, desc),
		StartsAt: ev.Start,
		Duration: ev.End.Sub(ev.Start),
	}
}

// Task classifies a task. Tasks always get the task category; the
// comparable instant is the due date, or now when none is set.
func Task(t model.Task, now func() time.Time) model.Classification {
	startsAt := now().UTC()
	if t.Due != nil {
		startsAt = *t.Due
	}

	return model.Classification{
		Type:     TypeTask,
		Priority: priorityOf(strings.ToLower(t.Title), strings.ToLower(t.Notes)),
		StartsAt: startsAt,
		Duration: taskDuration,
	}
}

func priorityOf(title, desc string) string {
	if strings.Contains(title, "urgent") || strings.Contains(desc, "urgent") {
		return PriorityHigh
	}
	return PriorityMedium
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
