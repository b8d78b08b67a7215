package match

import (
	"testing"
	"time"

	"github.com/rolohq/rolo/internal/model"
)

var eventStart = time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

func TestForNote_TitleHit(t *testing.T) {
	note := model.Note{ID: "n1", Content: "Notes from the Q2 planning session with the team"}
	events := []model.CalendarEvent{{ID: "e1", Title: "Q2 planning", Start: eventStart}}

	got := ForNote(note, events, nil)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].Confidence != 40 {
		t.Errorf("confidence = %d, want 40", got[0].Confidence)
	}
	if got[0].TargetKind != model.KindEvent || got[0].TargetID != "e1" {
		t.Errorf("target = %s/%s, want event/e1", got[0].TargetKind, got[0].TargetID)
	}
	if got[0].MatchedOn != model.MatchedOnContent {
		t.Errorf("matched_on = %q, want %q", got[0].MatchedOn, model.MatchedOnContent)
	}
}

func TestForNote_AdditiveScore(t *testing.T) {
	note := model.Note{ID: "n1", Content: "Q2 planning: review the budget deck beforehand"}
	events := []model.CalendarEvent{{
		ID:          "e1",
		Title:       "Q2 planning",
		Description: "review the budget deck",
		Start:       eventStart,
	}}

	got := ForNote(note, events, nil)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].Confidence != 70 {
		t.Errorf("confidence = %d, want 70 (40 title + 30 body)", got[0].Confidence)
	}
}

func TestForNote_BodyOnlyClearsThreshold(t *testing.T) {
	// A lone description hit scores 30, above the gate of 20.
	note := model.Note{ID: "n1", Content: "remember: review the budget deck"}
	events := []model.CalendarEvent{{ID: "e1", Title: "Offsite", Description: "review the budget deck", Start: eventStart}}

	got := ForNote(note, events, nil)
	if len(got) != 1 || got[0].Confidence != 30 {
		t.Fatalf("got %v, want one result at 30", got)
	}
}

func TestForNote_Tasks(t *testing.T) {
	note := model.Note{ID: "n1", Content: "Don't forget: send invoice to Acme, they asked twice"}
	tasks := []model.Task{
		{ID: "t1", Title: "send invoice to Acme", Notes: "they asked twice"},
		{ID: "t2", Title: "walk the dog"},
	}

	got := ForNote(note, nil, tasks)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].TargetKind != model.KindTask || got[0].TargetID != "t1" || got[0].Confidence != 70 {
		t.Errorf("got %+v, want task t1 at 70", got[0])
	}
}

func TestForNote_SortedByConfidenceDescending(t *testing.T) {
	note := model.Note{ID: "n1", Content: "Q2 planning and budget review notes"}
	events := []model.CalendarEvent{
		{ID: "e1", Title: "Q2 planning", Start: eventStart},                                  // 40
		{ID: "e2", Title: "Q2 planning", Description: "budget review", Start: eventStart},    // 70
		{ID: "e3", Title: "standup", Description: "unrelated", Start: eventStart},            // 0
	}

	got := ForNote(note, events, nil)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].TargetID != "e2" || got[1].TargetID != "e1" {
		t.Errorf("order = %s, %s; want e2, e1", got[0].TargetID, got[1].TargetID)
	}
}

func TestForNote_EmptyFieldsNeverMatch(t *testing.T) {
	// Empty titles and descriptions are substrings of everything; they must
	// not score.
	note := model.Note{ID: "n1", Content: "anything at all"}
	events := []model.CalendarEvent{{ID: "e1", Title: "", Description: "", Start: eventStart}}
	tasks := []model.Task{{ID: "t1", Title: "", Notes: ""}}

	if got := ForNote(note, events, tasks); len(got) != 0 {
		t.Errorf("got %v, want no results", got)
	}

	empty := model.Note{ID: "n2", Content: ""}
	if got := ForNote(empty, events, tasks); len(got) != 0 {
		t.Errorf("empty note matched: %v", got)
	}
}

func TestForNote_CaseSensitive(t *testing.T) {
	note := model.Note{ID: "n1", Content: "notes about q2 planning"}
	events := []model.CalendarEvent{{ID: "e1", Title: "Q2 Planning", Start: eventStart}}

	if got := ForNote(note, events, nil); len(got) != 0 {
		t.Errorf("got %v; matching is a literal substring test", got)
	}
}

func TestForEmail_NoteMatch(t *testing.T) {
	email := model.Email{ID: "m1", Subject: "contract draft", ReceivedAt: eventStart}
	notes := []model.Note{
		{ID: "n1", Content: "sent the contract draft for review"},
		{ID: "n2", Content: "groceries"},
	}

	got := ForEmail(email, notes, nil)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].TargetKind != model.KindNote || got[0].TargetID != "n1" || got[0].Confidence != 40 {
		t.Errorf("got %+v, want note n1 at 40", got[0])
	}
	if got[0].MatchedOn != model.MatchedOnContent {
		t.Errorf("matched_on = %q, want %q", got[0].MatchedOn, model.MatchedOnContent)
	}
}

func TestForEmail_EventTitleAndProximity(t *testing.T) {
	email := model.Email{ID: "m1", Subject: "Q2 planning", ReceivedAt: eventStart.Add(3 * time.Hour)}
	events := []model.CalendarEvent{{ID: "e1", Title: "Q2 planning session", Start: eventStart}}

	got := ForEmail(email, nil, events)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].Confidence != 50 {
		t.Errorf("confidence = %d, want 50 (30 title + 20 proximity)", got[0].Confidence)
	}
	if got[0].MatchedOn != model.MatchedOnTitle {
		t.Errorf("matched_on = %q, want %q", got[0].MatchedOn, model.MatchedOnTitle)
	}
}

func TestForEmail_ProximityAloneBelowThreshold(t *testing.T) {
	// Received near the event but no title hit: 20 does not clear the gate.
	email := model.Email{ID: "m1", Subject: "unrelated", ReceivedAt: eventStart.Add(time.Hour)}
	events := []model.CalendarEvent{{ID: "e1", Title: "Q2 planning", Start: eventStart}}

	if got := ForEmail(email, nil, events); len(got) != 0 {
		t.Errorf("got %v, want no results", got)
	}
}

func TestForEmail_TitleHitOutsideWindow(t *testing.T) {
	email := model.Email{ID: "m1", Subject: "Q2 planning", ReceivedAt: eventStart.Add(48 * time.Hour)}
	events := []model.CalendarEvent{{ID: "e1", Title: "Q2 planning session", Start: eventStart}}

	got := ForEmail(email, nil, events)
	if len(got) != 1 || got[0].Confidence != 30 {
		t.Fatalf("got %v, want one result at 30", got)
	}
}

func TestForEmail_WindowIsSymmetric(t *testing.T) {
	// Email received before the event also counts.
	email := model.Email{ID: "m1", Subject: "Q2 planning", ReceivedAt: eventStart.Add(-23 * time.Hour)}
	events := []model.CalendarEvent{{ID: "e1", Title: "Q2 planning session", Start: eventStart}}

	got := ForEmail(email, nil, events)
	if len(got) != 1 || got[0].Confidence != 50 {
		t.Fatalf("got %v, want one result at 50", got)
	}
}

func TestForEmail_EmptySubject(t *testing.T) {
	email := model.Email{ID: "m1", Subject: "", ReceivedAt: eventStart}
	notes := []model.Note{{ID: "n1", Content: "anything"}}
	events := []model.CalendarEvent{{ID: "e1", Title: "anything", Start: eventStart}}

	if got := ForEmail(email, notes, events); len(got) != 0 {
		t.Errorf("got %v, want no results for empty subject", got)
	}
}
