package provider

import (
	"encoding/base64"
	"reflect"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/people/v1"
	"google.golang.org/api/tasks/v1"

	"github.com/rolohq/rolo/internal/match"
	"github.com/rolohq/rolo/internal/model"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestNormalizeEvent_Timed(t *testing.T) {
	ev, ok := NormalizeEvent(&calendar.Event{
		Id:          "e1",
		Summary:     "Q2 planning",
		Description: "budget review",
		Location:    "Room 4",
		Status:      "confirmed",
		Start:       &calendar.EventDateTime{DateTime: "2026-03-12T10:00:00Z"},
		End:         &calendar.EventDateTime{DateTime: "2026-03-12T11:00:00Z"},
		Attendees: []*calendar.EventAttendee{
			{Email: "ana@example.com"},
			{Email: ""},
			nil,
			{Email: "bob@example.com"},
		},
	})
	if !ok {
		t.Fatal("event dropped")
	}
	if ev.Title != "Q2 planning" || ev.Location != "Room 4" {
		t.Errorf("got %+v", ev)
	}
	wantStart := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	if !ev.Start.Equal(wantStart) || !ev.End.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("times = %v..%v", ev.Start, ev.End)
	}
	if !reflect.DeepEqual(ev.Attendees, []string{"ana@example.com", "bob@example.com"}) {
		t.Errorf("attendees = %v; blank entries must be dropped", ev.Attendees)
	}
}

func TestNormalizeEvent_CancelledDropped(t *testing.T) {
	if _, ok := NormalizeEvent(&calendar.Event{Id: "e1", Status: "cancelled"}); ok {
		t.Error("cancelled event not dropped")
	}
	if _, ok := NormalizeEvent(nil); ok {
		t.Error("nil event not dropped")
	}
}

func TestNormalizeEvent_Defaults(t *testing.T) {
	ev, ok := NormalizeEvent(&calendar.Event{
		Id:    "e1",
		Start: &calendar.EventDateTime{DateTime: "2026-03-12T10:00:00Z"},
	})
	if !ok {
		t.Fatal("event dropped")
	}
	if ev.Title != "No title" {
		t.Errorf("title = %q, want %q", ev.Title, "No title")
	}
	// Missing end collapses to the start instant.
	if !ev.End.Equal(ev.Start) {
		t.Errorf("end = %v, want start %v", ev.End, ev.Start)
	}
	if ev.Attendees == nil || len(ev.Attendees) != 0 {
		t.Errorf("attendees = %#v, want empty non-nil list", ev.Attendees)
	}
}

func TestNormalizeEvent_AllDayMidnightUTC(t *testing.T) {
	ev, ok := NormalizeEvent(&calendar.Event{
		Id:    "e1",
		Start: &calendar.EventDateTime{Date: "2026-03-12"},
		End:   &calendar.EventDateTime{Date: "2026-03-13"},
	})
	if !ok {
		t.Fatal("event dropped")
	}
	if !ev.Start.Equal(time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v, want midnight UTC", ev.Start)
	}
	if !ev.End.Equal(time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v, want next midnight UTC", ev.End)
	}
}

func TestNormalizeEvent_TimedPreferredOverDate(t *testing.T) {
	ev, ok := NormalizeEvent(&calendar.Event{
		Id: "e1",
		Start: &calendar.EventDateTime{
			DateTime: "2026-03-12T10:00:00Z",
			Date:     "2026-03-12",
		},
	})
	if !ok {
		t.Fatal("event dropped")
	}
	if ev.Start.Hour() != 10 {
		t.Errorf("start = %v, timed value must win over all-day date", ev.Start)
	}
}

func TestNormalizeTask_Defaults(t *testing.T) {
	task := NormalizeTask("l1", &tasks.Task{Id: "t1"})
	if task.Title != "Unnamed Task" {
		t.Errorf("title = %q, want %q", task.Title, "Unnamed Task")
	}
	if task.Status != model.TaskStatusNeedsAction || task.Completed {
		t.Errorf("status = %q completed = %v", task.Status, task.Completed)
	}
	if task.Due != nil {
		t.Errorf("due = %v, want nil", task.Due)
	}
	if task.ListID != "l1" {
		t.Errorf("list_id = %q", task.ListID)
	}
}

func TestNormalizeTask_CompletedAndDue(t *testing.T) {
	task := NormalizeTask("l1", &tasks.Task{
		Id:     "t1",
		Title:  "send invoice",
		Status: "completed",
		Due:    "2026-03-15T00:00:00Z",
	})
	if !task.Completed {
		t.Error("completed flag not derived from status")
	}
	if task.Due == nil || !task.Due.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("due = %v", task.Due)
	}
}

func TestNormalizeTask_URLFromNotes(t *testing.T) {
	task := NormalizeTask("l1", &tasks.Task{
		Id:    "t1",
		Title: "review doc",
		Notes: "see https://example.com/doc before friday",
	})
	if task.URL != "https://example.com/doc" {
		t.Errorf("url = %q", task.URL)
	}

	task = NormalizeTask("l1", &tasks.Task{Id: "t2", Notes: "no links here"})
	if task.URL != "" {
		t.Errorf("url = %q, want empty", task.URL)
	}
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestNormalizeEmail_Headers(t *testing.T) {
	email := NormalizeEmail(&gmail.Message{
		Id:           "m1",
		InternalDate: time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC).UnixMilli(),
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "contract draft"},
				{Name: "From", Value: "ana@example.com"},
				{Name: "To", Value: "me@example.com, bob@example.com ,"},
			},
			Body: &gmail.MessagePartBody{Data: b64("please review")},
		},
	}, fixedNow)

	if email.Subject != "contract draft" || email.From != "ana@example.com" {
		t.Errorf("got %+v", email)
	}
	if !reflect.DeepEqual(email.To, []string{"me@example.com", "bob@example.com"}) {
		t.Errorf("to = %v", email.To)
	}
	if email.Body != "please review" {
		t.Errorf("body = %q", email.Body)
	}
	if !email.ReceivedAt.Equal(time.Date(2026, 3, 11, 15, 30, 0, 0, time.UTC)) {
		t.Errorf("received_at = %v", email.ReceivedAt)
	}
}

func TestNormalizeEmail_HeaderNamesCaseSensitive(t *testing.T) {
	email := NormalizeEmail(&gmail.Message{
		Id: "m1",
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "subject", Value: "lowercase"},
			},
		},
	}, fixedNow)
	if email.Subject != "" {
		t.Errorf("subject = %q; header names match case-sensitively", email.Subject)
	}
}

func TestNormalizeEmail_MultipartWalk(t *testing.T) {
	email := NormalizeEmail(&gmail.Message{
		Id: "m1",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("first part. ")}},
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<b>ignored</b>")}},
					},
				},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("second part.")}},
			},
		},
	}, fixedNow)

	if email.Body != "first part. second part." {
		t.Errorf("body = %q; text/plain leaves concatenate depth-first", email.Body)
	}
}

func TestNormalizeEmail_UnpaddedBase64(t *testing.T) {
	raw := base64.RawURLEncoding.EncodeToString([]byte("unpadded body"))
	email := NormalizeEmail(&gmail.Message{
		Id: "m1",
		Payload: &gmail.MessagePart{
			Body: &gmail.MessagePartBody{Data: raw},
		},
	}, fixedNow)
	if email.Body != "unpadded body" {
		t.Errorf("body = %q", email.Body)
	}
}

func TestNormalizeEmail_NoInternalDateFallsBackToNow(t *testing.T) {
	email := NormalizeEmail(&gmail.Message{Id: "m1"}, fixedNow)
	if !email.ReceivedAt.Equal(fixedNow()) {
		t.Errorf("received_at = %v, want now %v", email.ReceivedAt, fixedNow())
	}
}

func TestNormalizeContact_FirstOfEach(t *testing.T) {
	c := NormalizeContact(&people.Person{
		ResourceName: "people/p1",
		Names: []*people.Name{
			{DisplayName: "Ana García"},
			{DisplayName: "Second Name"},
		},
		EmailAddresses: []*people.EmailAddress{{Value: "ana@example.com"}},
		PhoneNumbers:   []*people.PhoneNumber{{Value: "+34 600 000 000"}},
		Organizations:  []*people.Organization{{Name: "Acme"}},
	})

	want := model.ProviderContact{
		ResourceID: "people/p1",
		Name:       "Ana García",
		Email:      "ana@example.com",
		Phone:      "+34 600 000 000",
		Company:    "Acme",
	}
	if c != want {
		t.Errorf("got %+v, want %+v", c, want)
	}
}

func TestNormalizeContact_Sparse(t *testing.T) {
	c := NormalizeContact(&people.Person{ResourceName: "people/p2"})
	if c.ResourceID != "people/p2" || c.Name != "" || c.Email != "" {
		t.Errorf("got %+v", c)
	}
}

func TestNormalizeTaskList(t *testing.T) {
	l := NormalizeTaskList(&tasks.TaskList{Id: "l1", Title: "Work"})
	if l.ID != "l1" || l.Title != "Work" {
		t.Errorf("got %+v", l)
	}
}

// A raw calendar payload flows through normalization into note matching:
// the cancelled item never reaches the matcher, and the surviving event
// matches a note that mentions its title.
func TestNormalizeEventsThenMatchNote(t *testing.T) {
	items := []*calendar.Event{
		{
			Id:      "1",
			Summary: "Standup",
			Status:  "confirmed",
			Start:   &calendar.EventDateTime{DateTime: "2024-01-01T09:00:00Z"},
			End:     &calendar.EventDateTime{DateTime: "2024-01-01T09:30:00Z"},
		},
		{Id: "2", Summary: "Cancelled", Status: "cancelled"},
	}

	var events []model.CalendarEvent
	for _, item := range items {
		if ev, ok := NormalizeEvent(item); ok {
			events = append(events, ev)
		}
	}
	if len(events) != 1 || events[0].ID != "1" || events[0].Title != "Standup" {
		t.Fatalf("normalized events = %+v, want only Standup", events)
	}

	note := model.Note{ID: "n1", Content: "Don't forget the Standup today"}
	results := match.ForNote(note, events, nil)
	if len(results) != 1 {
		t.Fatalf("got %d matches, want 1: %+v", len(results), results)
	}
	m := results[0]
	if m.TargetKind != model.KindEvent || m.TargetID != "1" {
		t.Errorf("matched %s %s, want event 1", m.TargetKind, m.TargetID)
	}
	if m.Confidence != 40 || m.MatchedOn != model.MatchedOnContent {
		t.Errorf("confidence = %d matched_on = %s, want 40/content", m.Confidence, m.MatchedOn)
	}
}
