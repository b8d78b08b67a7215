package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rolohq/rolo/internal/model"
)

// Snapshot accessors. Each normalized collection is one cache entry,
// replaced wholesale on every sync. User-confirmed links recorded on the
// previous snapshot are carried forward by stable provider id, so a link
// survives a resync as long as the provider keeps the record's id.

func (s *Store) Events() ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	if err := s.loadSnapshot(ResourceCalendar, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ReplaceEvents swaps the calendar snapshot in full.
func (s *Store) ReplaceEvents(events []model.CalendarEvent) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	old, err := s.Events()
	if err != nil {
		return err
	}
	noteLinks := make(map[string]string, len(old))
	for _, ev := range old {
		if ev.LinkedNoteID != "" {
			noteLinks[ev.ID] = ev.LinkedNoteID
		}
	}
	for i := range events {
		if events[i].LinkedNoteID == "" {
			events[i].LinkedNoteID = noteLinks[events[i].ID]
		}
	}
	return s.saveSnapshot(ResourceCalendar, events)
}

func (s *Store) Tasks() ([]model.Task, error) {
	var tasks []model.Task
	if err := s.loadSnapshot(ResourceTasks, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ReplaceTasks swaps the task snapshot in full, carrying forward note
// links and suggestion selections by task id.
func (s *Store) ReplaceTasks(tasks []model.Task) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	old, err := s.Tasks()
	if err != nil {
		return err
	}
	prev := make(map[string]model.Task, len(old))
	for _, t := range old {
		prev[t.ID] = t
	}
	for i := range tasks {
		p, ok := prev[tasks[i].ID]
		if !ok {
			continue
		}
		if tasks[i].LinkedNoteID == "" {
			tasks[i].LinkedNoteID = p.LinkedNoteID
		}
		if tasks[i].Suggestion == nil {
			tasks[i].Suggestion = p.Suggestion
		}
	}
	return s.saveSnapshot(ResourceTasks, tasks)
}

func (s *Store) Emails() ([]model.Email, error) {
	var emails []model.Email
	if err := s.loadSnapshot(ResourceEmail, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// ReplaceEmails swaps the email snapshot in full, carrying forward note
// and event links by message id.
func (s *Store) ReplaceEmails(emails []model.Email) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	old, err := s.Emails()
	if err != nil {
		return err
	}
	prev := make(map[string]model.Email, len(old))
	for _, e := range old {
		prev[e.ID] = e
	}
	for i := range emails {
		p, ok := prev[emails[i].ID]
		if !ok {
			continue
		}
		if emails[i].LinkedNoteID == "" {
			emails[i].LinkedNoteID = p.LinkedNoteID
		}
		if emails[i].LinkedEventID == "" {
			emails[i].LinkedEventID = p.LinkedEventID
		}
	}
	return s.saveSnapshot(ResourceEmail, emails)
}

func (s *Store) ProviderContacts() ([]model.ProviderContact, error) {
	var contacts []model.ProviderContact
	if err := s.loadSnapshot(ResourceContacts, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// ReplaceProviderContacts swaps the external contact snapshot in full.
func (s *Store) ReplaceProviderContacts(contacts []model.ProviderContact) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	return s.saveSnapshot(ResourceContacts, contacts)
}

func (s *Store) loadSnapshot(resource string, v any) error {
	raw, err := s.GetCacheEntry(snapshotKey(resource))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("parsing %s snapshot: %w", resource, err)
	}
	return nil
}

func (s *Store) saveSnapshot(resource string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s snapshot: %w", resource, err)
	}
	return s.SetCacheEntry(snapshotKey(resource), string(data))
}
