package storage

import (
	"fmt"

	"github.com/rolohq/rolo/internal/model"
)

// Link operations record user-confirmed associations, distinct from
// computed candidate matches. A link is a single-valued reference stored
// on the target record in its snapshot: linking twice with different note
// ids simply moves the link, there is no history. Each operation holds
// snapMu for its whole load-modify-save sequence so it cannot interleave
// with a concurrent snapshot replace.

// LinkNoteToEvent sets the event's linked-note reference, replacing any
// previous one.
func (s *Store) LinkNoteToEvent(noteID, eventID string) error {
	if _, err := s.GetNote(noteID); err != nil {
		return fmt.Errorf("note %s: %w", noteID, err)
	}

	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	events, err := s.Events()
	if err != nil {
		return err
	}
	for i := range events {
		if events[i].ID == eventID {
			events[i].LinkedNoteID = noteID
			return s.saveSnapshot(ResourceCalendar, events)
		}
	}
	return fmt.Errorf("event %s: %w", eventID, ErrNotFound)
}

// LinkNoteToTask sets the task's linked-note reference, replacing any
// previous one.
func (s *Store) LinkNoteToTask(noteID, taskID string) error {
	if _, err := s.GetNote(noteID); err != nil {
		return fmt.Errorf("note %s: %w", noteID, err)
	}

	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	tasks, err := s.Tasks()
	if err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			tasks[i].LinkedNoteID = noteID
			return s.saveSnapshot(ResourceTasks, tasks)
		}
	}
	return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
}

// LinkEmailToNote sets the email's linked-note reference, replacing any
// previous one.
func (s *Store) LinkEmailToNote(noteID, emailID string) error {
	if _, err := s.GetNote(noteID); err != nil {
		return fmt.Errorf("note %s: %w", noteID, err)
	}

	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	return s.updateEmail(emailID, func(e *model.Email) {
		e.LinkedNoteID = noteID
	})
}

// LinkEmailToEvent sets the email's linked-event reference, replacing any
// previous one.
func (s *Store) LinkEmailToEvent(eventID, emailID string) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	events, err := s.Events()
	if err != nil {
		return err
	}
	found := false
	for _, ev := range events {
		if ev.ID == eventID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	return s.updateEmail(emailID, func(e *model.Email) {
		e.LinkedEventID = eventID
	})
}

func (s *Store) updateEmail(emailID string, apply func(*model.Email)) error {
	emails, err := s.Emails()
	if err != nil {
		return err
	}
	for i := range emails {
		if emails[i].ID == emailID {
			apply(&emails[i])
			return s.saveSnapshot(ResourceEmail, emails)
		}
	}
	return fmt.Errorf("email %s: %w", emailID, ErrNotFound)
}

// UpdateTaskSuggestion persists a task's contact-association suggestion,
// including the user's selected choice.
func (s *Store) UpdateTaskSuggestion(taskID string, sug *model.ContactSuggestion) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()

	tasks, err := s.Tasks()
	if err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			tasks[i].Suggestion = sug
			return s.saveSnapshot(ResourceTasks, tasks)
		}
	}
	return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
}
