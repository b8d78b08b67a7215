// Package syncer coordinates full-replace synchronization of the four
// provider collections into the local snapshot store. Each resource syncs
// independently: a failure in one never blocks or rolls back the others,
// and a resource's sync timestamp only advances after its fetch, normalize
// and persist steps all succeeded.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rolohq/rolo/internal/model"
	"github.com/rolohq/rolo/internal/storage"
)

const listFetchConcurrency = 3

// Source abstracts the provider fetch layer.
type Source interface {
	Events(ctx context.Context) ([]model.CalendarEvent, error)
	TaskLists(ctx context.Context) ([]model.TaskList, error)
	Tasks(ctx context.Context, listID string) ([]model.Task, error)
	Messages(ctx context.Context) ([]model.Email, error)
	Contacts(ctx context.Context) ([]model.ProviderContact, error)
}

// Store abstracts snapshot persistence and sync bookkeeping.
type Store interface {
	ReplaceEvents([]model.CalendarEvent) error
	ReplaceTasks([]model.Task) error
	ReplaceEmails([]model.Email) error
	ReplaceProviderContacts([]model.ProviderContact) error
	StampSync(resource string, at time.Time) error
}

// Syncer drives per-resource syncs against a provider source.
type Syncer struct {
	source Source
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Syncer.
func New(source Source, store Store) *Syncer {
	return &Syncer{
		source: source,
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// SyncCalendar replaces the calendar snapshot. Any fetch failure rejects
// the whole call and leaves the previous snapshot and timestamp intact.
func (s *Syncer) SyncCalendar(ctx context.Context) error {
	events, err := s.source.Events(ctx)
	if err != nil {
		return fmt.Errorf("syncing calendar: %w", err)
	}
	if err := s.store.ReplaceEvents(events); err != nil {
		return fmt.Errorf("persisting calendar snapshot: %w", err)
	}
	if err := s.store.StampSync(storage.ResourceCalendar, s.now()); err != nil {
		return fmt.Errorf("stamping calendar sync: %w", err)
	}
	s.logger.Info("calendar synced", "events", len(events))
	return nil
}

// SyncTasks replaces the task snapshot via the two-level fetch: the list
// of task lists, then the tasks of each list. Lists are fetched
// concurrently and a failure on one list is logged and skipped; only a
// failure of the list-of-lists call rejects the sync.
func (s *Syncer) SyncTasks(ctx context.Context) error {
	lists, err := s.source.TaskLists(ctx)
	if err != nil {
		return fmt.Errorf("syncing tasks: %w", err)
	}

	// Indexed slots keep list order in the aggregated snapshot.
	slots := make([][]model.Task, len(lists))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(listFetchConcurrency)
	for i, list := range lists {
		g.Go(func() error {
			tasks, err := s.source.Tasks(ctx, list.ID)
			if err != nil {
				s.logger.Warn("skipping task list, fetch failed", "list_id", list.ID, "title", list.Title, "error", err)
				return nil
			}
			mu.Lock()
			slots[i] = tasks
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	var all []model.Task
	for _, tasks := range slots {
		all = append(all, tasks...)
	}

	if err := s.store.ReplaceTasks(all); err != nil {
		return fmt.Errorf("persisting task snapshot: %w", err)
	}
	if err := s.store.StampSync(storage.ResourceTasks, s.now()); err != nil {
		return fmt.Errorf("stamping task sync: %w", err)
	}
	s.logger.Info("tasks synced", "lists", len(lists), "tasks", len(all))
	return nil
}

// SyncEmail replaces the email snapshot.
func (s *Syncer) SyncEmail(ctx context.Context) error {
	emails, err := s.source.Messages(ctx)
	if err != nil {
		return fmt.Errorf("syncing email: %w", err)
	}
	if err := s.store.ReplaceEmails(emails); err != nil {
		return fmt.Errorf("persisting email snapshot: %w", err)
	}
	if err := s.store.StampSync(storage.ResourceEmail, s.now()); err != nil {
		return fmt.Errorf("stamping email sync: %w", err)
	}
	s.logger.Info("email synced", "messages", len(emails))
	return nil
}

// SyncContacts replaces the external contact snapshot.
func (s *Syncer) SyncContacts(ctx context.Context) error {
	contacts, err := s.source.Contacts(ctx)
	if err != nil {
		return fmt.Errorf("syncing contacts: %w", err)
	}
	if err := s.store.ReplaceProviderContacts(contacts); err != nil {
		return fmt.Errorf("persisting contact snapshot: %w", err)
	}
	if err := s.store.StampSync(storage.ResourceContacts, s.now()); err != nil {
		return fmt.Errorf("stamping contact sync: %w", err)
	}
	s.logger.Info("contacts synced", "contacts", len(contacts))
	return nil
}

// SyncResource syncs a single resource by name.
func (s *Syncer) SyncResource(ctx context.Context, resource string) error {
	switch resource {
	case storage.ResourceCalendar:
		return s.SyncCalendar(ctx)
	case storage.ResourceTasks:
		return s.SyncTasks(ctx)
	case storage.ResourceEmail:
		return s.SyncEmail(ctx)
	case storage.ResourceContacts:
		return s.SyncContacts(ctx)
	default:
		return fmt.Errorf("unknown resource %q", resource)
	}
}

// SyncAll runs the four resource syncs concurrently. The resources have no
// cross-dependency, so one failing does not cancel the others; the
// per-resource outcome is returned so callers can surface each failure
// separately.
func (s *Syncer) SyncAll(ctx context.Context) map[string]error {
	results := make(map[string]error, len(storage.Resources))
	var mu sync.Mutex

	var g errgroup.Group
	for _, resource := range storage.Resources {
		g.Go(func() error {
			err := s.SyncResource(ctx, resource)
			mu.Lock()
			results[resource] = err
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return results
}
