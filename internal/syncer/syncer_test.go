package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rolohq/rolo/internal/model"
	"github.com/rolohq/rolo/internal/storage"
)

var errFetch = errors.New("provider unavailable")

type fakeSource struct {
	events    []model.CalendarEvent
	eventsErr error

	lists    []model.TaskList
	listsErr error

	tasksByList map[string][]model.Task
	tasksErr    map[string]error

	emails    []model.Email
	emailsErr error

	contacts    []model.ProviderContact
	contactsErr error
}

func (f *fakeSource) Events(ctx context.Context) ([]model.CalendarEvent, error) {
	return f.events, f.eventsErr
}

func (f *fakeSource) TaskLists(ctx context.Context) ([]model.TaskList, error) {
	return f.lists, f.listsErr
}

func (f *fakeSource) Tasks(ctx context.Context, listID string) ([]model.Task, error) {
	if err := f.tasksErr[listID]; err != nil {
		return nil, err
	}
	return f.tasksByList[listID], nil
}

func (f *fakeSource) Messages(ctx context.Context) ([]model.Email, error) {
	return f.emails, f.emailsErr
}

func (f *fakeSource) Contacts(ctx context.Context) ([]model.ProviderContact, error) {
	return f.contacts, f.contactsErr
}

type fakeStore struct {
	mu       sync.Mutex
	events   []model.CalendarEvent
	tasks    []model.Task
	emails   []model.Email
	contacts []model.ProviderContact
	stamps   map[string]time.Time

	replaceErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{stamps: make(map[string]time.Time)}
}

func (f *fakeStore) ReplaceEvents(events []model.CalendarEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.events = events
	return nil
}

func (f *fakeStore) ReplaceTasks(tasks []model.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.tasks = tasks
	return nil
}

func (f *fakeStore) ReplaceEmails(emails []model.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.emails = emails
	return nil
}

func (f *fakeStore) ReplaceProviderContacts(contacts []model.ProviderContact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.contacts = contacts
	return nil
}

func (f *fakeStore) StampSync(resource string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stamps[resource] = at
	return nil
}

func testSyncer(source *fakeSource, store *fakeStore) *Syncer {
	s := New(source, store)
	s.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestSyncCalendar(t *testing.T) {
	start := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	source := &fakeSource{events: []model.CalendarEvent{{ID: "e1", Title: "planning", Start: start, End: start}}}
	store := newFakeStore()

	if err := testSyncer(source, store).SyncCalendar(context.Background()); err != nil {
		t.Fatalf("SyncCalendar: %v", err)
	}
	if len(store.events) != 1 {
		t.Errorf("stored %d events, want 1", len(store.events))
	}
	if _, ok := store.stamps[storage.ResourceCalendar]; !ok {
		t.Error("calendar sync not stamped")
	}
}

func TestSyncCalendarFetchFailureLeavesTimestamp(t *testing.T) {
	source := &fakeSource{eventsErr: errFetch}
	store := newFakeStore()

	err := testSyncer(source, store).SyncCalendar(context.Background())
	if !errors.Is(err, errFetch) {
		t.Fatalf("err = %v, want wrapped errFetch", err)
	}
	if _, ok := store.stamps[storage.ResourceCalendar]; ok {
		t.Error("failed sync must not stamp a timestamp")
	}
	if store.events != nil {
		t.Error("failed sync must not replace the snapshot")
	}
}

func TestSyncCalendarPersistFailureLeavesTimestamp(t *testing.T) {
	source := &fakeSource{events: []model.CalendarEvent{{ID: "e1"}}}
	store := newFakeStore()
	store.replaceErr = errors.New("disk full")

	err := testSyncer(source, store).SyncCalendar(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := store.stamps[storage.ResourceCalendar]; ok {
		t.Error("failed persist must not stamp a timestamp")
	}
}

func TestSyncTasksAggregatesLists(t *testing.T) {
	source := &fakeSource{
		lists: []model.TaskList{{ID: "l1", Title: "Work"}, {ID: "l2", Title: "Home"}},
		tasksByList: map[string][]model.Task{
			"l1": {{ID: "t1", ListID: "l1"}, {ID: "t2", ListID: "l1"}},
			"l2": {{ID: "t3", ListID: "l2"}},
		},
	}
	store := newFakeStore()

	if err := testSyncer(source, store).SyncTasks(context.Background()); err != nil {
		t.Fatalf("SyncTasks: %v", err)
	}
	if len(store.tasks) != 3 {
		t.Errorf("stored %d tasks, want 3", len(store.tasks))
	}
	// List order is preserved in the aggregate.
	if store.tasks[0].ID != "t1" || store.tasks[2].ID != "t3" {
		t.Errorf("unexpected task order: %+v", store.tasks)
	}
}

func TestSyncTasksSkipsFailedList(t *testing.T) {
	source := &fakeSource{
		lists: []model.TaskList{{ID: "l1", Title: "Work"}, {ID: "l2", Title: "Broken"}},
		tasksByList: map[string][]model.Task{
			"l1": {{ID: "t1", ListID: "l1"}},
		},
		tasksErr: map[string]error{"l2": errFetch},
	}
	store := newFakeStore()

	// A single list failing is skipped, the sync still succeeds and stamps.
	if err := testSyncer(source, store).SyncTasks(context.Background()); err != nil {
		t.Fatalf("SyncTasks: %v", err)
	}
	if len(store.tasks) != 1 || store.tasks[0].ID != "t1" {
		t.Errorf("stored tasks = %+v, want only t1", store.tasks)
	}
	if _, ok := store.stamps[storage.ResourceTasks]; !ok {
		t.Error("partial task sync must still stamp")
	}
}

func TestSyncTasksListOfListsFailureIsFatal(t *testing.T) {
	source := &fakeSource{listsErr: errFetch}
	store := newFakeStore()

	err := testSyncer(source, store).SyncTasks(context.Background())
	if !errors.Is(err, errFetch) {
		t.Fatalf("err = %v, want wrapped errFetch", err)
	}
	if _, ok := store.stamps[storage.ResourceTasks]; ok {
		t.Error("failed sync must not stamp")
	}
}

func TestSyncEmailAndContacts(t *testing.T) {
	source := &fakeSource{
		emails:   []model.Email{{ID: "m1", Subject: "hi"}},
		contacts: []model.ProviderContact{{ResourceID: "p1", Name: "Ana"}},
	}
	store := newFakeStore()
	s := testSyncer(source, store)

	if err := s.SyncEmail(context.Background()); err != nil {
		t.Fatalf("SyncEmail: %v", err)
	}
	if err := s.SyncContacts(context.Background()); err != nil {
		t.Fatalf("SyncContacts: %v", err)
	}
	if len(store.emails) != 1 || len(store.contacts) != 1 {
		t.Errorf("emails=%d contacts=%d, want 1 each", len(store.emails), len(store.contacts))
	}
}

func TestSyncResourceUnknown(t *testing.T) {
	s := testSyncer(&fakeSource{}, newFakeStore())
	if err := s.SyncResource(context.Background(), "bogus"); err == nil {
		t.Fatal("expected an error for unknown resource")
	}
}

func TestSyncAllIndependentFailures(t *testing.T) {
	source := &fakeSource{
		eventsErr: errFetch,
		lists:     []model.TaskList{{ID: "l1"}},
		tasksByList: map[string][]model.Task{
			"l1": {{ID: "t1", ListID: "l1"}},
		},
		emails:   []model.Email{{ID: "m1"}},
		contacts: []model.ProviderContact{{ResourceID: "p1"}},
	}
	store := newFakeStore()

	results := testSyncer(source, store).SyncAll(context.Background())
	if len(results) != len(storage.Resources) {
		t.Fatalf("got %d results, want %d", len(results), len(storage.Resources))
	}
	if results[storage.ResourceCalendar] == nil {
		t.Error("calendar should have failed")
	}
	for _, resource := range []string{storage.ResourceTasks, storage.ResourceEmail, storage.ResourceContacts} {
		if err := results[resource]; err != nil {
			t.Errorf("%s failed: %v", resource, err)
		}
	}

	// The calendar failure must not block the other resources' stamps.
	if _, ok := store.stamps[storage.ResourceCalendar]; ok {
		t.Error("calendar stamped despite failure")
	}
	if _, ok := store.stamps[storage.ResourceEmail]; !ok {
		t.Error("email not stamped")
	}
}

func TestSyncStampUsesInjectedClock(t *testing.T) {
	source := &fakeSource{emails: []model.Email{{ID: "m1"}}}
	store := newFakeStore()
	s := testSyncer(source, store)

	if err := s.SyncEmail(context.Background()); err != nil {
		t.Fatalf("SyncEmail: %v", err)
	}
	want := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if got := store.stamps[storage.ResourceEmail]; !got.Equal(want) {
		t.Errorf("stamp = %v, want %v", got, want)
	}
}

func TestSyncTasksNoLists(t *testing.T) {
	source := &fakeSource{}
	store := newFakeStore()

	if err := testSyncer(source, store).SyncTasks(context.Background()); err != nil {
		t.Fatalf("SyncTasks with zero lists: %v", err)
	}
	if len(store.tasks) != 0 {
		t.Errorf("stored %d tasks, want 0", len(store.tasks))
	}
	if _, ok := store.stamps[storage.ResourceTasks]; !ok {
		t.Error("empty task sync is still a successful sync")
	}
}

func TestSyncErrorMessageNamesResource(t *testing.T) {
	source := &fakeSource{contactsErr: errFetch}
	store := newFakeStore()

	err := testSyncer(source, store).SyncContacts(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	want := fmt.Sprintf("syncing contacts: %v", errFetch)
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}
