package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Resource names used for snapshot cache keys and sync timestamps. One
// cache entry holds one whole normalized collection; every sync replaces
// it in full.
const (
	ResourceCalendar = "calendar"
	ResourceTasks    = "tasks"
	ResourceEmail    = "email"
	ResourceContacts = "contacts"
)

// Resources lists every syncable resource kind.
var Resources = []string{ResourceCalendar, ResourceTasks, ResourceEmail, ResourceContacts}

func snapshotKey(resource string) string {
	return "snapshot:" + resource
}
