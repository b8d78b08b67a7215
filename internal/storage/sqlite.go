package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rolohq/rolo/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for CRM contacts and notes,
// the per-collection snapshot cache, and sync timestamps.
type Store struct {
	db *sql.DB

	// snapMu serializes snapshot load-modify-save sequences. Replace and
	// link operations both read a whole collection and write it back, so
	// the window between load and save must not interleave.
	snapMu sync.Mutex
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used
// by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "rolo.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

// AppliedMigrations returns the applied migration versions in order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Contacts ---

func (s *Store) SaveContact(c model.Contact) error {
	tags, err := marshalTags(c.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO contacts (id, name, email, phone, company, status, tags, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Company, c.Status, tags,
		c.LastActivity.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetContact(id string) (model.Contact, error) {
	row := s.db.QueryRow(`
		SELECT id, name, email, phone, company, status, tags, last_activity
		FROM contacts WHERE id = ?`, id)
	return scanContact(row)
}

func (s *Store) ListContacts(limit, offset int) ([]model.Contact, error) {
	rows, err := s.db.Query(`
		SELECT id, name, email, phone, company, status, tags, last_activity
		FROM contacts ORDER BY name ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// AllContacts returns the whole CRM contact snapshot for the resolver.
func (s *Store) AllContacts() ([]model.Contact, error) {
	return s.ListContacts(10000, 0)
}

func (s *Store) UpdateContact(c model.Contact) error {
	tags, err := marshalTags(c.Tags)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`
		UPDATE contacts SET name = ?, email = ?, phone = ?, company = ?, status = ?, tags = ?, last_activity = ?
		WHERE id = ?`,
		c.Name, c.Email, c.Phone, c.Company, c.Status, tags,
		c.LastActivity.UTC().Format(time.RFC3339), c.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteContact(id string) error {
	res, err := s.db.Exec(`DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// TouchContact advances a contact's last-activity timestamp.
func (s *Store) TouchContact(id string, at time.Time) error {
	res, err := s.db.Exec(`UPDATE contacts SET last_activity = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (model.Contact, error) {
	var c model.Contact
	var tags, lastActivity string
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Status, &tags, &lastActivity)
	if err == sql.ErrNoRows {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, err
	}
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return model.Contact{}, fmt.Errorf("parsing tags: %w", err)
	}
	if c.LastActivity, err = time.Parse(time.RFC3339, lastActivity); err != nil {
		return model.Contact{}, fmt.Errorf("parsing last_activity: %w", err)
	}
	return c, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshaling tags: %w", err)
	}
	return string(b), nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Notes ---

func (s *Store) SaveNote(n model.Note) error {
	_, err := s.db.Exec(`
		INSERT INTO notes (id, content, contact_id, created_at)
		VALUES (?, ?, ?, ?)`,
		n.ID, n.Content, n.ContactID, n.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetNote(id string) (model.Note, error) {
	var n model.Note
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, content, contact_id, created_at FROM notes WHERE id = ?`, id,
	).Scan(&n.ID, &n.Content, &n.ContactID, &createdAt)
	if err == sql.ErrNoRows {
		return model.Note{}, ErrNotFound
	}
	if err != nil {
		return model.Note{}, err
	}
	if n.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return model.Note{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return n, nil
}

func (s *Store) ListNotes(limit, offset int) ([]model.Note, error) {
	rows, err := s.db.Query(`
		SELECT id, content, contact_id, created_at
		FROM notes ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		var n model.Note
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Content, &n.ContactID, &createdAt); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// AllNotes returns the whole note collection for the matcher.
func (s *Store) AllNotes() ([]model.Note, error) {
	return s.ListNotes(10000, 0)
}

func (s *Store) DeleteNote(id string) error {
	res, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- Cache entries ---

// GetCacheEntry reads an opaque cache value by key. Returns ErrNotFound
// for a missing key.
func (s *Store) GetCacheEntry(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM cache_entries WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetCacheEntry upserts an opaque cache value by key.
func (s *Store) SetCacheEntry(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// --- Sync state ---

// StampSync records a successful full sync of one resource. Callers must
// only stamp after the fetch+normalize+persist step completed without
// error.
func (s *Store) StampSync(resource string, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_state (resource, synced_at) VALUES (?, ?)
		ON CONFLICT(resource) DO UPDATE SET synced_at = excluded.synced_at`,
		resource, at.UTC().Format(time.RFC3339),
	)
	return err
}

// SyncTimes returns the last successful sync timestamp per resource.
// Resources never synced are absent from the map.
func (s *Store) SyncTimes() (map[string]time.Time, error) {
	rows, err := s.db.Query("SELECT resource, synced_at FROM sync_state")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	times := make(map[string]time.Time)
	for rows.Next() {
		var resource, syncedAt string
		if err := rows.Scan(&resource, &syncedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, syncedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing synced_at for %s: %w", resource, err)
		}
		times[resource] = t
	}
	return times, rows.Err()
}
