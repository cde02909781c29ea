// Package store persists interned topologies and captured window placements in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/1broseidon/persistwin/internal/codec"
	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/topology"
	"github.com/1broseidon/persistwin/internal/window"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("store: closed")

const schema = `
CREATE TABLE IF NOT EXISTS topology (
	id   INTEGER PRIMARY KEY,
	data BLOB UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS window_placement (
	path        TEXT NOT NULL,
	topology_id INTEGER NOT NULL,
	class       TEXT NOT NULL,
	title       TEXT NOT NULL,
	data        BLOB NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (path, topology_id, class, title),
	FOREIGN KEY (topology_id) REFERENCES topology(id)
);

CREATE INDEX IF NOT EXISTS idx_window_placement_topology ON window_placement(topology_id);
`

// Store is the placement database. The core drives it from a single
// goroutine; database/sql makes concurrent use from CLI helpers safe.
type Store struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
	now    func() time.Time
}

// TopologyRecord is one interned topology.
type TopologyRecord struct {
	ID       topology.ID
	Topology topology.Topology
	// Fingerprint digests the stored canonical bytes.
	Fingerprint string
	// Placements counts records captured under this topology.
	Placements int
}

// PlacementRecord is one captured placement.
type PlacementRecord struct {
	TopologyID topology.ID
	Identity   window.Identity
	Placement  platform.Placement
	UpdatedAt  time.Time
}

// Open creates or opens the database at path. MemoryPath gives a database
// that lives as long as the Store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and pragmas
	// below apply to the connection they run on.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database. Subsequent calls return ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return s.db.Close()
}

// Intern inserts canonical if no identical topology exists and returns the
// ID of the stored row either way.
func (s *Store) Intern(canonical []byte) (topology.ID, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if len(canonical) == 0 {
		return 0, errors.New("store: empty topology encoding")
	}

	if _, err := s.db.Exec(
		`INSERT INTO topology (data) VALUES (?) ON CONFLICT (data) DO NOTHING`,
		canonical,
	); err != nil {
		return 0, fmt.Errorf("insert topology: %w", err)
	}

	var id int64
	if err := s.db.QueryRow(`SELECT id FROM topology WHERE data = ?`, canonical).Scan(&id); err != nil {
		return 0, fmt.Errorf("select topology: %w", err)
	}
	return topology.ID(id), nil
}

// Upsert writes p for (topo, id), replacing any earlier record for that key.
func (s *Store) Upsert(topo topology.ID, id window.Identity, p platform.Placement) error {
	if s.closed.Load() {
		return ErrClosed
	}
	data, err := codec.Marshal(p)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO window_placement (path, topology_id, class, title, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (path, topology_id, class, title)
		DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		id.ExePath, int64(topo), id.ClassName, id.Title, data, s.now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert placement: %w", err)
	}
	return nil
}

// Lookup returns the record for exactly (topo, id).
func (s *Store) Lookup(topo topology.ID, id window.Identity) (platform.Placement, bool, error) {
	if s.closed.Load() {
		return platform.Placement{}, false, ErrClosed
	}

	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM window_placement
		WHERE path = ? AND topology_id = ? AND class = ? AND title = ?`,
		id.ExePath, int64(topo), id.ClassName, id.Title,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return platform.Placement{}, false, nil
	}
	if err != nil {
		return platform.Placement{}, false, fmt.Errorf("lookup placement: %w", err)
	}

	var p platform.Placement
	if err := codec.Unmarshal(data, &p); err != nil {
		return platform.Placement{}, false, err
	}
	return p, true, nil
}

// Topologies lists every interned topology in ID order.
func (s *Store) Topologies() ([]TopologyRecord, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`
		SELECT t.id, t.data, COUNT(p.topology_id)
		FROM topology t
		LEFT JOIN window_placement p ON p.topology_id = t.id
		GROUP BY t.id
		ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("query topologies: %w", err)
	}
	defer rows.Close()

	var records []TopologyRecord
	for rows.Next() {
		var (
			id    int64
			data  []byte
			count int
		)
		if err := rows.Scan(&id, &data, &count); err != nil {
			return nil, fmt.Errorf("scan topology: %w", err)
		}
		topo, err := topology.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("topology %d: %w", id, err)
		}
		records = append(records, TopologyRecord{
			ID:          topology.ID(id),
			Topology:    topo,
			Fingerprint: topology.Fingerprint(data),
			Placements:  count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

// Placements lists captured records. A zero topo lists every topology.
func (s *Store) Placements(topo topology.ID) ([]PlacementRecord, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	query := `SELECT topology_id, path, class, title, data, updated_at FROM window_placement`
	var args []any
	if topo != 0 {
		query += ` WHERE topology_id = ?`
		args = append(args, int64(topo))
	}
	query += ` ORDER BY topology_id, path, class, title`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}
	defer rows.Close()

	var records []PlacementRecord
	for rows.Next() {
		var (
			rec     PlacementRecord
			topoID  int64
			data    []byte
			updated int64
		)
		if err := rows.Scan(&topoID, &rec.Identity.ExePath, &rec.Identity.ClassName, &rec.Identity.Title, &data, &updated); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		if err := codec.Unmarshal(data, &rec.Placement); err != nil {
			return nil, err
		}
		rec.TopologyID = topology.ID(topoID)
		rec.UpdatedAt = time.Unix(0, updated).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}
