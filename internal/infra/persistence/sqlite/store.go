// Package sqlite provides a SQLite-backed persistent store that mirrors the
// in-memory semantics while snapshotting state after every commit.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"labcore/internal/entitymodel/sqlbundle"
	"labcore/internal/infra/persistence/memory"
	"labcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// It snapshots the full state after every successful transaction.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "labcore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, domain.ErrStorageUnavailable{Op: "create dirs", Err: err}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.ErrStorageUnavailable{Op: "open sqlite", Err: err}
	}
	ctx := context.Background()
	if err := applySchemaDDL(ctx, db, sqlbundle.SQLite()); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, domain.ErrStorageUnavailable{Op: "create state table", Err: err}
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore(engine)
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db, path: path}, nil
}

func applySchemaDDL(ctx context.Context, db *sql.DB, script string) error {
	for _, stmt := range sqlbundle.SplitStatements(script) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return domain.ErrStorageUnavailable{Op: "execute ddl", Err: err}
		}
	}
	return nil
}

var buckets = []string{
	"members",
	"projects",
	"assignments",
	"equipment",
	"usage",
	"grants",
	"funding",
	"publications",
	"authorships",
	"mentorships",
}

func snapshotTargets(snapshot *memory.Snapshot) map[string]any {
	return map[string]any{
		"members":      &snapshot.Members,
		"projects":     &snapshot.Projects,
		"assignments":  &snapshot.Assignments,
		"equipment":    &snapshot.Equipment,
		"usage":        &snapshot.Usage,
		"grants":       &snapshot.Grants,
		"funding":      &snapshot.Funding,
		"publications": &snapshot.Publications,
		"authorships":  &snapshot.Authorships,
		"mentorships":  &snapshot.Mentorships,
	}
}

func snapshotSources(snapshot memory.Snapshot) map[string]any {
	return map[string]any{
		"members":      snapshot.Members,
		"projects":     snapshot.Projects,
		"assignments":  snapshot.Assignments,
		"equipment":    snapshot.Equipment,
		"usage":        snapshot.Usage,
		"grants":       snapshot.Grants,
		"funding":      snapshot.Funding,
		"publications": snapshot.Publications,
		"authorships":  snapshot.Authorships,
		"mentorships":  snapshot.Mentorships,
	}
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, domain.ErrStorageUnavailable{Op: "select state", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	targets := snapshotTargets(&snapshot)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, domain.ErrStorageUnavailable{Op: "scan state", Err: err}
		}
		if len(payload) == 0 {
			continue
		}
		if target, ok := targets[bucket]; ok {
			if err := json.Unmarshal(payload, target); err != nil {
				return memory.Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, domain.ErrStorageUnavailable{Op: "iterate state", Err: err}
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	sources := snapshotSources(snapshot)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrStorageUnavailable{Op: "begin tx", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		data, err := json.Marshal(sources[bucket])
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return domain.ErrStorageUnavailable{Op: "upsert " + bucket, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrStorageUnavailable{Op: "commit", Err: err}
	}
	committed = true
	return nil
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Close flushes nothing further and closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
