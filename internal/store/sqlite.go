package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/codyde/sentryvibe-runner/internal/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS process_status (
	subject_id    TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	port          INTEGER,
	tunnel_url    TEXT,
	error_message TEXT,
	updated_at    TEXT NOT NULL
);
`

// SQLiteConfig holds the parameters for opening a snapshot store.
type SQLiteConfig struct {
	// Path is the filesystem path to the database file. The parent
	// directory must exist. Use ":memory:" with PoolSize 1 in tests.
	Path string

	// PoolSize is the number of connections. Defaults to 4 if zero or
	// negative. Writes are serialized by SQLite regardless; extra
	// connections serve concurrent streaming readers.
	PoolSize int

	// Logger receives operational messages. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// SQLiteStore is a Store backed by a pooled SQLite database in WAL mode.
type SQLiteStore struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the snapshot database and ensures
// the schema exists.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", cfg.Path, err)
	}

	s := &SQLiteStore{
		pool:   pool,
		logger: logger,
		path:   cfg.Path,
	}

	if err := s.ensureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ensuring schema: %w", err)
	}

	logger.Info("snapshot_store_opened", "path", cfg.Path, "pool_size", poolSize)
	return s, nil
}

// prepareConnection applies standard pragmas once per pooled connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)
	return sqlitex.ExecuteScript(conn, schema, nil)
}

// Save upserts the subject's snapshot row.
func (s *SQLiteStore) Save(ctx context.Context, snap snapshot.Snapshot) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", snap.SubjectID, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO process_status (subject_id, status, port, tunnel_url, error_message, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id) DO UPDATE SET
			status = excluded.status,
			port = excluded.port,
			tunnel_url = excluded.tunnel_url,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{
				snap.SubjectID,
				snap.Status,
				nullableInt(snap.Port),
				nullableText(snap.TunnelURL),
				nullableText(snap.ErrorMessage),
				time.Now().UTC().Format(time.RFC3339Nano),
			},
		})
	if err != nil {
		return fmt.Errorf("store: save %s: %w", snap.SubjectID, err)
	}
	return nil
}

// Load reads the subject's snapshot row.
func (s *SQLiteStore) Load(ctx context.Context, subjectID string) (snapshot.Snapshot, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("store: load %s: %w", subjectID, err)
	}
	defer s.pool.Put(conn)

	var snap snapshot.Snapshot
	found := false

	err = sqlitex.Execute(conn, `
		SELECT subject_id, status, port, tunnel_url, error_message
		FROM process_status WHERE subject_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{subjectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				snap.SubjectID = stmt.ColumnText(0)
				snap.Status = stmt.ColumnText(1)
				if !stmt.ColumnIsNull(2) {
					snap.Port = stmt.ColumnInt(2)
				}
				snap.TunnelURL = stmt.ColumnText(3)
				snap.ErrorMessage = stmt.ColumnText(4)
				return nil
			},
		})
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("store: load %s: %w", subjectID, err)
	}
	if !found {
		return snapshot.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

// Delete removes the subject's snapshot row.
func (s *SQLiteStore) Delete(ctx context.Context, subjectID string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", subjectID, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM process_status WHERE subject_id = ?`,
		&sqlitex.ExecOptions{Args: []any{subjectID}})
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", subjectID, err)
	}
	return nil
}

// Close closes the connection pool. Blocks until borrowed connections are
// returned.
func (s *SQLiteStore) Close() error {
	err := s.pool.Close()
	if err != nil {
		return fmt.Errorf("store: closing %s: %w", s.path, err)
	}
	s.logger.Info("snapshot_store_closed", "path", s.path)
	return nil
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableText(v string) any {
	if v == "" {
		return nil
	}
	return v
}
