package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoActive means no batch has been committed yet.
var ErrNoActive = errors.New("no active batch")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS batch_versions (
	version_id   TEXT PRIMARY KEY,
	parent_id    TEXT,
	payload      BLOB NOT NULL,
	source       TEXT NOT NULL,
	mode         TEXT NOT NULL DEFAULT 'replace',
	arena_count  INTEGER NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES batch_versions(version_id)
);

CREATE TABLE IF NOT EXISTS episode_log (
	episode_id   TEXT PRIMARY KEY,
	version_id   TEXT,
	episode      INTEGER NOT NULL,
	arena_id     INTEGER NOT NULL,
	reason       TEXT NOT NULL,
	seed         INTEGER,
	t            INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_batch (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	version_id   TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES batch_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store keeps every accepted configuration batch in SQLite, with a pointer to
// the batch currently applied.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region commit
// Commit stores a batch as a new version and makes it active. The previous
// active version becomes its parent.
func (s *Store) Commit(payload []byte, source, mode string, arenaCount int) (Version, error) {
	switch mode {
	case ModeReplace, ModeAppend, ModeClear:
	default:
		return Version{}, fmt.Errorf("commit: unknown mode %q", mode)
	}
	rec := Version{
		VersionID:  uuid.New().String(),
		Payload:    append([]byte(nil), payload...),
		Source:     source,
		Mode:       mode,
		ArenaCount: arenaCount,
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Version{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRow(`SELECT version_id FROM active_batch WHERE id = 1`).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("get active: %w", err)
	}
	var parentPtr interface{}
	if parent.Valid {
		rec.ParentID = parent.String
		parentPtr = parent.String
	}

	_, err = tx.Exec(
		`INSERT INTO batch_versions (version_id, parent_id, payload, source, mode, arena_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, parentPtr, rec.Payload, rec.Source, rec.Mode, rec.ArenaCount,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Version{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_batch (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		rec.VersionID,
	)
	if err != nil {
		return Version{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion commit

// #region get-current
// GetCurrent reads the active batch. Returns ErrNoActive before the first commit.
func (s *Store) GetCurrent() (Version, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_batch WHERE id = 1`).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, ErrNoActive
	}
	if err != nil {
		return Version{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a specific batch by ID.
func (s *Store) GetVersion(id string) (Version, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, payload, source, mode, arena_count, created_at
		 FROM batch_versions WHERE version_id = ?`, id,
	)
	rec, err := scanVersion(row)
	if err != nil {
		return Version{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-version

// #region chain
// Chain returns the version and all of its ancestors, oldest first. Replaying
// the chain in order rebuilds the registry that was live when id was active.
func (s *Store) Chain(id string) ([]Version, error) {
	var chain []Version
	seen := make(map[string]bool)
	for next := id; next != ""; {
		if seen[next] {
			return nil, fmt.Errorf("chain %s: cycle at %s", id, next)
		}
		seen[next] = true
		v, err := s.GetVersion(next)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", id, err)
		}
		chain = append(chain, v)
		next = v.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// #endregion chain

// #region rollback
// Rollback points the active batch at a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM batch_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(
		`INSERT INTO active_batch (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		targetVersionID,
	)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns the most recent batches, newest first.
func (s *Store) ListVersions(limit int) ([]Version, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, payload, source, mode, arena_count, created_at
		 FROM batch_versions ORDER BY rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []Version
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (Version, error) {
	var rec Version
	var parentID sql.NullString
	var createdStr string
	if err := row.Scan(&rec.VersionID, &parentID, &rec.Payload, &rec.Source, &rec.Mode, &rec.ArenaCount, &createdStr); err != nil {
		return Version{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion scan
