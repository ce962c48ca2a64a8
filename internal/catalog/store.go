package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sreemahi-code/abbhack/internal/dataset"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS dataset_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	name          TEXT NOT NULL,
	row_count     INTEGER NOT NULL,
	columns_json  TEXT NOT NULL,
	table_json    BLOB NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES dataset_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_dataset (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES dataset_versions(version_id)
);
`

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
// #endregion schema

// #region store-struct
// Store keeps every uploaded dataset as a version in SQLite, with a single
// active pointer that the server restores on startup.
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

// DB returns the underlying *sql.DB so the run log can share the file.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion close

// #region commit
// Commit stores tbl as a new version whose parent is the currently active
// one, and makes it active. Both happen in one transaction.
func (s *Store) Commit(name string, tbl *dataset.Table) (Version, error) {
	colsJSON, err := json.Marshal(tbl.Columns)
	if err != nil {
		return Version{}, fmt.Errorf("marshal columns: %w", err)
	}
	tableJSON, err := json.Marshal(tbl)
	if err != nil {
		return Version{}, fmt.Errorf("marshal table: %w", err)
	}

	v := Version{
		VersionID: uuid.New().String(),
		Name:      name,
		RowCount:  len(tbl.Records),
		Columns:   append([]string(nil), tbl.Columns...),
		CreatedAt: time.Now().UTC(),
		Active:    true,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Version{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRow(`SELECT version_id FROM active_dataset WHERE id = 1`).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("get active: %w", err)
	}
	if parent.Valid {
		v.ParentID = parent.String
	}

	_, err = tx.Exec(
		`INSERT INTO dataset_versions (version_id, parent_id, name, row_count, columns_json, table_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, nullIfEmpty(v.ParentID), v.Name, v.RowCount, string(colsJSON), tableJSON,
		v.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Version{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_dataset (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		v.VersionID,
	)
	if err != nil {
		return Version{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Version{}, fmt.Errorf("commit: %w", err)
	}
	return v, nil
}
// #endregion commit

// #region get-current
// GetCurrent reads the active version. ErrNotFound if nothing was committed yet.
func (s *Store) GetCurrent() (Version, error) {
	id, err := s.activeID()
	if err != nil {
		return Version{}, err
	}
	if id == "" {
		return Version{}, fmt.Errorf("get active: %w", ErrNotFound)
	}
	return s.GetVersion(id)
}

func (s *Store) activeID() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT version_id FROM active_dataset WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active: %w", err)
	}
	return id, nil
}
// #endregion get-current

// #region get-version
// GetVersion retrieves a version's metadata by id.
func (s *Store) GetVersion(id string) (Version, error) {
	active, err := s.activeID()
	if err != nil {
		return Version{}, err
	}
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, name, row_count, columns_json, created_at
		 FROM dataset_versions WHERE version_id = ?`, id,
	)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, fmt.Errorf("get version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Version{}, fmt.Errorf("get version %s: %w", id, err)
	}
	v.Active = v.VersionID == active
	return v, nil
}

// LoadTable returns the stored rows of a version.
func (s *Store) LoadTable(id string) (*dataset.Table, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT table_json FROM dataset_versions WHERE version_id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load table %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", id, err)
	}
	var tbl dataset.Table
	if err := json.Unmarshal(blob, &tbl); err != nil {
		return nil, fmt.Errorf("unmarshal table %s: %w", id, err)
	}
	return &tbl, nil
}
// #endregion get-version

// #region rollback
// Rollback sets the active pointer to a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM dataset_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("rollback to %s: %w", targetVersionID, ErrNotFound)
	}

	_, err = s.db.Exec(
		`INSERT INTO active_dataset (id, version_id) VALUES (1, ?)
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
// ListVersions returns the most recent versions, newest first.
func (s *Store) ListVersions(limit int) ([]Version, error) {
	active, err := s.activeID()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, name, row_count, columns_json, created_at
		 FROM dataset_versions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		v.Active = v.VersionID == active
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
// #endregion list-versions

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(sc scanner) (Version, error) {
	var v Version
	var parentID sql.NullString
	var colsJSON, createdStr string
	if err := sc.Scan(&v.VersionID, &parentID, &v.Name, &v.RowCount, &colsJSON, &createdStr); err != nil {
		return Version{}, err
	}
	if parentID.Valid {
		v.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(colsJSON), &v.Columns); err != nil {
		return Version{}, fmt.Errorf("unmarshal columns: %w", err)
	}
	v.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return v, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
