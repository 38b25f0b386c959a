// Package sqlite provides a SQLite-backed implementation of store.Store for
// single-node deployments. Uses the pure-Go modernc driver so local builds
// need no cgo. Schema is created at open; timestamps are set in Go (UTC)
// since SQLite has no timezone-aware server clock.
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
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/intraylabs/intray/internal/model"
	"github.com/intraylabs/intray/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    record_id       TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    input_type      TEXT NOT NULL,
    text            TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    result          TEXT,
    final_result    TEXT,
    creation_time   DATETIME NOT NULL,
    update_time     DATETIME NOT NULL,
    completion_time DATETIME,
    deletion_time   DATETIME
);
CREATE INDEX IF NOT EXISTS idx_records_user_creation ON records (user_id, creation_time DESC);
CREATE INDEX IF NOT EXISTS idx_records_user_status ON records (user_id, status);
CREATE TABLE IF NOT EXISTS categories (
    category_id   TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    kind          TEXT NOT NULL,
    name          TEXT NOT NULL,
    creation_time DATETIME NOT NULL,
    UNIQUE (user_id, kind, name)
);
CREATE TABLE IF NOT EXISTS connections (
    user_id       TEXT NOT NULL,
    provider      TEXT NOT NULL,
    access_token  TEXT NOT NULL,
    target_id     TEXT NOT NULL DEFAULT '',
    creation_time DATETIME NOT NULL,
    update_time   DATETIME NOT NULL,
    PRIMARY KEY (user_id, provider)
);
`

// Open opens (or creates) a SQLite database at the given path, enables WAL
// journal mode, and creates the schema. Pass ":memory:" for an in-memory
// database (used by tests).
func Open(path string) (*sql.DB, error) {
	var dsn string
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(ON)&_time_format=sqlite"
	} else {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_time_format=sqlite", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// the pool must not open a second connection or it gets a fresh, empty DB
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB wraps an existing *sql.DB in a store.Store.
func NewWithDB(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Records() store.Records         { return &records{db: s.db} }
func (s *sqliteStore) Categories() store.Categories   { return &categories{db: s.db} }
func (s *sqliteStore) Connections() store.Connections { return &connections{db: s.db} }

// HealthPing implements health.HealthPinger for SQLite-backed store.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Records ---
type records struct{ db *sql.DB }

const recordColumns = `record_id, user_id, input_type, text, status, result, final_result,
               creation_time, update_time, completion_time, deletion_time`

func (r *records) Create(ctx context.Context, m *model.Record) (*model.Record, error) {
	id := m.RecordID
	if id == "" {
		id = uuid.New().String()
	}
	status := m.Status
	if status == "" {
		status = model.StatusPending
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO records (record_id, user_id, input_type, text, status, result, creation_time, update_time)
        VALUES (?,?,?,?,?,?,?,?)
    `, id, m.UserID, m.InputType, m.Text, status, nullIfEmpty(m.Result), now, now)
	if err != nil {
		return nil, err
	}
	out := *m
	out.RecordID = id
	out.Status = status
	out.CreationTime = now
	out.UpdateTime = now
	return &out, nil
}

func (r *records) Get(ctx context.Context, userID, recordID string) (*model.Record, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+recordColumns+`
        FROM records WHERE user_id=? AND record_id=?
    `, userID, recordID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return rec, err
}

func (r *records) List(ctx context.Context, userID string, f model.RecordFilter) ([]*model.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE user_id=?`
	args := []interface{}{userID}
	if !f.IncludeDeleted {
		query += " AND deletion_time IS NULL"
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += " AND status=?"
	}
	query += " ORDER BY creation_time DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *records) Update(ctx context.Context, userID, recordID string, u model.RecordUpdate) (*model.Record, error) {
	sets := []string{"update_time=?"}
	args := []interface{}{time.Now().UTC()}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, col+"=?")
	}
	if u.Text != nil {
		set("text", *u.Text)
	}
	if u.Status != nil {
		set("status", *u.Status)
	}
	if u.Result != nil {
		set("result", []byte(u.Result))
	}
	if u.FinalResult != nil {
		set("final_result", []byte(u.FinalResult))
	}
	if u.CompletionTime != nil {
		set("completion_time", u.CompletionTime.UTC())
	}
	if u.DeletionTime != nil {
		set("deletion_time", u.DeletionTime.UTC())
	}
	args = append(args, userID, recordID)
	query := fmt.Sprintf(`UPDATE records SET %s WHERE user_id=? AND record_id=?`, strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	return r.Get(ctx, userID, recordID)
}

func (r *records) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE deletion_time IS NOT NULL AND deletion_time < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRecord(row interface{ Scan(dest ...interface{}) error }) (*model.Record, error) {
	var rec model.Record
	var result, finalResult sql.NullString
	var completion, deletion sql.NullTime
	if err := row.Scan(&rec.RecordID, &rec.UserID, &rec.InputType, &rec.Text, &rec.Status,
		&result, &finalResult, &rec.CreationTime, &rec.UpdateTime, &completion, &deletion); err != nil {
		return nil, err
	}
	if result.Valid {
		rec.Result = json.RawMessage(result.String)
	}
	if finalResult.Valid {
		rec.FinalResult = json.RawMessage(finalResult.String)
	}
	if completion.Valid {
		t := completion.Time
		rec.CompletionTime = &t
	}
	if deletion.Valid {
		t := deletion.Time
		rec.DeletionTime = &t
	}
	return &rec, nil
}

// --- Categories ---
type categories struct{ db *sql.DB }

func (c *categories) Create(ctx context.Context, m *model.Category) (*model.Category, error) {
	id := m.CategoryID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO categories (category_id, user_id, kind, name, creation_time)
        VALUES (?,?,?,?,?)
    `, id, m.UserID, m.Kind, m.Name, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrConflict
		}
		return nil, err
	}
	out := *m
	out.CategoryID = id
	out.CreationTime = now
	return &out, nil
}

func (c *categories) List(ctx context.Context, userID, kind string) ([]*model.Category, error) {
	query := `SELECT category_id, user_id, kind, name, creation_time FROM categories WHERE user_id=?`
	args := []interface{}{userID}
	if kind != "" {
		args = append(args, kind)
		query += " AND kind=?"
	}
	query += " ORDER BY creation_time ASC"
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Category
	for rows.Next() {
		var m model.Category
		if err := rows.Scan(&m.CategoryID, &m.UserID, &m.Kind, &m.Name, &m.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (c *categories) Delete(ctx context.Context, userID, categoryID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id=? AND category_id=?`, userID, categoryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// --- Connections ---
type connections struct{ db *sql.DB }

func (c *connections) Upsert(ctx context.Context, m *model.Connection) (*model.Connection, error) {
	now := time.Now().UTC()
	_, err := c.db.ExecContext(ctx, `
        INSERT INTO connections (user_id, provider, access_token, target_id, creation_time, update_time)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT (user_id, provider)
        DO UPDATE SET access_token=excluded.access_token, target_id=excluded.target_id, update_time=excluded.update_time
    `, m.UserID, m.Provider, m.AccessToken, m.TargetID, now, now)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, m.UserID, m.Provider)
}

func (c *connections) Get(ctx context.Context, userID, provider string) (*model.Connection, error) {
	var m model.Connection
	row := c.db.QueryRowContext(ctx, `
        SELECT user_id, provider, access_token, target_id, creation_time, update_time
        FROM connections WHERE user_id=? AND provider=?
    `, userID, provider)
	if err := row.Scan(&m.UserID, &m.Provider, &m.AccessToken, &m.TargetID, &m.CreationTime, &m.UpdateTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (c *connections) Delete(ctx context.Context, userID, provider string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM connections WHERE user_id=? AND provider=?`, userID, provider)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func nullIfEmpty(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
