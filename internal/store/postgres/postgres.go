// Package postgres provides a Postgres-backed implementation of store.Store
// using database/sql with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/intraylabs/intray/internal/model"
	"github.com/intraylabs/intray/internal/store"
)

// Open opens a database handle and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB wraps an existing *sql.DB in a store.Store.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Records() store.Records         { return &records{db: s.db} }
func (s *pgStore) Categories() store.Categories   { return &categories{db: s.db} }
func (s *pgStore) Connections() store.Connections { return &connections{db: s.db} }

// HealthPing implements health.HealthPinger for Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
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
	var created, updated time.Time
	row := r.db.QueryRowContext(ctx, `
        INSERT INTO records (record_id, user_id, input_type, text, status, result)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING creation_time, update_time
    `, id, m.UserID, m.InputType, m.Text, status, nullIfEmpty(m.Result))
	if err := row.Scan(&created, &updated); err != nil {
		return nil, err
	}
	out := *m
	out.RecordID = id
	out.Status = status
	out.CreationTime = created
	out.UpdateTime = updated
	return &out, nil
}

func (r *records) Get(ctx context.Context, userID, recordID string) (*model.Record, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT `+recordColumns+`
        FROM records WHERE user_id=$1 AND record_id=$2
    `, userID, recordID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return rec, err
}

func (r *records) List(ctx context.Context, userID string, f model.RecordFilter) ([]*model.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE user_id=$1`
	args := []interface{}{userID}
	if !f.IncludeDeleted {
		query += " AND deletion_time IS NULL"
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
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
	sets := []string{"update_time=now()"}
	args := []interface{}{}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
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
		set("completion_time", *u.CompletionTime)
	}
	if u.DeletionTime != nil {
		set("deletion_time", *u.DeletionTime)
	}
	args = append(args, userID, recordID)
	query := fmt.Sprintf(`UPDATE records SET %s WHERE user_id=$%d AND record_id=$%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE deletion_time IS NOT NULL AND deletion_time < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanRecord reads one records row from either a *sql.Row or *sql.Rows.
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
	var created time.Time
	row := c.db.QueryRowContext(ctx, `
        INSERT INTO categories (category_id, user_id, kind, name)
        VALUES ($1,$2,$3,$4)
        RETURNING creation_time
    `, id, m.UserID, m.Kind, m.Name)
	if err := row.Scan(&created); err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrConflict
		}
		return nil, err
	}
	out := *m
	out.CategoryID = id
	out.CreationTime = created
	return &out, nil
}

func (c *categories) List(ctx context.Context, userID, kind string) ([]*model.Category, error) {
	query := `SELECT category_id, user_id, kind, name, creation_time FROM categories WHERE user_id=$1`
	args := []interface{}{userID}
	if kind != "" {
		args = append(args, kind)
		query += " AND kind=$2"
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
	res, err := c.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id=$1 AND category_id=$2`, userID, categoryID)
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
	var created, updated time.Time
	row := c.db.QueryRowContext(ctx, `
        INSERT INTO connections (user_id, provider, access_token, target_id)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (user_id, provider)
        DO UPDATE SET access_token=EXCLUDED.access_token, target_id=EXCLUDED.target_id, update_time=now()
        RETURNING creation_time, update_time
    `, m.UserID, m.Provider, m.AccessToken, m.TargetID)
	if err := row.Scan(&created, &updated); err != nil {
		return nil, err
	}
	out := *m
	out.CreationTime = created
	out.UpdateTime = updated
	return &out, nil
}

func (c *connections) Get(ctx context.Context, userID, provider string) (*model.Connection, error) {
	var m model.Connection
	row := c.db.QueryRowContext(ctx, `
        SELECT user_id, provider, access_token, target_id, creation_time, update_time
        FROM connections WHERE user_id=$1 AND provider=$2
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
	res, err := c.db.ExecContext(ctx, `DELETE FROM connections WHERE user_id=$1 AND provider=$2`, userID, provider)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// nullIfEmpty converts empty JSON payloads to NULL for nullable columns.
func nullIfEmpty(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
