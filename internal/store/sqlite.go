package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	// Create events table
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS events(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts REAL,
		level TEXT,
		code TEXT,
		msg TEXT,
		meta TEXT
	)`); err != nil {
		db.Close()
		return nil, err
	}

	// Create requests table with the prompt, answer and how it was produced
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS requests(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts REAL,
		trace_id TEXT,
		req_id TEXT,
		source TEXT,
		model TEXT,
		prompt TEXT,
		session_hash TEXT,
		response_text TEXT,
		outcome TEXT,
		attempts INTEGER,
		dur_ms REAL,
		status TEXT,
		error TEXT
	)`); err != nil {
		db.Close()
		return nil, err
	}

	// Create cache table for upstream recipe responses
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache(
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		expires_at REAL NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

func (db *DB) Event(level, code, msg string, meta map[string]interface{}) {
	m := ""
	if meta != nil {
		b, _ := json.Marshal(meta)
		m = string(b)
	}
	_, _ = db.Exec(`INSERT INTO events(ts,level,code,msg,meta) VALUES(?,?,?,?,?)`,
		unixSeconds(time.Now()), level, code, msg, m)
}

func (db *DB) Req(ctx context.Context, start time.Time, traceID, reqID, source, model, prompt, sessionHash, responseText, outcome string,
	attempts int, durMs float64, status, errStr string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO requests(
		ts, trace_id, req_id, source, model, prompt, session_hash, response_text, outcome, attempts, dur_ms, status, error)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		unixSeconds(start), traceID, reqID, source, model, prompt, sessionHash, responseText, outcome, attempts, durMs, status, errStr)
	return err
}

// CacheGet returns the stored value for key if it has not expired.
func (db *DB) CacheGet(ctx context.Context, key string, now time.Time) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM cache WHERE key = ? AND expires_at > ?`, key, unixSeconds(now)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (db *DB) CacheSet(ctx context.Context, key, value string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx, `INSERT INTO cache(key, value, expires_at) VALUES(?,?,?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, unixSeconds(expiresAt))
	return err
}

// CachePurge deletes expired entries and reports how many were removed.
func (db *DB) CachePurge(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM cache WHERE expires_at <= ?`, unixSeconds(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
