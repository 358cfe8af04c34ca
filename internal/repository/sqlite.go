package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/aigoflow/chef-gateway/internal/models"
	"github.com/aigoflow/chef-gateway/internal/store"
)

// SQLiteRepository implements Repository interface using SQLite
type SQLiteRepository struct {
	db          *store.DB
	requestRepo RequestRepositoryInterface
	eventRepo   EventRepositoryInterface
	cacheRepo   CacheRepositoryInterface
}

func NewSQLiteRepository(db *store.DB) Repository {
	return &SQLiteRepository{
		db:          db,
		requestRepo: &SQLiteRequestRepository{db: db},
		eventRepo:   &SQLiteEventRepository{db: db},
		cacheRepo:   &SQLiteCacheRepository{db: db, now: time.Now},
	}
}

func (r *SQLiteRepository) Request() RequestRepositoryInterface {
	return r.requestRepo
}

func (r *SQLiteRepository) Event() EventRepositoryInterface {
	return r.eventRepo
}

func (r *SQLiteRepository) Cache() CacheRepositoryInterface {
	return r.cacheRepo
}

// SQLiteRequestRepository handles request logging
type SQLiteRequestRepository struct {
	db *store.DB
}

func (r *SQLiteRequestRepository) LogRequest(ctx context.Context, req *models.RequestLog) error {
	return r.db.Req(
		ctx,
		req.Timestamp,
		req.TraceID,
		req.ReqID,
		req.Source,
		req.Model,
		req.Prompt,
		req.SessionHash,
		req.ResponseText,
		req.Outcome,
		req.Attempts,
		req.DurationMs,
		req.Status,
		req.Error,
	)
}

func (r *SQLiteRequestRepository) GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ts,trace_id,req_id,source,model,prompt,session_hash,response_text,outcome,attempts,dur_ms,status,error FROM requests ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.RequestLog
	for rows.Next() {
		var log models.RequestLog
		var tsFloat float64

		if err := rows.Scan(
			&tsFloat, &log.TraceID, &log.ReqID, &log.Source, &log.Model,
			&log.Prompt, &log.SessionHash, &log.ResponseText, &log.Outcome,
			&log.Attempts, &log.DurationMs, &log.Status, &log.Error,
		); err != nil {
			slog.Warn("Skipping unreadable request log row", "error", err)
			continue
		}
		log.Timestamp = time.Unix(0, int64(tsFloat*1e9))
		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

// SQLiteEventRepository handles event logging
type SQLiteEventRepository struct {
	db *store.DB
}

func (r *SQLiteEventRepository) LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error {
	r.db.Event(level, code, msg, meta)
	return nil
}

// SQLiteCacheRepository stores cached upstream responses
type SQLiteCacheRepository struct {
	db  *store.DB
	now func() time.Time
}

func (r *SQLiteCacheRepository) Get(ctx context.Context, key string) (string, bool, error) {
	return r.db.CacheGet(ctx, key, r.now())
}

func (r *SQLiteCacheRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.db.CacheSet(ctx, key, value, r.now().Add(ttl))
}

func (r *SQLiteCacheRepository) Purge(ctx context.Context) (int64, error) {
	return r.db.CachePurge(ctx, r.now())
}

// SweepCache purges expired cache rows every interval until ctx ends.
// A non-positive interval disables sweeping.
func SweepCache(ctx context.Context, cache CacheRepositoryInterface, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := cache.Purge(ctx)
			if err != nil {
				slog.Warn("Cache sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("Cache sweep removed expired entries", "count", n)
			}
		}
	}
}
