package repository

import (
	"context"
	"time"

	"github.com/aigoflow/chef-gateway/internal/models"
)

// Repository aggregates all repository interfaces
type Repository interface {
	Request() RequestRepositoryInterface
	Event() EventRepositoryInterface
	Cache() CacheRepositoryInterface
}

// RequestRepositoryInterface defines chat request logging operations
type RequestRepositoryInterface interface {
	LogRequest(ctx context.Context, req *models.RequestLog) error
	GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error)
}

// EventRepositoryInterface defines event logging operations
type EventRepositoryInterface interface {
	LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error
}

// CacheRepositoryInterface is a string key/value store with per-entry expiry
type CacheRepositoryInterface interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Purge(ctx context.Context) (int64, error)
}
