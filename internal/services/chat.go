package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aigoflow/chef-gateway/internal/gradio"
	"github.com/aigoflow/chef-gateway/internal/models"
	"github.com/aigoflow/chef-gateway/internal/repository"
)

const (
	StatusOK       = "ok"
	StatusFallback = "fallback"
)

// Generator is the generation backend the chat service drives.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) gradio.Result
}

// ActivityTracker counts in-flight generations.
type ActivityTracker interface {
	IncrementActive()
	DecrementActive()
}

// ChatRequest is the envelope carried over NATS.
type ChatRequest struct {
	TraceID string                   `json:"trace_id,omitempty"`
	ReqID   string                   `json:"req_id"`
	ReplyTo string                   `json:"reply_to,omitempty"`
	Request models.GenerationRequest `json:"request"`
}

// ChatResponse is published back to ChatRequest.ReplyTo.
type ChatResponse struct {
	ReqID      string                    `json:"req_id"`
	TraceID    string                    `json:"trace_id,omitempty"`
	Response   models.GenerationResponse `json:"response"`
	Degraded   bool                      `json:"degraded"`
	DurationMs int64                     `json:"duration_ms"`
}

type ChatService struct {
	gen     Generator
	repo    repository.Repository
	tracker ActivityTracker
}

// NewChatService wires the generator to the request log. tracker may be nil.
func NewChatService(gen Generator, repo repository.Repository, tracker ActivityTracker) *ChatService {
	return &ChatService{gen: gen, repo: repo, tracker: tracker}
}

// Query answers one HTTP chat request.
func (s *ChatService) Query(ctx context.Context, req models.GenerationRequest, source string) models.GenerationResponse {
	return s.Process(ctx, ChatRequest{Request: req}, source).Response
}

// Process runs one chat job and records it. It never fails: backend
// problems surface as a degraded response.
func (s *ChatService) Process(ctx context.Context, req ChatRequest, source string) *ChatResponse {
	start := time.Now()
	if req.ReqID == "" {
		req.ReqID = ulid.Make().String()
	}
	if req.TraceID == "" {
		req.TraceID = req.ReqID
	}

	if s.tracker != nil {
		s.tracker.IncrementActive()
		defer s.tracker.DecrementActive()
	}

	res := s.gen.Generate(ctx, req.Request)
	duration := time.Since(start)

	status := StatusOK
	errStr := ""
	if res.Degraded() {
		status = StatusFallback
		if res.Err != nil {
			errStr = res.Err.Error()
		}
	}

	entry := &models.RequestLog{
		Timestamp:    start,
		TraceID:      req.TraceID,
		ReqID:        req.ReqID,
		Source:       source,
		Model:        res.Response.BackendModel,
		Prompt:       req.Request.Prompt(),
		SessionHash:  res.SessionHash,
		ResponseText: res.Response.ResultText,
		Outcome:      string(res.Outcome),
		Attempts:     res.Attempts,
		DurationMs:   float64(duration.Microseconds()) / 1000,
		Status:       status,
		Error:        errStr,
	}
	// The caller may already be gone; the log row is still wanted.
	if err := s.repo.Request().LogRequest(context.WithoutCancel(ctx), entry); err != nil {
		slog.Error("Failed to log request", "req_id", req.ReqID, "error", err)
	}

	slog.Info("Chat request completed",
		"req_id", req.ReqID,
		"source", source,
		"outcome", res.Outcome,
		"attempts", res.Attempts,
		"duration_ms", duration.Milliseconds())

	return &ChatResponse{
		ReqID:      req.ReqID,
		TraceID:    req.TraceID,
		Response:   res.Response,
		Degraded:   res.Degraded(),
		DurationMs: duration.Milliseconds(),
	}
}

// GetRequestLogs returns the newest request log rows.
func (s *ChatService) GetRequestLogs(ctx context.Context, limit int) ([]*models.RequestLog, error) {
	return s.repo.Request().GetRequestLogs(ctx, limit)
}
