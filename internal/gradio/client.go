// Package gradio drives chat generation through a Gradio Space's queue API:
// join the queue, poll the session's event stream, and fall back to a
// canned recipe whenever the Space cannot deliver an answer.
package gradio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aigoflow/chef-gateway/internal/models"
)

const (
	joinPath = "/gradio_api/queue/join"
	dataPath = "/gradio_api/queue/data"

	maxLineSize  = 1 << 20
	maxJoinBody  = 64 << 10
	logPreviewAt = 100
)

var (
	errNoEventID       = errors.New("join response has no event_id")
	errEmptyResult     = errors.New("completed event has no usable output")
	errBudgetExhausted = errors.New("poll attempts exhausted")
)

// Outcome records which path produced a Result.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeSubmissionFailed Outcome = "submission_failed"
	OutcomeEmptyResult      Outcome = "empty_result"
	OutcomeTimedOut         Outcome = "timed_out"
	OutcomeCancelled        Outcome = "cancelled"
)

// Config controls where and how the client talks to the Space.
type Config struct {
	BaseURL        string
	APIKey         string
	FnIndex        int
	ArgLayout      []ArgField
	HTTPTimeout    time.Duration
	AttemptTimeout time.Duration
	MaxAttempts    int
	InitialDelay   time.Duration
	DelayStep      time.Duration
	MaxDelay       time.Duration
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if len(c.ArgLayout) == 0 {
		c.ArgLayout = DefaultArgLayout
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 120 * time.Second
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 30
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.DelayStep <= 0 {
		c.DelayStep = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 3 * time.Second
	}
	return c
}

// Result is a response together with how it was obtained. Response is
// always usable; Err holds the cause when Outcome is not OutcomeSuccess.
type Result struct {
	Response    models.GenerationResponse
	Outcome     Outcome
	Attempts    int
	SessionHash string
	EventID     string
	Err         error
}

// Degraded reports whether Response came from the fallback generator.
func (r Result) Degraded() bool {
	return r.Outcome != OutcomeSuccess
}

// Client is safe for concurrent use; each call owns its session hash and
// poll loop, only the HTTP transport is shared.
type Client struct {
	cfg            Config
	http           *http.Client
	sleep          func(ctx context.Context, d time.Duration) error
	newSessionHash func() string
}

// NewClient builds a client. A nil httpClient gets one with cfg.HTTPTimeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Client{
		cfg:            cfg,
		http:           httpClient,
		sleep:          sleepContext,
		newSessionHash: newSessionHash,
	}
}

// QueryModel always returns a final response; failures yield the fallback.
func (c *Client) QueryModel(ctx context.Context, req models.GenerationRequest) models.GenerationResponse {
	return c.Generate(ctx, req).Response
}

// Generate runs one job through join and poll.
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) Result {
	args := JoinArgs{
		Prompt:      req.Prompt(),
		Language:    req.EffectiveLanguage(),
		Model:       req.EffectiveModel(),
		MaxTokens:   req.EffectiveMaxTokens(),
		Temperature: req.EffectiveTemperature(),
	}
	res := Result{SessionHash: c.newSessionHash()}
	log := slog.With("session_hash", res.SessionHash, "model", args.Model)

	fallback := func(outcome Outcome, err error) Result {
		if ctx.Err() != nil {
			outcome, err = OutcomeCancelled, ctx.Err()
		}
		log.Warn("Using fallback response", "outcome", outcome, "attempts", res.Attempts, "error", err)
		res.Response = Fallback(args.Prompt, args.Model)
		res.Outcome = outcome
		res.Err = err
		return res
	}

	eventID, err := c.join(ctx, res.SessionHash, args)
	if err != nil {
		return fallback(OutcomeSubmissionFailed, err)
	}
	res.EventID = eventID
	log.Debug("Joined queue", "event_id", eventID)

	delay := c.cfg.InitialDelay
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.sleep(ctx, delay); err != nil {
			return fallback(OutcomeCancelled, err)
		}
		res.Attempts = attempt

		ev, err := c.poll(ctx, res.SessionHash)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return fallback(OutcomeCancelled, ctx.Err())
			}
			log.Warn("Poll attempt failed", "attempt", attempt, "max_attempts", c.cfg.MaxAttempts, "error", err)
		case ev != nil:
			text := Extract(ev.Output)
			if strings.TrimSpace(text) == "" {
				return fallback(OutcomeEmptyResult, errEmptyResult)
			}
			log.Info("Generation completed", "attempt", attempt, "preview", preview(text))
			res.Response = models.GenerationResponse{
				BackendModel: args.Model,
				CreatedAt:    time.Now().UTC(),
				ResultText:   text,
				IsFinal:      true,
			}
			res.Outcome = OutcomeSuccess
			return res
		}

		delay = min(delay+c.cfg.DelayStep, c.cfg.MaxDelay)
	}

	return fallback(OutcomeTimedOut, errBudgetExhausted)
}

// join submits the job and returns the Space's event_id.
func (c *Client) join(ctx context.Context, sessionHash string, args JoinArgs) (string, error) {
	body, err := json.Marshal(joinRequest{
		FnIndex:     c.cfg.FnIndex,
		SessionHash: sessionHash,
		Data:        args.encode(c.cfg.ArgLayout),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal join request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+joinPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build join request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("join request failed: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxJoinBody))
	if err != nil {
		return "", fmt.Errorf("failed to read join response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("join returned %s: %s", resp.Status, preview(string(content)))
	}

	var jr joinResponse
	if err := json.Unmarshal(content, &jr); err != nil {
		return "", fmt.Errorf("malformed join response: %w", err)
	}
	if jr.EventID == "" {
		return "", errNoEventID
	}
	return jr.EventID, nil
}

// poll reads one connection of the session's event stream. It returns the
// completed event if one arrives, or nil when the stream ends without one.
func (c *Client) poll(ctx context.Context, sessionHash string) (*JobEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	u := c.cfg.BaseURL + dataPath + "?session_hash=" + url.QueryEscape(sessionHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build data request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data stream failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("data stream returned %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for scanner.Scan() {
		ev, ok, err := parseEventLine(scanner.Bytes())
		if err != nil {
			slog.Warn("Skipping malformed event", "session_hash", sessionHash, "error", err)
			continue
		}
		if !ok {
			continue
		}

		switch ev.Kind {
		case EventQueued:
			if ev.Rank != nil {
				slog.Debug("Waiting in queue", "session_hash", sessionHash, "rank", *ev.Rank)
			} else {
				slog.Debug("Waiting in queue", "session_hash", sessionHash)
			}
		case EventStarted:
			slog.Debug("Processing started", "session_hash", sessionHash)
		case EventCompleted:
			return &ev, nil
		default:
			slog.Debug("Ignoring event", "session_hash", sessionHash, "msg", ev.Msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("data stream read: %w", err)
	}
	return nil, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func newSessionHash() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:11]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func preview(s string) string {
	if len(s) <= logPreviewAt {
		return s
	}
	return s[:logPreviewAt] + "..."
}
