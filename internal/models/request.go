package models

import "time"

// RequestLog represents a logged chat request
type RequestLog struct {
	Timestamp    time.Time `json:"ts"`
	TraceID      string    `json:"trace_id"`
	ReqID        string    `json:"req_id"`
	Source       string    `json:"source"`
	Model        string    `json:"model"`
	Prompt       string    `json:"prompt"`
	SessionHash  string    `json:"session_hash"`
	ResponseText string    `json:"response_text"`
	Outcome      string    `json:"outcome"`
	Attempts     int       `json:"attempts"`
	DurationMs   float64   `json:"dur_ms"`
	Status       string    `json:"status"`
	Error        string    `json:"error"`
}
