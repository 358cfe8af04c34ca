package client

import "time"

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatQuery is what a caller asks the chef.
type ChatQuery struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	NumPredict  int       `json:"numPredict,omitempty"`
	Language    string    `json:"language,omitempty"`
}

// ChatRequest is the envelope published to the work queue.
type ChatRequest struct {
	ReqID   string    `json:"req_id"`
	TraceID string    `json:"trace_id,omitempty"`
	ReplyTo string    `json:"reply_to,omitempty"`
	Request ChatQuery `json:"request"`
}

// ChatAnswer mirrors the HTTP /chat/query response.
type ChatAnswer struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
	Recipe    string    `json:"recipe"`
	Done      bool      `json:"done"`
}

// ChatResponse is published back on the reply subject.
type ChatResponse struct {
	ReqID      string     `json:"req_id"`
	TraceID    string     `json:"trace_id,omitempty"`
	Response   ChatAnswer `json:"response"`
	Degraded   bool       `json:"degraded"`
	DurationMs int64      `json:"duration_ms"`
}

// HealthStatus represents service health information
type HealthStatus struct {
	ServiceName  string    `json:"service_name"`
	Status       string    `json:"status"`
	LastActivity time.Time `json:"last_activity"`
	Uptime       string    `json:"uptime"`
	Capabilities []string  `json:"capabilities"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Backend      string    `json:"backend"`
	Version      string    `json:"version"`
}
