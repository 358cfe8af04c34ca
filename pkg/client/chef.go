// Package client talks to the chef gateway over NATS.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

const (
	DefaultSubject     = "chef.chat.request"
	DefaultServiceName = "chef"

	healthTimeout = 5 * time.Second
)

// ChefClient provides a client interface for the chef gateway
type ChefClient interface {
	Ask(ctx context.Context, prompt string) (*ChatResponse, error)
	Query(ctx context.Context, query ChatQuery) (*ChatResponse, error)
	CheckHealth(ctx context.Context) (*HealthStatus, error)
	Close() error
}

// transport is the slice of a NATS connection the client uses.
type transport interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb func(data []byte)) (unsubscribe func(), err error)
	Request(ctx context.Context, subj string, data []byte) ([]byte, error)
	Close()
}

type NATSChefClient struct {
	conn        transport
	clientID    string
	subject     string
	serviceName string
	timeout     time.Duration
}

// NewNATSClient connects to natsURL. Requests go to DefaultSubject.
func NewNATSClient(natsURL, clientID string) (*NATSChefClient, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newClient(natsTransport{conn}, clientID), nil
}

func newClient(conn transport, clientID string) *NATSChefClient {
	if clientID == "" {
		clientID = "chef-client"
	}
	return &NATSChefClient{
		conn:        conn,
		clientID:    clientID,
		subject:     DefaultSubject,
		serviceName: DefaultServiceName,
		timeout:     3 * time.Minute,
	}
}

// Ask sends a single user message.
func (c *NATSChefClient) Ask(ctx context.Context, prompt string) (*ChatResponse, error) {
	return c.Query(ctx, ChatQuery{Messages: []Message{{Role: "user", Content: prompt}}})
}

// Query queues a chat job and waits for its reply.
func (c *NATSChefClient) Query(ctx context.Context, query ChatQuery) (*ChatResponse, error) {
	reqID := ulid.Make().String()
	replySubject := fmt.Sprintf("chef.chat.response.%s.%s", c.clientID, reqID)

	request := ChatRequest{
		ReqID:   reqID,
		TraceID: reqID,
		ReplyTo: replySubject,
		Request: query,
	}
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Subscribe before publishing so the reply cannot be missed.
	replyChan := make(chan []byte, 1)
	unsubscribe, err := c.conn.Subscribe(replySubject, func(data []byte) {
		select {
		case replyChan <- data:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to reply: %w", err)
	}
	defer unsubscribe()

	if err := c.conn.Publish(c.subject, requestBytes); err != nil {
		return nil, fmt.Errorf("failed to publish request: %w", err)
	}
	slog.Debug("Published chat request", "req_id", reqID, "reply_subject", replySubject)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case data := <-replyChan:
		var response ChatResponse
		if err := json.Unmarshal(data, &response); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &response, nil
	case <-timer.C:
		return nil, fmt.Errorf("request timeout after %v", c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CheckHealth asks the service for its status.
func (c *NATSChefClient) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	data, err := c.conn.Request(ctx, c.serviceName+".health", nil)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	var health HealthStatus
	if err := json.Unmarshal(data, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}

func (c *NATSChefClient) Close() error {
	c.conn.Close()
	return nil
}

// SetTimeout configures request timeout
func (c *NATSChefClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// SetSubject points the client at a non-default work queue subject.
func (c *NATSChefClient) SetSubject(subject string) {
	c.subject = subject
}

// SetServiceName selects which gateway instance answers CheckHealth.
func (c *NATSChefClient) SetServiceName(name string) {
	c.serviceName = name
}

type natsTransport struct {
	conn *nats.Conn
}

func (t natsTransport) Publish(subj string, data []byte) error {
	return t.conn.Publish(subj, data)
}

func (t natsTransport) Subscribe(subj string, cb func(data []byte)) (func(), error) {
	sub, err := t.conn.Subscribe(subj, func(msg *nats.Msg) {
		cb(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (t natsTransport) Request(ctx context.Context, subj string, data []byte) ([]byte, error) {
	msg, err := t.conn.RequestWithContext(ctx, subj, data)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

func (t natsTransport) Close() {
	t.conn.Close()
}

var _ ChefClient = (*NATSChefClient)(nil)
