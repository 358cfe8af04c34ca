package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aigoflow/chef-gateway/internal/config"
)

var errEmptyMessages = errors.New("chat request has no messages")

// generateWorkerID creates a unique worker ID using timestamp and random bytes
func generateWorkerID() string {
	timestamp := time.Now().UnixNano()
	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("worker-%d-%s", timestamp, hex.EncodeToString(randomBytes))
}

// ChatProcessor is implemented by ChatService.
type ChatProcessor interface {
	Process(ctx context.Context, req ChatRequest, source string) *ChatResponse
}

type NATSService struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	chat       ChatProcessor
	cfg        *config.Config
	monitoring *MonitoringService
	health     *HealthService
}

func NewNATSService(cfg *config.Config, chat ChatProcessor, monitoring *MonitoringService, health *HealthService) (*NATSService, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &NATSService{
		conn:       conn,
		js:         js,
		chat:       chat,
		cfg:        cfg,
		monitoring: monitoring,
		health:     health,
	}, nil
}

// Start runs the workers and blocks until ctx is cancelled and every
// worker has finished its current message. The connection stays open
// until Close.
func (s *NATSService) Start(ctx context.Context) error {
	if err := s.ensureStream(); err != nil {
		return fmt.Errorf("failed to ensure stream: %w", err)
	}

	consumer, err := s.createConsumer()
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	slog.Info("NATS service starting",
		"stream", s.cfg.Stream,
		"subject", s.cfg.Subject,
		"consumer", s.cfg.Durable,
		"concurrency", s.cfg.Concurrency)

	if s.monitoring != nil {
		s.monitoring.Start(ctx, s.conn)
	}
	if s.health != nil {
		if err := s.health.Start(ctx, s.conn); err != nil {
			slog.Warn("Health service unavailable", "error", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, consumer, generateWorkerID())
		}()
	}

	<-ctx.Done()
	slog.Info("NATS service shutting down")
	wg.Wait()
	return nil
}

func (s *NATSService) ensureStream() error {
	streamInfo, err := s.js.StreamInfo(s.cfg.Stream)
	if err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("failed to get stream info: %w", err)
		}
		_, err = s.js.AddStream(&nats.StreamConfig{
			Name:      s.cfg.Stream,
			Subjects:  []string{s.cfg.Subject},
			MaxMsgs:   int64(s.cfg.MaxMsgs),
			MaxAge:    s.cfg.MaxAge,
			Storage:   nats.FileStorage,
			Retention: nats.WorkQueuePolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		slog.Info("Created NATS stream", "name", s.cfg.Stream)
		return nil
	}

	for _, subject := range streamInfo.Config.Subjects {
		if subject == s.cfg.Subject {
			slog.Info("NATS stream already exists", "name", s.cfg.Stream, "messages", streamInfo.State.Msgs)
			return nil
		}
	}

	newConfig := streamInfo.Config
	newConfig.Subjects = append(newConfig.Subjects, s.cfg.Subject)
	if _, err := s.js.UpdateStream(&newConfig); err != nil {
		return fmt.Errorf("failed to update stream with new subject: %w", err)
	}
	slog.Info("Updated NATS stream with new subject", "name", s.cfg.Stream, "subject", s.cfg.Subject)
	return nil
}

func (s *NATSService) createConsumer() (*nats.Subscription, error) {
	sub, err := s.js.PullSubscribe(s.cfg.Subject, s.cfg.Durable,
		nats.ManualAck(),
		nats.AckWait(s.cfg.AckWait),
		nats.MaxDeliver(s.cfg.MaxDeliver))
	if err != nil {
		return nil, fmt.Errorf("failed to create pull consumer: %w", err)
	}

	slog.Info("Created NATS consumer", "durable", s.cfg.Durable, "ack_wait", s.cfg.AckWait, "max_deliver", s.cfg.MaxDeliver)
	return sub, nil
}

func (s *NATSService) worker(ctx context.Context, consumer *nats.Subscription, workerID string) {
	slog.Info("NATS worker starting", "worker_id", workerID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("NATS worker shutting down", "worker_id", workerID)
			return
		default:
		}

		msgs, err := consumer.Fetch(1, nats.MaxWait(time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			slog.Error("Failed to fetch messages", "worker_id", workerID, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			s.monitoring.IncrementPending()
			s.processMessage(ctx, msg, workerID)
			s.monitoring.DecrementPending()
		}
	}
}

func (s *NATSService) processMessage(ctx context.Context, msg *nats.Msg, workerID string) {
	stop := keepInProgress(msg, s.cfg.AckWait/2)
	replyTo, payload, err := handleChatMessage(ctx, s.chat, msg.Subject, msg.Data, workerID)
	stop()
	if err != nil {
		slog.Error("Rejecting chat message",
			"worker_id", workerID,
			"error", err,
			"data", preview(string(msg.Data)))
		_ = msg.Nak()
		return
	}

	if replyTo != "" {
		if err := s.conn.Publish(replyTo, payload); err != nil {
			slog.Error("Failed to publish response",
				"worker_id", workerID,
				"reply_subject", replyTo,
				"error", err)
		}
	}

	if err := msg.Ack(); err != nil {
		slog.Error("Failed to acknowledge message", "worker_id", workerID, "error", err)
	}
}

type progressMarker interface {
	InProgress(opts ...nats.AckOpt) error
}

// keepInProgress resets the ack deadline of msg every interval until the
// returned stop func is called. Generation can outlast AckWait, and without
// this JetStream would hand the same job to another worker.
func keepInProgress(msg progressMarker, interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := msg.InProgress(); err != nil {
					slog.Warn("Failed to extend ack deadline", "error", err)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// handleChatMessage decodes one envelope, runs it and encodes the reply.
// An error means the message is unusable and should be Nak'd.
func handleChatMessage(ctx context.Context, chat ChatProcessor, subject string, data []byte, workerID string) (string, []byte, error) {
	var req ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", nil, fmt.Errorf("failed to parse chat request: %w", err)
	}
	if len(req.Request.Turns) == 0 {
		return "", nil, errEmptyMessages
	}

	slog.Debug("Processing NATS chat request",
		"worker_id", workerID,
		"req_id", req.ReqID,
		"trace_id", req.TraceID,
		"subject", subject)

	resp := chat.Process(ctx, req, "nats."+subject)

	payload, err := json.Marshal(resp)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return req.ReplyTo, payload, nil
}

func (s *NATSService) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

func preview(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
