package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aigoflow/chef-gateway/internal/config"
)

const (
	heartbeatInterval = 30 * time.Second
	serviceVersion    = "1.0.0"
)

type HealthService struct {
	config     *config.Config
	monitoring *MonitoringService
	started    time.Time
}

type HealthStatus struct {
	ServiceName  string    `json:"service_name"`
	Status       string    `json:"status"` // online, busy
	LastActivity time.Time `json:"last_activity"`
	Uptime       string    `json:"uptime"`
	Capabilities []string  `json:"capabilities"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Backend      string    `json:"backend"`
	Version      string    `json:"version"`
}

func NewHealthService(cfg *config.Config, monitoring *MonitoringService) *HealthService {
	return &HealthService{
		config:     cfg,
		monitoring: monitoring,
		started:    time.Now(),
	}
}

// HealthTopic answers request/reply health checks.
func (h *HealthService) HealthTopic() string {
	return fmt.Sprintf("%s.health", h.config.ServiceName)
}

// HeartbeatTopic receives the periodic status broadcast.
func (h *HealthService) HeartbeatTopic() string {
	return fmt.Sprintf("%s.heartbeat", h.config.ServiceName)
}

// Start answers health requests and publishes heartbeats until ctx ends.
func (h *HealthService) Start(ctx context.Context, conn *nats.Conn) error {
	sub, err := conn.Subscribe(h.HealthTopic(), func(msg *nats.Msg) {
		statusData, err := json.Marshal(h.Status())
		if err != nil {
			slog.Error("Failed to marshal health status", "error", err)
			return
		}
		if err := msg.Respond(statusData); err != nil {
			slog.Error("Failed to respond to health check", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to health topic: %w", err)
	}

	slog.Info("Health service started", "topic", h.HealthTopic())

	go func() {
		h.publishHeartbeats(ctx, conn)
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (h *HealthService) publishHeartbeats(ctx context.Context, pub Publisher) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			statusData, err := json.Marshal(h.Status())
			if err != nil {
				continue
			}
			if err := pub.Publish(h.HeartbeatTopic(), statusData); err != nil {
				slog.Warn("Failed to publish heartbeat", "error", err)
			}
		}
	}
}

// Status describes the running service.
func (h *HealthService) Status() HealthStatus {
	status := "online"
	var last time.Time
	if h.monitoring != nil {
		last = h.monitoring.LastActivity()
		if h.monitoring.Report().Status == BackpressureCritical {
			status = "busy"
		}
	}
	return HealthStatus{
		ServiceName:  h.config.ServiceName,
		Status:       status,
		LastActivity: last,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Capabilities: []string{"recipe-chat", "recipe-search"},
		Endpoint:     fmt.Sprintf("http://localhost%s", h.config.HTTPAddr),
		NATSTopic:    h.config.Subject,
		Backend:      h.config.SpaceURL,
		Version:      serviceVersion,
	}
}
