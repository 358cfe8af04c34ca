package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aigoflow/chef-gateway/internal/config"
)

const (
	BackpressureHealthy  = "healthy"
	BackpressureWarning  = "warning"
	BackpressureCritical = "critical"
)

// Publisher is the part of *nats.Conn used for reports.
type Publisher interface {
	Publish(subj string, data []byte) error
}

type MonitoringService struct {
	publisher    Publisher
	config       *config.Config
	pendingCount atomic.Int64
	activeCount  atomic.Int64
	lastActivity atomic.Int64 // unix nanos
}

type BackpressureReport struct {
	ServiceName      string    `json:"service_name"`
	PendingMessages  int64     `json:"pending_messages"`
	ActiveProcessing int64     `json:"active_processing"`
	Timestamp        time.Time `json:"timestamp"`
	WorkerCount      int       `json:"worker_count"`
	QueueCapacity    int       `json:"queue_capacity"`
	Status           string    `json:"status"`
}

// NewMonitoringService counts work from both HTTP and NATS. Reports are only
// published once a connection is attached with Start.
func NewMonitoringService(cfg *config.Config) *MonitoringService {
	return &MonitoringService{config: cfg}
}

// Start publishes backpressure reports on the monitoring topic until ctx ends.
func (m *MonitoringService) Start(ctx context.Context, publisher Publisher) {
	m.publisher = publisher
	slog.Info("Starting monitoring service",
		"topic", m.Topic(),
		"threshold", m.config.BackpressureThreshold)

	go m.monitorBackpressure(ctx)
}

// Topic is where backpressure reports go.
func (m *MonitoringService) Topic() string {
	return fmt.Sprintf("%s.%s", m.config.MonitoringTopic, m.config.ServiceName)
}

func (m *MonitoringService) monitorBackpressure(ctx context.Context) {
	// Report every second while busy, every 10s when idle.
	highLoadTicker := time.NewTicker(1 * time.Second)
	lowLoadTicker := time.NewTicker(10 * time.Second)
	defer highLoadTicker.Stop()
	defer lowLoadTicker.Stop()

	currentTicker := lowLoadTicker

	for {
		select {
		case <-ctx.Done():
			return
		case <-currentTicker.C:
			pending := m.GetPendingCount()
			active := m.GetActiveCount()

			if pending+active > 0 && currentTicker == lowLoadTicker {
				currentTicker = highLoadTicker
				slog.Debug("Switched to high-frequency monitoring", "pending", pending, "active", active)
			} else if pending+active == 0 && currentTicker == highLoadTicker {
				currentTicker = lowLoadTicker
				slog.Debug("Switched to low-frequency monitoring")
			}

			m.reportBackpressure(pending, active)
		}
	}
}

func (m *MonitoringService) reportBackpressure(pending, active int64) {
	report := m.Report()

	reportData, err := json.Marshal(report)
	if err != nil {
		slog.Error("Failed to marshal backpressure report", "error", err)
		return
	}

	if err := m.publisher.Publish(m.Topic(), reportData); err != nil {
		slog.Warn("Failed to publish backpressure report", "error", err)
		return
	}

	if pending > 0 || report.Status != BackpressureHealthy {
		slog.Info("Backpressure report",
			"pending", pending,
			"active", active,
			"status", report.Status)
	}
}

// Report snapshots the current counters.
func (m *MonitoringService) Report() BackpressureReport {
	pending := m.GetPendingCount()
	active := m.GetActiveCount()
	return BackpressureReport{
		ServiceName:      m.config.ServiceName,
		PendingMessages:  pending,
		ActiveProcessing: active,
		Timestamp:        time.Now(),
		WorkerCount:      m.config.Concurrency,
		QueueCapacity:    m.config.MaxMsgs,
		Status:           m.calculateStatus(pending, active),
	}
}

func (m *MonitoringService) calculateStatus(pending, active int64) string {
	total := pending + active
	threshold := int64(m.config.BackpressureThreshold)

	switch {
	case total == 0:
		return BackpressureHealthy
	case total < threshold:
		return BackpressureWarning
	default:
		return BackpressureCritical
	}
}

func (m *MonitoringService) IncrementPending() {
	m.pendingCount.Add(1)
}

func (m *MonitoringService) DecrementPending() {
	m.pendingCount.Add(-1)
}

func (m *MonitoringService) IncrementActive() {
	m.activeCount.Add(1)
	m.lastActivity.Store(time.Now().UnixNano())
}

func (m *MonitoringService) DecrementActive() {
	m.activeCount.Add(-1)
}

func (m *MonitoringService) GetPendingCount() int64 {
	return m.pendingCount.Load()
}

func (m *MonitoringService) GetActiveCount() int64 {
	return m.activeCount.Load()
}

// LastActivity is when the last job started, or the zero time.
func (m *MonitoringService) LastActivity() time.Time {
	ns := m.lastActivity.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
