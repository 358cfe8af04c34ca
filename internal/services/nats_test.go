package services

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aigoflow/chef-gateway/internal/config"
	"github.com/aigoflow/chef-gateway/internal/models"
)

type stubProcessor struct {
	got    []ChatRequest
	source string
}

func (s *stubProcessor) Process(_ context.Context, req ChatRequest, source string) *ChatResponse {
	s.got = append(s.got, req)
	s.source = source
	return &ChatResponse{
		ReqID:    req.ReqID,
		TraceID:  req.TraceID,
		Response: models.GenerationResponse{BackendModel: "m", ResultText: "Boil.", IsFinal: true},
	}
}

func TestHandleChatMessage(t *testing.T) {
	chat := &stubProcessor{}
	data := []byte(`{"req_id":"01J","trace_id":"t","reply_to":"chef.chat.response.cli.01J","request":{"messages":[{"role":"user","content":"soup"}]}}`)

	replyTo, payload, err := handleChatMessage(context.Background(), chat, "chef.chat.request", data, "w1")
	require.NoError(t, err)

	assert.Equal(t, "chef.chat.response.cli.01J", replyTo)
	assert.Equal(t, "nats.chef.chat.request", chat.source)
	require.Len(t, chat.got, 1)
	assert.Equal(t, "soup", chat.got[0].Request.Prompt())

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(payload, &resp))
	assert.Equal(t, "01J", resp.ReqID)
	assert.Equal(t, "Boil.", resp.Response.ResultText)
	assert.True(t, resp.Response.IsFinal)
}

func TestHandleChatMessageRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"not json":    `{"req_id":`,
		"no messages": `{"req_id":"x","request":{"messages":[]}}`,
		"bad role":    `{"req_id":"x","request":{"messages":[{"role":"robot","content":"hi"}]}}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			chat := &stubProcessor{}
			_, _, err := handleChatMessage(context.Background(), chat, "chef.chat.request", []byte(data), "w1")
			assert.Error(t, err)
			assert.Empty(t, chat.got)
		})
	}
}

func TestGenerateWorkerIDIsUnique(t *testing.T) {
	a, b := generateWorkerID(), generateWorkerID()
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^worker-\d+-[0-9a-f]{8}$`, a)
}

type countingMarker struct {
	calls atomic.Int32
}

func (m *countingMarker) InProgress(...nats.AckOpt) error {
	m.calls.Add(1)
	return nil
}

func TestKeepInProgressExtendsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	marker := &countingMarker{}
	stop := keepInProgress(marker, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return marker.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	stop()
	stop()

	after := marker.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, after, marker.calls.Load())
}

func TestKeepInProgressDisabledWithoutAckWait(t *testing.T) {
	marker := &countingMarker{}
	stop := keepInProgress(marker, 0)
	time.Sleep(20 * time.Millisecond)
	stop()
	assert.Zero(t, marker.calls.Load())
}

type recordingPublisher struct {
	mu    sync.Mutex
	subj  []string
	datas [][]byte
}

func (r *recordingPublisher) Publish(subj string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subj = append(r.subj, subj)
	r.datas = append(r.datas, data)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:              ":8080",
		ServiceName:           "chef",
		Subject:               "chef.chat.request",
		MonitoringTopic:       "monitoring.backpressure",
		BackpressureThreshold: 3,
		Concurrency:           4,
		MaxMsgs:               100,
	}
}

func TestBackpressureStatus(t *testing.T) {
	m := NewMonitoringService(testConfig())
	assert.Equal(t, BackpressureHealthy, m.Report().Status)

	m.IncrementPending()
	m.IncrementActive()
	assert.Equal(t, BackpressureWarning, m.Report().Status)

	m.IncrementActive()
	report := m.Report()
	assert.Equal(t, BackpressureCritical, report.Status)
	assert.Equal(t, int64(1), report.PendingMessages)
	assert.Equal(t, int64(2), report.ActiveProcessing)
	assert.Equal(t, "chef", report.ServiceName)

	m.DecrementActive()
	m.DecrementActive()
	m.DecrementPending()
	assert.Equal(t, BackpressureHealthy, m.Report().Status)
	assert.False(t, m.LastActivity().IsZero())
}

func TestReportBackpressurePublishesOnServiceTopic(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewMonitoringService(testConfig())
	m.publisher = pub

	m.reportBackpressure(0, 0)

	require.Len(t, pub.subj, 1)
	assert.Equal(t, "monitoring.backpressure.chef", pub.subj[0])
	var report BackpressureReport
	require.NoError(t, json.Unmarshal(pub.datas[0], &report))
	assert.Equal(t, BackpressureHealthy, report.Status)
	assert.Equal(t, 100, report.QueueCapacity)
}

func TestHealthStatus(t *testing.T) {
	cfg := testConfig()
	m := NewMonitoringService(cfg)
	h := NewHealthService(cfg, m)

	assert.Equal(t, "chef.health", h.HealthTopic())
	assert.Equal(t, "chef.heartbeat", h.HeartbeatTopic())

	status := h.Status()
	assert.Equal(t, "online", status.Status)
	assert.Equal(t, "http://localhost:8080", status.Endpoint)
	assert.Equal(t, "chef.chat.request", status.NATSTopic)

	for i := 0; i < 3; i++ {
		m.IncrementActive()
	}
	assert.Equal(t, "busy", h.Status().Status)
}

func TestHeartbeatsStopWithContext(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewHealthService(testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.publishHeartbeats(ctx, pub)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat loop did not stop")
	}
}
