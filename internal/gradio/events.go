package gradio

import (
	"bytes"
	"encoding/json"
)

// EventKind classifies a queue lifecycle message.
type EventKind string

const (
	EventQueued    EventKind = "queued"
	EventStarted   EventKind = "started"
	EventCompleted EventKind = "completed"
	EventOther     EventKind = "other"
)

var dataPrefix = []byte("data: ")

// JobEvent is one decoded message from the queue data stream.
type JobEvent struct {
	Kind   EventKind
	Msg    string
	Rank   *int
	Output json.RawMessage
}

type wireEvent struct {
	Msg    string          `json:"msg"`
	Rank   *int            `json:"rank,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
}

// parseEventLine decodes a single stream line. ok is false for lines that do
// not carry an event; err is set when the payload is not valid JSON.
func parseEventLine(line []byte) (ev JobEvent, ok bool, err error) {
	if !bytes.HasPrefix(line, dataPrefix) {
		return JobEvent{}, false, nil
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return JobEvent{}, false, nil
	}

	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return JobEvent{}, false, err
	}
	if w.Msg == "" {
		return JobEvent{}, false, nil
	}

	return JobEvent{
		Kind:   kindOf(w.Msg),
		Msg:    w.Msg,
		Rank:   w.Rank,
		Output: w.Output,
	}, true, nil
}

func kindOf(msg string) EventKind {
	switch msg {
	case "estimation", "send_hash", "send_data":
		return EventQueued
	case "process_starts", "process_generating":
		return EventStarted
	case "process_completed":
		return EventCompleted
	default:
		return EventOther
	}
}
