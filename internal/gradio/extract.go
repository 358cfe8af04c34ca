package gradio

import (
	"bytes"
	"encoding/json"
)

// Extract pulls the generated text out of a process_completed output.
// Accepted shapes, in order: {"data": ["text", ...]}, "text", ["text", ...].
// Anything else yields "".
func Extract(payload json.RawMessage) string {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return ""
	}

	switch payload[0] {
	case '{':
		var obj struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &obj); err != nil || len(obj.Data) == 0 {
			return ""
		}
		return stringValue(obj.Data[0])
	case '"':
		return stringValue(payload)
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(payload, &arr); err != nil || len(arr) == 0 {
			return ""
		}
		return stringValue(arr[0])
	default:
		return ""
	}
}

func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
