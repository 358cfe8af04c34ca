package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultBackendModel = "Qwen/Qwen2.5-72B-Instruct"
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1500
	DefaultLanguage     = "English"
	DefaultPrompt       = "Hello"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole accepts any casing of a known role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant, RoleSystem:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ConversationTurn is one message of a conversation. Slices of turns are
// kept in conversation order.
type ConversationTurn struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

// GenerationRequest is the input of a single chat query.
type GenerationRequest struct {
	BackendModel string             `json:"model,omitempty"`
	Turns        []ConversationTurn `json:"messages"`
	Temperature  float64            `json:"temperature,omitempty"`
	MaxTokens    int                `json:"numPredict,omitempty"`
	Language     string             `json:"language,omitempty"`
}

// EffectiveModel returns the requested backend model or the default.
func (r GenerationRequest) EffectiveModel() string {
	if strings.TrimSpace(r.BackendModel) == "" {
		return DefaultBackendModel
	}
	return r.BackendModel
}

func (r GenerationRequest) EffectiveTemperature() float64 {
	if r.Temperature <= 0 {
		return DefaultTemperature
	}
	return r.Temperature
}

func (r GenerationRequest) EffectiveMaxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

func (r GenerationRequest) EffectiveLanguage() string {
	if strings.TrimSpace(r.Language) == "" {
		return DefaultLanguage
	}
	return r.Language
}

// Prompt is the text of the most recent user turn, or DefaultPrompt.
func (r GenerationRequest) Prompt() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == RoleUser {
			return r.Turns[i].Text
		}
	}
	return DefaultPrompt
}

// GenerationResponse is the single answer produced for a GenerationRequest.
// IsFinal is always true on values returned by the chat client.
type GenerationResponse struct {
	BackendModel string    `json:"model"`
	CreatedAt    time.Time `json:"createdAt"`
	ResultText   string    `json:"recipe"`
	IsFinal      bool      `json:"done"`
}
