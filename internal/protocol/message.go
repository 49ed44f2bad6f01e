// Package protocol defines the wire frames exchanged with the orchestrator
// over the per-task websocket.
package protocol

import "encoding/json"

// StreamMessage is one inbound frame. Content is kind-specific and decoded
// downstream; the envelope fields are shared by every kind.
type StreamMessage struct {
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
	AgentName string          `json:"agent_name,omitempty"`
	AgentRole string          `json:"agent_role,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	TaskID    string          `json:"task_id,omitempty"`
}

const UserMessageType = "user_message"

// UserMessage is the only outbound frame: an operator message injected into
// the running agent's next turn.
type UserMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func NewUserMessage(content string) UserMessage {
	return UserMessage{Type: UserMessageType, Content: content}
}

func MustRaw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
