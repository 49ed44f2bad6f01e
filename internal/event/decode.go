package event

import (
	"errors"
	"fmt"
	"strings"

	"encoding/json"

	"taskdeck/internal/protocol"
)

var (
	ErrUnknownKind  = errors.New("unknown event kind")
	ErrMissingField = errors.New("missing required field")
)

// Decode narrows one raw stream frame into a typed Event. A frame that does
// not parse, claims an unknown kind, or lacks a required field is rejected;
// the caller drops it and keeps the stream alive.
func Decode(raw []byte) (Event, error) {
	var msg protocol.StreamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Event{}, fmt.Errorf("parse frame: %w", err)
	}
	return DecodeMessage(msg)
}

func DecodeMessage(msg protocol.StreamMessage) (Event, error) {
	ev := Event{
		Kind:      Kind(strings.TrimSpace(msg.Type)),
		AgentName: strings.TrimSpace(msg.AgentName),
		AgentRole: strings.TrimSpace(msg.AgentRole),
		Timestamp: strings.TrimSpace(msg.Timestamp),
	}

	content := msg.Content
	if len(content) == 0 {
		content = []byte("{}")
	}

	switch ev.Kind {
	case KindThought:
		var p Thought
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("thought content: %w", err)
		}
		if strings.TrimSpace(p.Text) == "" {
			return Event{}, fmt.Errorf("thought: %w: text", ErrMissingField)
		}
		ev.Thought = &p
	case KindToolCall:
		var p ToolCall
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("tool_call content: %w", err)
		}
		if strings.TrimSpace(p.Tool) == "" {
			return Event{}, fmt.Errorf("tool_call: %w: tool", ErrMissingField)
		}
		ev.ToolCall = &p
	case KindToolResult:
		var p ToolResult
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("tool_result content: %w", err)
		}
		if strings.TrimSpace(p.Tool) == "" {
			return Event{}, fmt.Errorf("tool_result: %w: tool", ErrMissingField)
		}
		ev.ToolResult = &p
	case KindScreenshot:
		var p Screenshot
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("screenshot content: %w", err)
		}
		if p.Image == "" {
			return Event{}, fmt.Errorf("screenshot: %w: image", ErrMissingField)
		}
		ev.Screenshot = &p
	case KindPlanUpdate:
		var p PlanUpdate
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("plan_update content: %w", err)
		}
		ev.PlanUpdate = &p
	case KindAgentSpawn:
		var p AgentSpawn
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("agent_spawn content: %w", err)
		}
		// Older producers put the identity on the envelope only.
		if p.Name == "" {
			p.Name = ev.AgentName
		}
		if p.Role == "" {
			p.Role = ev.AgentRole
		}
		if strings.TrimSpace(p.Name) == "" {
			return Event{}, fmt.Errorf("agent_spawn: %w: name", ErrMissingField)
		}
		ev.AgentSpawn = &p
	case KindAgentComplete:
		var p AgentComplete
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("agent_complete content: %w", err)
		}
		if p.Name == "" {
			p.Name = ev.AgentName
		}
		if strings.TrimSpace(p.Name) == "" {
			return Event{}, fmt.Errorf("agent_complete: %w: name", ErrMissingField)
		}
		ev.AgentComplete = &p
	case KindTaskStarted:
		var p TaskStarted
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("task_started content: %w", err)
		}
		ev.TaskStarted = &p
	case KindTaskComplete:
		var p TaskComplete
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("task_complete content: %w", err)
		}
		ev.TaskComplete = &p
	case KindError:
		var p ErrorInfo
		if err := json.Unmarshal(content, &p); err != nil {
			return Event{}, fmt.Errorf("error content: %w", err)
		}
		if strings.TrimSpace(p.Error) == "" {
			return Event{}, fmt.Errorf("error: %w: error", ErrMissingField)
		}
		ev.Error = &p
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, msg.Type)
	}
	return ev, nil
}
