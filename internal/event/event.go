// Package event defines the closed set of task-execution events the
// orchestrator emits, and the decoder that narrows raw stream frames into it.
package event

import "encoding/json"

type Kind string

const (
	KindThought       Kind = "thought"
	KindToolCall      Kind = "tool_call"
	KindToolResult    Kind = "tool_result"
	KindScreenshot    Kind = "screenshot"
	KindPlanUpdate    Kind = "plan_update"
	KindAgentSpawn    Kind = "agent_spawn"
	KindAgentComplete Kind = "agent_complete"
	KindTaskStarted   Kind = "task_started"
	KindTaskComplete  Kind = "task_complete"
	KindError         Kind = "error"
)

type Thought struct {
	Text string `json:"text"`
}

type ToolCall struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type ToolResult struct {
	Tool    string `json:"tool"`
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

type Screenshot struct {
	Image string `json:"image"`
}

type PlanUpdate struct {
	Plan string `json:"plan"`
}

type AgentSpawn struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Task string `json:"task,omitempty"`
}

type AgentComplete struct {
	Name string `json:"name"`
}

type TaskStarted struct {
	Description string `json:"description,omitempty"`
}

type TaskComplete struct {
	Summary string `json:"summary"`
}

type ErrorInfo struct {
	Error string `json:"error"`
}

// Event is one decoded stream event. Exactly the payload matching Kind is
// non-nil; the envelope fields are optional on every kind.
type Event struct {
	Kind      Kind
	AgentName string
	AgentRole string
	Timestamp string

	Thought       *Thought
	ToolCall      *ToolCall
	ToolResult    *ToolResult
	Screenshot    *Screenshot
	PlanUpdate    *PlanUpdate
	AgentSpawn    *AgentSpawn
	AgentComplete *AgentComplete
	TaskStarted   *TaskStarted
	TaskComplete  *TaskComplete
	Error         *ErrorInfo
}
