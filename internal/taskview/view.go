// Package taskview materializes an ordered event stream into the derived
// state of one task, and projects read-only views from it.
package taskview

import "taskdeck/internal/event"

type AgentStatus string

const (
	AgentRunning   AgentStatus = "running"
	AgentCompleted AgentStatus = "completed"
)

type AgentRecord struct {
	Role   string
	Status AgentStatus
}

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// TaskView is the derived state for one task id. It is owned by a single
// writer; readers get copies via Clone.
type TaskView struct {
	TaskID string

	// Transcript holds every applied non-screenshot event in delivery
	// order, capped at TranscriptLimit. DroppedEvents counts entries
	// evicted by the cap.
	Transcript    []event.Event
	DroppedEvents int

	LatestPlan       string
	HasPlan          bool
	LatestScreenshot string

	Agents map[string]AgentRecord

	Connected    bool
	PolledStatus string

	CompletedSeen bool
	FailedSeen    bool
	Summary       string

	TranscriptLimit int
}

func New(taskID string, transcriptLimit int) TaskView {
	return TaskView{
		TaskID:          taskID,
		Agents:          map[string]AgentRecord{},
		TranscriptLimit: transcriptLimit,
	}
}

// Reduce applies one decoded event and returns the next state. It never
// reorders, never fails: an event referencing an unknown agent is ignored
// and everything else degrades to an upsert.
func Reduce(v TaskView, ev event.Event) TaskView {
	switch ev.Kind {
	case event.KindScreenshot:
		// View-only side channel. Never enters the transcript.
		if ev.Screenshot != nil {
			v.LatestScreenshot = ev.Screenshot.Image
		}
		return v
	case event.KindPlanUpdate:
		if ev.PlanUpdate != nil {
			v.LatestPlan = ev.PlanUpdate.Plan
			v.HasPlan = true
		}
	case event.KindAgentSpawn:
		if ev.AgentSpawn != nil {
			agents := cloneAgents(v.Agents)
			agents[ev.AgentSpawn.Name] = AgentRecord{Role: ev.AgentSpawn.Role, Status: AgentRunning}
			v.Agents = agents
		}
	case event.KindAgentComplete:
		if ev.AgentComplete != nil {
			if rec, ok := v.Agents[ev.AgentComplete.Name]; ok {
				agents := cloneAgents(v.Agents)
				rec.Status = AgentCompleted
				agents[ev.AgentComplete.Name] = rec
				v.Agents = agents
			}
		}
	case event.KindTaskComplete:
		v.CompletedSeen = true
		if ev.TaskComplete != nil {
			v.Summary = ev.TaskComplete.Summary
		}
	case event.KindError:
		v.FailedSeen = true
	}

	v.Transcript = append(v.Transcript[:len(v.Transcript):len(v.Transcript)], ev)
	if v.TranscriptLimit > 0 && len(v.Transcript) > v.TranscriptLimit {
		over := len(v.Transcript) - v.TranscriptLimit
		trimmed := make([]event.Event, v.TranscriptLimit)
		copy(trimmed, v.Transcript[over:])
		v.Transcript = trimmed
		v.DroppedEvents += over
	}
	return v
}

// TerminalStatus derives the task status. Live terminal signals win over the
// polled registry status because the poll can lag the stream.
func (v TaskView) TerminalStatus() string {
	switch {
	case v.CompletedSeen:
		return StatusCompleted
	case v.FailedSeen:
		return StatusFailed
	case v.Connected:
		return StatusRunning
	case v.PolledStatus != "":
		return v.PolledStatus
	default:
		return StatusPending
	}
}

// Clone returns an independent copy safe to hand to readers.
func (v TaskView) Clone() TaskView {
	out := v
	out.Transcript = make([]event.Event, len(v.Transcript))
	copy(out.Transcript, v.Transcript)
	out.Agents = cloneAgents(v.Agents)
	return out
}

func cloneAgents(in map[string]AgentRecord) map[string]AgentRecord {
	out := make(map[string]AgentRecord, len(in))
	for name, rec := range in {
		out[name] = rec
	}
	return out
}
