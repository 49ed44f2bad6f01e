package taskview

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"taskdeck/internal/event"
)

// Projections are pure selectors: the same TaskView always yields the same
// output, and none of them mutate the view.

type TranscriptEntry struct {
	Kind      event.Kind `json:"kind"`
	AgentName string     `json:"agent_name,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	Text      string     `json:"text"`
}

func Transcript(v TaskView) []TranscriptEntry {
	out := make([]TranscriptEntry, 0, len(v.Transcript))
	for _, ev := range v.Transcript {
		out = append(out, TranscriptEntry{
			Kind:      ev.Kind,
			AgentName: ev.AgentName,
			Timestamp: ev.Timestamp,
			Text:      formatEvent(ev),
		})
	}
	return out
}

func Plan(v TaskView) (string, bool) {
	return v.LatestPlan, v.HasPlan
}

type RosterEntry struct {
	Name   string      `json:"name"`
	Role   string      `json:"role"`
	Status AgentStatus `json:"status"`
}

func Roster(v TaskView) []RosterEntry {
	out := make([]RosterEntry, 0, len(v.Agents))
	for name, rec := range v.Agents {
		out = append(out, RosterEntry{Name: name, Role: rec.Role, Status: rec.Status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type Badge struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
}

func StatusBadge(v TaskView) Badge {
	return Badge{Connected: v.Connected, Status: v.TerminalStatus()}
}

func Screenshot(v TaskView) (string, bool) {
	return v.LatestScreenshot, v.LatestScreenshot != ""
}

func formatEvent(ev event.Event) string {
	switch ev.Kind {
	case event.KindThought:
		if ev.Thought != nil {
			return ev.Thought.Text
		}
	case event.KindToolCall:
		if ev.ToolCall != nil {
			if len(ev.ToolCall.Arguments) > 0 {
				return fmt.Sprintf("%s %s", ev.ToolCall.Tool, compactArgs(string(ev.ToolCall.Arguments)))
			}
			return ev.ToolCall.Tool
		}
	case event.KindToolResult:
		if ev.ToolResult != nil {
			status := "ok"
			if !ev.ToolResult.Success {
				status = "failed"
			}
			return fmt.Sprintf("%s %s: %s", ev.ToolResult.Tool, status, ev.ToolResult.Output)
		}
	case event.KindPlanUpdate:
		return "plan updated"
	case event.KindAgentSpawn:
		if ev.AgentSpawn != nil {
			return fmt.Sprintf("spawned %s (%s)", ev.AgentSpawn.Name, ev.AgentSpawn.Role)
		}
	case event.KindAgentComplete:
		if ev.AgentComplete != nil {
			return fmt.Sprintf("%s completed", ev.AgentComplete.Name)
		}
	case event.KindTaskStarted:
		if ev.TaskStarted != nil && ev.TaskStarted.Description != "" {
			return "task started: " + ev.TaskStarted.Description
		}
		return "task started"
	case event.KindTaskComplete:
		if ev.TaskComplete != nil && ev.TaskComplete.Summary != "" {
			return "task complete: " + ev.TaskComplete.Summary
		}
		return "task complete"
	case event.KindError:
		if ev.Error != nil {
			return "error: " + ev.Error.Error
		}
	}
	return string(ev.Kind)
}

func compactArgs(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if len(s) > 120 {
		cut := 120
		// Back up to a rune boundary so the cut never splits a character.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "…"
	}
	return s
}
