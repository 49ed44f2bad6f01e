package localapi

import "taskdeck/internal/taskview"

// TaskViewPayload is the JSON shape of one projection snapshot.
type TaskViewPayload struct {
	TaskID        string                     `json:"task_id"`
	Badge         taskview.Badge             `json:"badge"`
	Plan          string                     `json:"plan,omitempty"`
	HasPlan       bool                       `json:"has_plan"`
	Roster        []taskview.RosterEntry     `json:"roster"`
	Transcript    []taskview.TranscriptEntry `json:"transcript"`
	Screenshot    string                     `json:"screenshot,omitempty"`
	HasScreenshot bool                       `json:"has_screenshot"`
	DroppedEvents int                        `json:"dropped_events,omitempty"`
}

func ViewPayload(v taskview.TaskView) TaskViewPayload {
	plan, hasPlan := taskview.Plan(v)
	shot, hasShot := taskview.Screenshot(v)
	return TaskViewPayload{
		TaskID:        v.TaskID,
		Badge:         taskview.StatusBadge(v),
		Plan:          plan,
		HasPlan:       hasPlan,
		Roster:        taskview.Roster(v),
		Transcript:    taskview.Transcript(v),
		Screenshot:    shot,
		HasScreenshot: hasShot,
		DroppedEvents: v.DroppedEvents,
	}
}
