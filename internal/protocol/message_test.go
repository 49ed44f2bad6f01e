package protocol

import (
	"encoding/json"
	"testing"
)

func TestUserMessageWireShape(t *testing.T) {
	raw, err := json.Marshal(NewUserMessage("skip the optional checks"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"user_message","content":"skip the optional checks"}`
	if string(raw) != want {
		t.Fatalf("frame = %s, want %s", raw, want)
	}
}

func TestStreamMessageEnvelope(t *testing.T) {
	msg := StreamMessage{
		Type:      "thought",
		Content:   MustRaw(map[string]string{"text": "hi"}),
		AgentName: "coder-1",
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back StreamMessage
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Type != "thought" || back.AgentName != "coder-1" {
		t.Fatalf("envelope = %+v", back)
	}
	var content map[string]string
	if err := json.Unmarshal(back.Content, &content); err != nil || content["text"] != "hi" {
		t.Fatalf("content = %s", back.Content)
	}
}
