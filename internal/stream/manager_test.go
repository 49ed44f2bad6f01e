package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"taskdeck/internal/taskview"
)

type fakeDialer struct {
	mu    sync.Mutex
	err   error
	socks []*FakeSocket
	urls  []string
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	sock := NewFakeSocket()
	d.socks = append(d.socks, sock)
	return sock, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.socks)
}

func (d *fakeDialer) socket(i int) *FakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.socks) {
		return nil
	}
	return d.socks[i]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testOptions() Options {
	return Options{
		BaseURL:     "http://127.0.0.1:8000",
		BackoffBase: time.Millisecond,
		BackoffCap:  2 * time.Millisecond,
	}
}

func TestWSURL(t *testing.T) {
	cases := []struct{ base, want string }{
		{"http://127.0.0.1:8000", "ws://127.0.0.1:8000/ws/task/t1"},
		{"http://host:8000/", "ws://host:8000/ws/task/t1"},
		{"https://deck.example.com", "wss://deck.example.com/ws/task/t1"},
	}
	for _, tc := range cases {
		if got := WSURL(tc.base, "t1"); got != tc.want {
			t.Fatalf("WSURL(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}
}

func TestManagerAppliesEventsInOrder(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewManager("t1", dialer, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = m.Run(ctx)
	}()

	waitFor(t, "dial", func() bool { return dialer.dialCount() == 1 })
	sock := dialer.socket(0)
	waitFor(t, "open", func() bool { return m.Snapshot().Connected })

	sock.EmitText(`{"type":"task_started","content":{"description":"demo"}}`)
	sock.EmitText(`{"type":"thought","content":{"text":"first"}}`)
	sock.EmitText(`{"type":"thought","content":{"text":"second"}}`)
	waitFor(t, "events applied", func() bool { return len(m.Snapshot().Transcript) == 3 })

	v := m.Snapshot()
	if v.Transcript[1].Thought.Text != "first" || v.Transcript[2].Thought.Text != "second" {
		t.Fatalf("events out of order: %+v", taskview.Transcript(v))
	}

	cancel()
	<-runDone
}

func TestManagerReconnectsAndKeepsView(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewManager("t1", dialer, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	waitFor(t, "first dial", func() bool { return dialer.dialCount() == 1 })
	first := dialer.socket(0)
	waitFor(t, "open", func() bool { return m.Snapshot().Connected })
	first.EmitText(`{"type":"thought","content":{"text":"kept"}}`)
	waitFor(t, "event applied", func() bool { return len(m.Snapshot().Transcript) == 1 })

	first.CloseFromServer()
	waitFor(t, "second dial", func() bool { return dialer.dialCount() == 2 })
	waitFor(t, "reopened", func() bool { return m.Snapshot().Connected })

	v := m.Snapshot()
	if len(v.Transcript) != 1 || v.Transcript[0].Thought.Text != "kept" {
		t.Fatalf("view lost across reconnect: %+v", taskview.Transcript(v))
	}
	if m.LastCloseReason() == "" {
		t.Fatalf("close reason not recorded")
	}
}

func TestManagerGivesUpAfterBudget(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("connection refused")}
	opts := testOptions()
	opts.MaxReconnects = 2
	m := NewManager("t1", dialer, opts)

	err := m.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error after exhausting reconnects")
	}
	if m.Snapshot().Connected {
		t.Fatalf("view still marked connected")
	}
}

func TestManagerStopsOnCancel(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewManager("t1", dialer, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- m.Run(ctx) }()

	waitFor(t, "open", func() bool { return m.Snapshot().Connected })
	cancel()

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run returned %v on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
	if m.State() != StateDisconnected {
		t.Fatalf("state after stop = %v", m.State())
	}
}

func TestSendCommandWhileOpen(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewManager("t1", dialer, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	waitFor(t, "open", func() bool { return m.Snapshot().Connected })
	if !m.SendCommand(ctx, "please stop after this step") {
		t.Fatalf("SendCommand failed on open stream")
	}

	sock := dialer.socket(0)
	var frames []string
	waitFor(t, "frame written", func() bool {
		frames = append(frames, sock.Written()...)
		return len(frames) == 1
	})

	var sent struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(frames[0]), &sent); err != nil {
		t.Fatalf("unmarshal sent frame: %v", err)
	}
	if sent.Type != "user_message" || sent.Content != "please stop after this step" {
		t.Fatalf("sent frame = %+v", sent)
	}
}

func TestSendCommandDroppedWhileDisconnected(t *testing.T) {
	m := NewManager("t1", &fakeDialer{}, testOptions())
	if m.SendCommand(context.Background(), "hello") {
		t.Fatalf("SendCommand succeeded with no connection")
	}
}

func TestMalformedFrameKeepsStreamAlive(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewManager("t1", dialer, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	waitFor(t, "open", func() bool { return m.Snapshot().Connected })
	sock := dialer.socket(0)

	sock.EmitText(`not json at all`)
	sock.EmitText(`{"type":"heartbeat","content":{}}`)
	sock.EmitText(`{"type":"thought","content":{"text":"still here"}}`)
	waitFor(t, "valid event applied", func() bool { return len(m.Snapshot().Transcript) == 1 })

	v := m.Snapshot()
	if !v.Connected || v.Transcript[0].Thought.Text != "still here" {
		t.Fatalf("stream state after junk frames: connected=%v transcript=%+v", v.Connected, taskview.Transcript(v))
	}
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	m := NewManager("t1", &fakeDialer{}, Options{})

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		if got := m.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestSetPolledStatusNotifies(t *testing.T) {
	var mu sync.Mutex
	var last taskview.TaskView
	opts := testOptions()
	opts.OnUpdate = func(v taskview.TaskView) {
		mu.Lock()
		last = v
		mu.Unlock()
	}
	m := NewManager("t1", &fakeDialer{}, opts)

	m.SetPolledStatus("running")

	mu.Lock()
	defer mu.Unlock()
	if last.PolledStatus != "running" {
		t.Fatalf("OnUpdate snapshot = %+v", last)
	}
	if last.TerminalStatus() != "running" {
		t.Fatalf("status = %q", last.TerminalStatus())
	}
}
