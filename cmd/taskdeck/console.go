package main

import (
	"fmt"
	"io"
	"sync"

	"taskdeck/internal/files"
	"taskdeck/internal/taskview"
)

// consolePrinter turns view snapshots into incremental console output. The
// manager delivers snapshots from a single goroutine; the mutex only guards
// against the artifact poller interleaving.
type consolePrinter struct {
	out    io.Writer
	onDone func()

	mu           sync.Mutex
	printed      int
	connected    bool
	sawConnected bool
	finished     bool
}

func newConsolePrinter(out io.Writer, onDone func()) *consolePrinter {
	return &consolePrinter{out: out, onDone: onDone}
}

func (p *consolePrinter) OnUpdate(v taskview.TaskView) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.sawConnected || p.connected != v.Connected {
		p.sawConnected = true
		p.connected = v.Connected
		if v.Connected {
			_, _ = fmt.Fprintln(p.out, "-- stream connected --")
		} else {
			_, _ = fmt.Fprintln(p.out, "-- stream disconnected --")
		}
	}

	entries := taskview.Transcript(v)
	total := v.DroppedEvents + len(entries)
	if fresh := total - p.printed; fresh > 0 {
		if fresh > len(entries) {
			fresh = len(entries)
		}
		for _, entry := range entries[len(entries)-fresh:] {
			name := entry.AgentName
			if name == "" {
				name = "orchestrator"
			}
			_, _ = fmt.Fprintf(p.out, "%-14s %-12s %s\n", entry.Kind, name, entry.Text)
		}
		p.printed = total
	}

	if (v.CompletedSeen || v.FailedSeen) && !p.finished {
		p.finished = true
		badge := taskview.StatusBadge(v)
		if v.Summary != "" {
			_, _ = fmt.Fprintf(p.out, "== task %s: %s ==\n", badge.Status, v.Summary)
		} else {
			_, _ = fmt.Fprintf(p.out, "== task %s ==\n", badge.Status)
		}
		if p.onDone != nil {
			p.onDone()
		}
	}
}

func (p *consolePrinter) OnArtifacts(artifacts []files.Artifact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, "-- %d artifact(s) --\n", len(artifacts))
	for _, a := range artifacts {
		_, _ = fmt.Fprintf(p.out, "   %s (%d bytes)\n", a.Path, a.Size)
	}
}
