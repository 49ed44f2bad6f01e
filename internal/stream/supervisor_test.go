package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func newTestSupervisor(dialer *fakeDialer) *Supervisor {
	return NewSupervisor(dialer, func(string) Options { return testOptions() }, nil)
}

func TestSupervisorAttachIsIdempotent(t *testing.T) {
	dialer := &fakeDialer{}
	sup := newTestSupervisor(dialer)
	defer sup.Detach()

	ctx := context.Background()
	first := sup.Attach(ctx, "t1")
	waitFor(t, "open", func() bool { return first.Snapshot().Connected })

	second := sup.Attach(ctx, "t1")
	if first != second {
		t.Fatalf("re-attach spawned a new manager")
	}
	if dialer.dialCount() != 1 {
		t.Fatalf("dial count = %d, want 1", dialer.dialCount())
	}
}

func TestSupervisorSwitchTearsDownPrevious(t *testing.T) {
	dialer := &fakeDialer{}
	sup := newTestSupervisor(dialer)
	defer sup.Detach()

	ctx := context.Background()
	first := sup.Attach(ctx, "t1")
	waitFor(t, "t1 open", func() bool { return first.Snapshot().Connected })

	second := sup.Attach(ctx, "t2")
	if second == first {
		t.Fatalf("switch reused the previous manager")
	}
	// By the time Attach returns the previous socket is released.
	if first.Snapshot().Connected {
		t.Fatalf("previous stream still connected after switch")
	}
	waitFor(t, "t2 open", func() bool { return second.Snapshot().Connected })

	mgr, taskID, ok := sup.Current()
	if !ok || taskID != "t2" || mgr != second {
		t.Fatalf("Current() = %v %q %v", mgr, taskID, ok)
	}
}

func TestSupervisorConcurrentAttachLeavesNoOrphan(t *testing.T) {
	for round := 0; round < 50; round++ {
		dialer := &fakeDialer{}
		sup := newTestSupervisor(dialer)
		ctx := context.Background()

		const goroutines = 8
		managers := make([]*Manager, goroutines)
		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				managers[i] = sup.Attach(ctx, fmt.Sprintf("t%d", i))
			}(i)
		}
		wg.Wait()

		winner, _, ok := sup.Current()
		if !ok {
			t.Fatalf("round %d: no manager attached after concurrent attaches", round)
		}
		// Every loser was torn down before its successor started.
		for i, m := range managers {
			if m != winner && m.Snapshot().Connected {
				t.Fatalf("round %d: manager %d still connected while not current", round, i)
			}
		}

		sup.Detach()
		for i, m := range managers {
			if m.Snapshot().Connected {
				t.Fatalf("round %d: manager %d still connected after Detach", round, i)
			}
		}
	}
}

func TestSupervisorDetach(t *testing.T) {
	dialer := &fakeDialer{}
	sup := newTestSupervisor(dialer)

	m := sup.Attach(context.Background(), "t1")
	waitFor(t, "open", func() bool { return m.Snapshot().Connected })

	sup.Detach()
	if m.Snapshot().Connected {
		t.Fatalf("stream still connected after detach")
	}
	if _, _, ok := sup.Current(); ok {
		t.Fatalf("Current() still reports a manager after detach")
	}

	// Detach with nothing attached is a no-op.
	sup.Detach()
}
