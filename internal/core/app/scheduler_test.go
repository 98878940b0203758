package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"glot/internal/core/config"
	"glot/internal/engine/resolve"
)

type recordingSink struct {
	mu      sync.Mutex
	applied []appliedResolution
}

type appliedResolution struct {
	bufferID string
	language string
	version  uint64
	buf      *resolve.ResolvedBuffer
}

func (s *recordingSink) ApplyResolution(bufferID string, buf *resolve.ResolvedBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, appliedResolution{
		bufferID: bufferID,
		language: buf.Language,
		version:  buf.Version,
		buf:      buf,
	})
}

func (s *recordingSink) snapshot() []appliedResolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]appliedResolution(nil), s.applied...)
}

func newTestScheduler(t *testing.T) (*Scheduler, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	return NewScheduler(newTestApp(t), sink), sink
}

func TestSchedulerAppliesNewestVersion(t *testing.T) {
	s, sink := newTestScheduler(t)
	identity := resolve.Identity{Path: "src/main.rs"}

	if _, ok := s.Enqueue("buf-1", 1, identity, nil, nil); !ok {
		t.Fatal("enqueue v1 failed")
	}
	if _, ok := s.Enqueue("buf-1", 2, identity, nil, nil); !ok {
		t.Fatal("enqueue v2 failed")
	}

	ctx := context.Background()
	s.process(ctx, <-s.jobs)
	s.process(ctx, <-s.jobs)

	applied := sink.snapshot()
	if len(applied) != 1 {
		t.Fatalf("expected exactly one applied resolution, got %d", len(applied))
	}
	if applied[0].version != 2 || applied[0].language != "rust" {
		t.Errorf("expected rust at version 2, got %+v", applied[0])
	}
}

func TestSchedulerNeverAppliesOverNewerResult(t *testing.T) {
	s, sink := newTestScheduler(t)
	identity := resolve.Identity{Path: "src/main.rs"}

	if _, ok := s.Enqueue("buf-1", 2, identity, nil, nil); !ok {
		t.Fatal("enqueue failed")
	}
	ctx := context.Background()
	s.process(ctx, <-s.jobs)

	// A duplicate of an already-applied version must be discarded too.
	s.process(ctx, Job{ID: "dup", BufferID: "buf-1", Version: 2, Identity: identity})

	if applied := sink.snapshot(); len(applied) != 1 {
		t.Fatalf("expected duplicate version to be discarded, got %d applies", len(applied))
	}
}

func TestSchedulerDiscardedResultLeavesAppliedBufferIntact(t *testing.T) {
	s, sink := newTestScheduler(t)
	identity := resolve.Identity{Path: "notes.md"}
	regions := []resolve.Region{{
		Span:    resolve.Span{Start: 10, End: 40},
		Hint:    resolve.Hint{Kind: resolve.HintName, Text: "python"},
		Content: []byte("x = 1\n"),
	}}

	if _, ok := s.Enqueue("buf-1", 2, identity, regions, nil); !ok {
		t.Fatal("enqueue failed")
	}
	ctx := context.Background()
	s.process(ctx, <-s.jobs)

	held := sink.snapshot()[0].buf
	if len(held.Injections) != 1 {
		t.Fatalf("expected one injection applied, got %d", len(held.Injections))
	}

	// A discarded duplicate carrying different regions must not touch the
	// resolution the sink already holds.
	s.process(ctx, Job{ID: "dup", BufferID: "buf-1", Version: 2, Identity: identity})

	if applied := sink.snapshot(); len(applied) != 1 {
		t.Fatalf("expected the duplicate to be discarded, got %d applies", len(applied))
	}
	if len(held.Injections) != 1 || held.Injections[0].Language != "python" {
		t.Errorf("discarded job mutated the applied buffer: injections %+v", held.Injections)
	}
	if held.CachedSpanCount() != 1 {
		t.Errorf("discarded job disturbed the applied span cache: %d entries", held.CachedSpanCount())
	}
	if held.Version != 2 {
		t.Errorf("applied buffer version changed to %d", held.Version)
	}
}

func TestSchedulerDropsOnBackpressure(t *testing.T) {
	cfg := config.Default()
	cfg.Resolver.QueueCapacity = 1
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	s := NewScheduler(a, &recordingSink{})
	identity := resolve.Identity{Path: "a.py"}

	if _, ok := s.Enqueue("buf-1", 1, identity, nil, nil); !ok {
		t.Fatal("first enqueue must fit the queue")
	}
	if _, ok := s.Enqueue("buf-1", 2, identity, nil, nil); ok {
		t.Fatal("expected second enqueue to be dropped under backpressure")
	}
}

func TestSchedulerReusesSpanCacheAcrossVersions(t *testing.T) {
	s, sink := newTestScheduler(t)
	identity := resolve.Identity{Path: "notes.md"}
	span := resolve.Span{Start: 10, End: 40}
	content := []byte("x = 1\n")
	regions := []resolve.Region{{
		Span:    span,
		Hint:    resolve.Hint{Kind: resolve.HintName, Text: "python"},
		Content: content,
	}}

	ctx := context.Background()
	if _, ok := s.Enqueue("buf-1", 1, identity, regions, nil); !ok {
		t.Fatal("enqueue failed")
	}
	s.process(ctx, <-s.jobs)

	// Same span and content, but a hint no injection regex matches: only a
	// memoized entry carried over from version 1 can resolve it.
	unresolvable := []resolve.Region{{
		Span:    span,
		Hint:    resolve.Hint{Kind: resolve.HintName, Text: "zzzz"},
		Content: content,
	}}
	if _, ok := s.Enqueue("buf-1", 2, identity, unresolvable, nil); !ok {
		t.Fatal("enqueue failed")
	}
	s.process(ctx, <-s.jobs)

	applied := sink.snapshot()
	if len(applied) != 2 {
		t.Fatalf("expected two applies, got %d", len(applied))
	}
	if applied[0].buf == applied[1].buf {
		t.Error("expected each version to apply a distinct snapshot")
	}
	second := applied[1].buf
	if len(second.Injections) != 1 || second.Injections[0].Language != "python" {
		t.Fatalf("expected the memoized span to survive into version 2, got %+v", second.Injections)
	}
}

func TestSchedulerDropsSpanCacheOnLanguageChange(t *testing.T) {
	s, sink := newTestScheduler(t)
	span := resolve.Span{Start: 10, End: 40}
	content := []byte("x = 1\n")
	regions := []resolve.Region{{
		Span:    span,
		Hint:    resolve.Hint{Kind: resolve.HintName, Text: "python"},
		Content: content,
	}}

	ctx := context.Background()
	if _, ok := s.Enqueue("buf-1", 1, resolve.Identity{Path: "notes.md"}, regions, nil); !ok {
		t.Fatal("enqueue failed")
	}
	s.process(ctx, <-s.jobs)

	// The buffer re-resolves to a different language; the old memoized span
	// must not leak into it, so the unresolvable hint stays unresolved.
	unresolvable := []resolve.Region{{
		Span:    span,
		Hint:    resolve.Hint{Kind: resolve.HintName, Text: "zzzz"},
		Content: content,
	}}
	if _, ok := s.Enqueue("buf-1", 2, resolve.Identity{Path: "notes.go"}, unresolvable, nil); !ok {
		t.Fatal("enqueue failed")
	}
	s.process(ctx, <-s.jobs)

	applied := sink.snapshot()
	if len(applied) != 2 {
		t.Fatalf("expected two applies, got %d", len(applied))
	}
	second := applied[1].buf
	if second.Language != "go" {
		t.Fatalf("expected language go after the edit, got %q", second.Language)
	}
	if len(second.Injections) != 0 {
		t.Errorf("expected no injections after the cache reset, got %+v", second.Injections)
	}
}

func TestSchedulerForget(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.process(context.Background(), Job{ID: "j1", BufferID: "buf-1", Version: 1, Identity: resolve.Identity{Path: "a.py"}})

	s.Forget("buf-1")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buffers["buf-1"]; ok {
		t.Error("expected buffer state to be dropped on forget")
	}
	if _, ok := s.applied["buf-1"]; ok {
		t.Error("expected applied version to be dropped on forget")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s, sink := newTestScheduler(t)
	s.Start()
	defer s.Stop()

	if _, ok := s.Enqueue("buf-1", 1, resolve.Identity{Path: "src/lib.rs"}, nil, nil); !ok {
		t.Fatal("enqueue failed")
	}

	deadline := time.After(2 * time.Second)
	for {
		if applied := sink.snapshot(); len(applied) == 1 {
			if applied[0].language != "rust" {
				t.Fatalf("expected rust, got %+v", applied[0])
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the worker to apply the resolution")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
