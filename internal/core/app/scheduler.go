package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"glot/internal/core/ports"
	"glot/internal/engine/resolve"
	"glot/internal/shared/observability"
	"glot/internal/shared/util"
)

// Job is one queued background resolution for a buffer at a specific
// version. Versions are assigned by the buffer owner and only ever grow.
type Job struct {
	ID       string
	BufferID string
	Version  uint64
	Identity resolve.Identity
	Regions  []resolve.Region
	Sub      resolve.SubRegionsFunc
}

// Scheduler runs buffer resolutions off the editor thread. Results apply
// last-writer-wins by buffer version: a result computed for an older version
// than the newest enqueued one is discarded, never applied over a newer one.
type Scheduler struct {
	app     *App
	sink    ports.ResolutionSink
	jobs    chan Job
	limiter *util.Limiter

	mu      sync.Mutex
	latest  map[string]uint64
	applied map[string]uint64
	// buffers holds the last applied resolution per buffer; it only ever
	// donates its span cache to the next compute, never mutates.
	buffers map[string]*resolve.ResolvedBuffer

	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(a *App, sink ports.ResolutionSink) *Scheduler {
	cfg := a.Config.Resolver
	return &Scheduler{
		app:     a,
		sink:    sink,
		jobs:    make(chan Job, cfg.QueueCapacity),
		limiter: util.NewLimiter(cfg.Rate, cfg.Burst),
		latest:  make(map[string]uint64),
		applied: make(map[string]uint64),
		buffers: make(map[string]*resolve.ResolvedBuffer),
	}
}

func (s *Scheduler) Start() {
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}

// Enqueue schedules a resolution for a buffer version. The returned job id
// identifies the attempt in logs. Under backpressure the job is dropped and
// ok is false; the caller re-enqueues on the next edit.
func (s *Scheduler) Enqueue(bufferID string, version uint64, identity resolve.Identity, regions []resolve.Region, sub resolve.SubRegionsFunc) (jobID string, ok bool) {
	s.mu.Lock()
	if version > s.latest[bufferID] {
		s.latest[bufferID] = version
	}
	s.mu.Unlock()

	job := Job{
		ID:       uuid.NewString(),
		BufferID: bufferID,
		Version:  version,
		Identity: identity,
		Regions:  regions,
		Sub:      sub,
	}

	select {
	case s.jobs <- job:
		observability.ResolutionQueueDepth.Set(float64(len(s.jobs)))
		return job.ID, true
	default:
		observability.ResolutionJobsDroppedTotal.Inc()
		slog.Debug("resolution queue full, dropping job",
			"job", job.ID, "buffer", bufferID, "version", version)
		return "", false
	}
}

// Forget drops all scheduler state for a closed buffer.
func (s *Scheduler) Forget(bufferID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, bufferID)
	delete(s.applied, bufferID)
	delete(s.buffers, bufferID)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			observability.ResolutionQueueDepth.Set(float64(len(s.jobs)))
			if err := s.limiter.Wait(ctx, 1); err != nil {
				return
			}
			s.process(ctx, job)
		}
	}
}

// process resolves one job and applies the result unless a newer version
// has been enqueued or applied in the meantime. Each job computes into a
// fresh buffer: the one handed to the sink is never touched again, so a
// discarded result cannot overwrite an applied one and sink readers never
// observe a resolution mid-compute.
func (s *Scheduler) process(ctx context.Context, job Job) {
	s.mu.Lock()
	latest := s.latest[job.BufferID]
	prev := s.buffers[job.BufferID]
	s.mu.Unlock()
	if job.Version < latest {
		observability.StaleResolutionsDiscarded.Inc()
		slog.Debug("discarding stale resolution before compute",
			"job", job.ID, "buffer", job.BufferID, "version", job.Version, "latest", latest)
		return
	}

	language := s.app.Resolve(job.Identity)
	buf := resolve.NewResolvedBuffer(language)
	if prev != nil && prev.Language == language {
		// Same language as the last applied resolution: keep its span
		// memoization. A language change invalidates the cache wholesale.
		buf.InheritSpanCache(prev)
	}
	buf.Root, buf.RootFound = s.app.RootOf(ctx, job.Identity.Path, language)
	s.app.InjectionsFor(buf, job.Regions, job.Sub)
	buf.Version = job.Version

	s.mu.Lock()
	if applied, ok := s.applied[job.BufferID]; ok && job.Version <= applied {
		s.mu.Unlock()
		observability.StaleResolutionsDiscarded.Inc()
		slog.Debug("discarding stale resolution after compute",
			"job", job.ID, "buffer", job.BufferID, "version", job.Version, "applied", applied)
		return
	}
	s.applied[job.BufferID] = job.Version
	s.buffers[job.BufferID] = buf
	s.mu.Unlock()

	s.sink.ApplyResolution(job.BufferID, buf)
}
