// Package classifier owns the authoritative "current clipboard snapshot".
//
// The OS clipboard exposes no change events, only a monotonically increasing
// counter, so Monitor polls that counter on a fixed interval. When it moves,
// Monitor waits a short settle delay (the writer may still be populating the
// clipboard), classifies the contents and publishes a content-changed event.
// The polling goroutine is the only writer of the current snapshot.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/clipsave/internal/clip"
	"go.klb.dev/clipsave/internal/content"
	"go.klb.dev/clipsave/internal/hub"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultSettleDelay  = 100 * time.Millisecond
	DefaultPlaceholder  = "Welcome to clipsave! Copy something and save it from here."
)

// ErrInvalidInterval is returned by Start when no polling ticker can be
// created for the configured interval.
var ErrInvalidInterval = errors.New("classifier: poll interval must be positive")

// Options configures a Monitor. Zero durations are used as given; callers
// wanting the stock timings pass DefaultPollInterval and DefaultSettleDelay.
type Options struct {
	PollInterval time.Duration
	SettleDelay  time.Duration
	// Placeholder is the text shown before the first real clipboard change.
	Placeholder string
	Now         func() time.Time
	Logger      *slog.Logger
}

// Monitor polls a clipboard backend and publishes classified snapshots.
type Monitor struct {
	backend clip.Backend
	hub     *hub.Hub
	opts    Options
	log     *slog.Logger

	mu               sync.Mutex
	running          bool
	cancel           context.CancelFunc
	done             chan struct{}
	lastCount        int64
	seq              uint64
	current          content.Snapshot
	placeholderShown bool
	realSeen         bool
}

// New creates a Monitor but does not start it. The counter baseline is taken
// now, so whatever is already on the clipboard is not reported as a change;
// the placeholder snapshot stands in for it until the first real copy.
func New(backend clip.Backend, h *hub.Hub, opts Options) *Monitor {
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Monitor{
		backend:   backend,
		hub:       h,
		opts:      opts,
		log:       opts.Logger.With("component", "classifier"),
		lastCount: backend.ChangeCount(),
	}
	m.seq = 1
	m.current = content.Snapshot{
		Content:     content.NewText(opts.Placeholder),
		Seq:         m.seq,
		ChangeCount: m.lastCount,
		CapturedAt:  opts.Now(),
		Placeholder: true,
	}
	return m
}

// Start begins polling. Starting a running monitor is a no-op. The first
// Start of a Monitor also publishes the placeholder snapshot; later starts
// never do.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	if m.opts.PollInterval <= 0 {
		m.mu.Unlock()
		m.log.Error("failed to start monitoring", "interval", m.opts.PollInterval)
		return ErrInvalidInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.running = true
	m.cancel = cancel
	m.done = done
	emitPlaceholder := !m.placeholderShown
	m.placeholderShown = true
	snap := m.current
	m.mu.Unlock()

	m.log.Info("starting clipboard monitoring",
		"backend", m.backend.Name(),
		"interval", m.opts.PollInterval,
		"settle", m.opts.SettleDelay,
	)
	m.hub.Publish(hub.Event{Type: hub.TypeMonitoringStarted, At: m.opts.Now()})
	if emitPlaceholder {
		m.hub.Publish(hub.Event{Type: hub.TypeContentChanged, At: snap.CapturedAt, Snapshot: snap})
	}

	go m.run(ctx, done)
	return nil
}

// Stop halts polling and waits for the polling goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.log.Info("stopped clipboard monitoring")
	m.hub.Publish(hub.Event{Type: hub.TypeMonitoringStopped, At: m.opts.Now()})
}

// Reset is the recovery path for a monitor that appears stuck: it stops,
// relinquishes clipboard ownership (clearing the clipboard on macOS),
// re-baselines the counter and restarts.
// Once the placeholder phase is over the current contents are re-classified
// and published.
func (m *Monitor) Reset(ctx context.Context) error {
	m.Stop()
	if err := m.backend.Relinquish(); err != nil {
		m.log.Warn("relinquish clipboard ownership failed", "err", err)
	}

	m.mu.Lock()
	m.lastCount = m.backend.ChangeCount()
	placeholderPhase := !m.realSeen
	m.mu.Unlock()

	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("restart monitoring: %w", err)
	}
	if !placeholderPhase {
		snap := m.Refresh()
		m.hub.Publish(hub.Event{Type: hub.TypeContentChanged, At: snap.CapturedAt, Snapshot: snap})
	}
	m.log.Info("clipboard monitor reset")
	return nil
}

// Refresh classifies the clipboard immediately, replaces the current
// snapshot and returns it. No event is published.
func (m *Monitor) Refresh() content.Snapshot {
	count := m.backend.ChangeCount()
	c := Classify(m.backend)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCount = count
	m.realSeen = true
	return m.commitLocked(c, count)
}

// Current returns the current snapshot. Callers must treat it as a
// point-in-time copy and fetch again after any suspension point.
func (m *Monitor) Current() content.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Monitoring reports whether the polling loop is running.
func (m *Monitor) Monitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(m.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.poll(ctx)
		}
	}
}

// poll checks the counter once and reports whether a change was published.
func (m *Monitor) poll(ctx context.Context) bool {
	count := m.backend.ChangeCount()

	m.mu.Lock()
	prev := m.lastCount
	m.mu.Unlock()
	if count == prev {
		return false
	}
	m.log.Debug("detected clipboard change", "old_count", prev, "new_count", count)

	if d := m.opts.SettleDelay; d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}

	c := Classify(m.backend)

	m.mu.Lock()
	m.lastCount = count
	m.realSeen = true
	snap := m.commitLocked(c, count)
	m.mu.Unlock()

	m.hub.Publish(hub.Event{Type: hub.TypeContentChanged, At: snap.CapturedAt, Snapshot: snap})
	return true
}

func (m *Monitor) commitLocked(c content.Content, count int64) content.Snapshot {
	m.seq++
	m.current = content.Snapshot{
		Content:     c,
		Seq:         m.seq,
		ChangeCount: count,
		CapturedAt:  m.opts.Now(),
	}
	return m.current
}
