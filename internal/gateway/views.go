package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lhdbsbz/applydesk/internal/chat"
	"github.com/robfig/cron/v3"
)

// minSweepInterval bounds how often Run sweeps, whatever the TTL.
var minSweepInterval = time.Minute

// ViewManager tracks the live page views and drops idle ones.
type ViewManager struct {
	mu     sync.RWMutex
	views  map[string]*View
	ttl    time.Duration
	asker  chat.Asker
	logger *slog.Logger
}

func NewViewManager(ttl time.Duration, asker chat.Asker, logger *slog.Logger) *ViewManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewManager{
		views:  make(map[string]*View),
		ttl:    ttl,
		asker:  asker,
		logger: logger,
	}
}

// Create starts a new page view with an empty transcript.
func (m *ViewManager) Create() *View {
	id := uuid.NewString()
	logger := m.logger.With("view", id)
	v := newView(id, chat.NewHandler(m.asker, chat.NewLog(), logger))

	m.mu.Lock()
	m.views[id] = v
	m.mu.Unlock()

	logger.Debug("view created")
	return v
}

// Get returns a view and marks it as seen.
func (m *ViewManager) Get(id string) (*View, bool) {
	m.mu.RLock()
	v, ok := m.views[id]
	m.mu.RUnlock()
	if ok {
		v.touch()
	}
	return v, ok
}

// Remove drops a view the page has left. It reports whether it existed.
func (m *ViewManager) Remove(id string) bool {
	m.mu.Lock()
	v, ok := m.views[id]
	delete(m.views, id)
	m.mu.Unlock()
	if ok {
		v.close()
		m.logger.Debug("view removed", "view", id, "age", time.Since(v.CreatedAt).Round(time.Second))
	}
	return ok
}

func (m *ViewManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views)
}

// SetTTL changes the idle timeout used by later sweeps.
func (m *ViewManager) SetTTL(ttl time.Duration) {
	m.mu.Lock()
	m.ttl = ttl
	m.mu.Unlock()
}

// Sweep drops views without sockets that have been idle longer than the TTL.
func (m *ViewManager) Sweep(now time.Time) int {
	m.mu.Lock()
	cutoff := now.Add(-m.ttl)
	var expired []*View
	for id, v := range m.views {
		if v.ConnCount() == 0 && v.LastSeen().Before(cutoff) {
			expired = append(expired, v)
			delete(m.views, id)
		}
	}
	m.mu.Unlock()

	for _, v := range expired {
		v.close()
		m.logger.Debug("view expired", "view", v.ID, "age", now.Sub(v.CreatedAt).Round(time.Second))
	}
	if len(expired) > 0 {
		m.logger.Debug("idle views dropped", "count", len(expired))
	}
	return len(expired)
}

// sweepSchedule is the cron schedule Run uses: a quarter of the TTL, bounded
// below by minSweepInterval.
func (m *ViewManager) sweepSchedule() string {
	m.mu.RLock()
	interval := m.ttl / 4
	m.mu.RUnlock()
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	return "@every " + interval.String()
}

// Run sweeps on a cron schedule until ctx is done. The interval is fixed
// when Run starts; SetTTL only changes what counts as idle.
func (m *ViewManager) Run(ctx context.Context) {
	c := cron.New()
	spec := m.sweepSchedule()
	if _, err := c.AddFunc(spec, func() { m.Sweep(time.Now()) }); err != nil {
		m.logger.Error("view sweep not scheduled", "spec", spec, "error", err)
		return
	}
	c.Start()
	m.logger.Debug("view sweep scheduled", "spec", spec)

	<-ctx.Done()
	<-c.Stop().Done()
}
