package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	searchErrors "github.com/gcbaptista/go-help-search/internal/errors"
	"github.com/gcbaptista/go-help-search/internal/jobs"
	"github.com/gcbaptista/go-help-search/internal/search"
	"github.com/gcbaptista/go-help-search/model"
)

// Session is one client's search panel.
type Session struct {
	ID        string
	Panel     *search.Panel
	CreatedAt time.Time
	lastUsed  time.Time
}

// jobExecutor runs query phases as tracked jobs owned by a session.
type jobExecutor struct {
	jobs  *jobs.Manager
	owner string
}

func (x jobExecutor) Execute(ctx context.Context, run func(ctx context.Context) error) error {
	_, err := x.jobs.Submit(ctx, model.JobTypeQuery, x.owner, nil, func(ctx context.Context, _ *model.Job) error {
		return run(ctx)
	})
	return err
}

// CreateSession opens a new search panel. When the session limit is
// reached the least recently used sessions are closed.
func (e *Engine) CreateSession() model.SessionInfo {
	id := uuid.New().String()

	opts := []search.Option{
		search.WithLogger(e.logger.With().Str("session", id).Logger()),
		search.WithExecutor(jobExecutor{jobs: e.jobManager, owner: id}),
		search.WithMetrics(e.metrics),
	}
	if e.tracer != nil {
		opts = append(opts, search.WithTracer(e.tracer))
	}
	if e.observerFor != nil {
		opts = append(opts, search.WithObserver(e.observerFor(id)))
	}

	now := time.Now()
	s := &Session{
		ID:        id,
		Panel:     search.NewPanel(e.catalog, e.loader, e.opts.Panel, opts...),
		CreatedAt: now,
		lastUsed:  now,
	}

	e.mu.Lock()
	e.evictOldestLocked(e.opts.MaxSessions - 1)
	e.sessions[id] = s
	count := len(e.sessions)
	e.mu.Unlock()

	e.metrics.SetActiveSessions(count)
	e.logger.Debug().Str("session", id).Int("sessions", count).Msg("session created")
	return model.SessionInfo{ID: id, CreatedAt: now, LastUsed: now}
}

// Session returns the panel of a session and marks it used.
func (e *Engine) Session(id string) (*search.Panel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[id]
	if !ok {
		return nil, searchErrors.NewSessionNotFoundError(id)
	}
	s.lastUsed = time.Now()
	return s.Panel, nil
}

// DeleteSession closes a session.
func (e *Engine) DeleteSession(id string) error {
	e.mu.Lock()
	s, ok := e.sessions[id]
	if ok {
		delete(e.sessions, id)
	}
	count := len(e.sessions)
	e.mu.Unlock()

	if !ok {
		return searchErrors.NewSessionNotFoundError(id)
	}
	s.Panel.Close()
	e.metrics.SetActiveSessions(count)
	return nil
}

// Sessions lists open sessions, oldest first.
func (e *Engine) Sessions() []model.SessionInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]model.SessionInfo, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, model.SessionInfo{ID: s.ID, CreatedAt: s.CreatedAt, LastUsed: s.lastUsed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// evictOldestLocked closes least recently used sessions until at most keep
// remain.
func (e *Engine) evictOldestLocked(keep int) {
	if len(e.sessions) <= keep {
		return
	}
	byUse := make([]*Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		byUse = append(byUse, s)
	}
	sort.Slice(byUse, func(i, j int) bool { return byUse[i].lastUsed.Before(byUse[j].lastUsed) })

	for _, s := range byUse[:len(byUse)-keep] {
		s.Panel.Close()
		delete(e.sessions, s.ID)
		e.logger.Debug().Str("session", s.ID).Msg("session evicted")
	}
}

// ExpireSessions closes sessions idle for longer than the TTL and returns
// how many were closed.
func (e *Engine) ExpireSessions(now time.Time) int {
	cutoff := now.Add(-e.opts.SessionTTL)

	e.mu.Lock()
	expired := 0
	for id, s := range e.sessions {
		if s.lastUsed.Before(cutoff) {
			s.Panel.Close()
			delete(e.sessions, id)
			expired++
		}
	}
	count := len(e.sessions)
	e.mu.Unlock()

	if expired > 0 {
		e.metrics.SetActiveSessions(count)
		e.logger.Debug().Int("expired", expired).Int("sessions", count).Msg("expired idle sessions")
	}
	return expired
}

// janitor periodically expires idle sessions
func (e *Engine) janitor() {
	interval := e.opts.SessionTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			e.ExpireSessions(now)
		case <-e.stopChan:
			return
		}
	}
}
