package holder

import (
	"Painter/lib/sl"
	"Painter/metrics"
	"context"
	"log/slog"
	"time"
)

// FileCleaner removes generated files older than its ttl
type FileCleaner interface {
	Clean(now time.Time) int
}

// Janitor periodically evicts idle sessions and old image files
type Janitor struct {
	sessions   *SessionManager
	cleaner    FileCleaner
	metrics    metrics.Metrics
	sessionTTL time.Duration
	interval   time.Duration
	log        *slog.Logger
}

func NewJanitor(sessions *SessionManager, cleaner FileCleaner, m metrics.Metrics, sessionTTL, interval time.Duration, log *slog.Logger) *Janitor {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Janitor{
		sessions:   sessions,
		cleaner:    cleaner,
		metrics:    m,
		sessionTTL: sessionTTL,
		interval:   interval,
		log:        log.With(sl.Module("janitor")),
	}
}

// Run sweeps on every tick until ctx is done
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.log.Info("janitor started", slog.Duration("interval", j.interval))
	j.RunOnce(time.Now())

	for {
		select {
		case now := <-ticker.C:
			j.RunOnce(now)
		case <-ctx.Done():
			j.log.Info("janitor stopped")
			return nil
		}
	}
}

func (j *Janitor) RunOnce(now time.Time) {
	evicted := 0
	if j.sessionTTL > 0 {
		evicted = j.sessions.Sweep(j.sessionTTL)
	}
	removed := 0
	if j.cleaner != nil {
		removed = j.cleaner.Clean(now)
	}
	count := j.sessions.Count()
	j.metrics.SetSessions(count)

	if evicted > 0 || removed > 0 {
		j.log.With(
			slog.Int("sessions_evicted", evicted),
			slog.Int("files_removed", removed),
			slog.Int("sessions", count),
		).Info("cleanup done")
	}
}
