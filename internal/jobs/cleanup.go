package jobs

import (
	"log/slog"
	"time"
)

// SessionExpirer is the part of the session store the cleanup job needs.
type SessionExpirer interface {
	Expire(now time.Time) int
	Len() int
}

// SessionCleanupJob evicts dashboard sessions that have been idle longer
// than the store's timeout.
type SessionCleanupJob struct {
	store  SessionExpirer
	logger *slog.Logger
	now    func() time.Time
}

func NewSessionCleanupJob(store SessionExpirer, logger *slog.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Run removes idle sessions.
func (j *SessionCleanupJob) Run() error {
	removed := j.store.Expire(j.now())
	if removed == 0 {
		j.logger.Debug("No idle sessions to clean up")
		return nil
	}

	j.logger.Info("Cleaned up idle sessions",
		slog.Int("removed", removed),
		slog.Int("remaining", j.store.Len()))

	return nil
}
