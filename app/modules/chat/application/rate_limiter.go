package chatservice

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is the duration after which an idle team entry is eligible for cleanup.
	maxIdleAge = 10 * time.Minute
)

type teamEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// teamLimiter is a per-team token bucket. A nil limiter allows everything.
type teamLimiter struct {
	mu    sync.Mutex
	teams map[uuid.UUID]*teamEntry
	r     rate.Limit
	b     int
}

func newTeamLimiter(perMinute float64) *teamLimiter {
	if perMinute <= 0 {
		return nil
	}
	burst := int(perMinute)
	if burst < 1 {
		burst = 1
	}
	return &teamLimiter{
		teams: make(map[uuid.UUID]*teamEntry),
		r:     rate.Limit(perMinute / 60),
		b:     burst,
	}
}

// Allow spends one token of the team's bucket.
func (l *teamLimiter) Allow(teamID uuid.UUID) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if len(l.teams) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range l.teams {
			if e.lastSeen.Before(cutoff) {
				delete(l.teams, k)
			}
		}
	}

	e, ok := l.teams[teamID]
	if !ok {
		e = &teamEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.teams[teamID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
