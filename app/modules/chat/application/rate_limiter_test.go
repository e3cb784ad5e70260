package chatservice

import (
	"testing"

	"github.com/google/uuid"
)

func TestTeamLimiter(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		l := newTeamLimiter(0)
		for i := 0; i < 100; i++ {
			if !l.Allow(uuid.New()) {
				t.Fatal("disabled limiter must allow")
			}
		}
	})

	t.Run("teams have separate buckets", func(t *testing.T) {
		l := newTeamLimiter(1)
		a, b := uuid.New(), uuid.New()
		if !l.Allow(a) || l.Allow(a) {
			t.Fatal("team a should get exactly one turn")
		}
		if !l.Allow(b) {
			t.Fatal("team b must not be limited by team a")
		}
	})

	t.Run("fractional rate still allows one", func(t *testing.T) {
		l := newTeamLimiter(0.5)
		if !l.Allow(uuid.New()) {
			t.Fatal("first turn must pass")
		}
	})
}
