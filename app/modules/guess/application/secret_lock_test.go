package guessservice

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestSecretLocksSerializePerKey(t *testing.T) {
	locks := newSecretLocks()
	id := uuid.New()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(id)
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("%d holders at once, want 1", maxSeen)
	}
	if n := locks.size(); n != 0 {
		t.Fatalf("%d entries left, want 0", n)
	}
}

func TestSecretLocksIndependentKeys(t *testing.T) {
	locks := newSecretLocks()
	unlockA := locks.Lock(uuid.New())
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock(uuid.New())
		unlock()
		close(done)
	}()
	<-done
	unlockA()
}
