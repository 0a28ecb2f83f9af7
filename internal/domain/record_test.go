package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNewRecord_StampsClockTime(t *testing.T) {
	fixedTime := time.Date(2025, 6, 10, 4, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixedTime))
	defer SetClock(nil)

	rec := NewRecord(7, Payload{Kind: PayloadRaw, Value: "hello"})

	assert.Equal(t, uint64(7), rec.Seq)
	assert.Equal(t, fixedTime, rec.ReceivedAt)
	assert.Equal(t, "hello", rec.Payload.Value)
}

func TestSequence_StrictlyIncreasing(t *testing.T) {
	var seq Sequence
	assert.Equal(t, uint64(0), seq.Last())
	assert.Equal(t, uint64(1), seq.Next())
	assert.Equal(t, uint64(2), seq.Next())
	assert.Equal(t, uint64(2), seq.Last())
}

func TestSequence_ConcurrentCallersGetUniqueNumbers(t *testing.T) {
	var seq Sequence
	const workers, perWorker = 8, 100

	var mu sync.Mutex
	seen := make(map[uint64]bool, workers*perWorker)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				n := seq.Next()
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, uint64(workers*perWorker), seq.Last())
}

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		assert.Equal(t, fixedTime, clock.Now())
		SetClock(nil)
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)
		assert.True(t, time.Since(clock.Now()) < time.Second)
	})
}
