package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	locks := NewKeyedMutex()
	ctx := context.Background()

	const goroutines = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.Acquire(ctx, "payer:ada@example.com")
			require.NoError(t, err)
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	locks := NewKeyedMutex()
	ctx := context.Background()

	releaseA, err := locks.Acquire(ctx, "payer:a@example.com")
	require.NoError(t, err)
	defer releaseA()

	// A different key must not block.
	done := make(chan struct{})
	go func() {
		releaseB, err := locks.Acquire(ctx, "payer:b@example.com")
		assert.NoError(t, err)
		releaseB()
		close(done)
	}()
	<-done
}

func TestKeyedMutex_EntriesAreReaped(t *testing.T) {
	locks := NewKeyedMutex()
	ctx := context.Background()

	release, err := locks.Acquire(ctx, "payer:ada@example.com")
	require.NoError(t, err)
	release()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.entries)
}
