package session

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreReturnsFreshSession(t *testing.T) {
	store := NewMemoryStore()

	s, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.UserID)
	assert.False(t, s.InFlow())
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	s, err := store.Get(ctx, 1)
	require.NoError(t, err)
	s.Begin(FlowExchange, StepEnterAmount)
	s.AmountUSD = decimal.RequireFromString("20")
	require.NoError(t, store.Save(ctx, s))

	loaded, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, FlowExchange, loaded.Flow)
	assert.Equal(t, StepEnterAmount, loaded.Step)
	assert.True(t, loaded.AmountUSD.Equal(decimal.RequireFromString("20")))

	// Mutating the returned copy must not touch the stored session.
	loaded.Step = StepConfirmQuote
	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StepEnterAmount, again.Step)
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	s, _ := store.Get(ctx, 1)
	s.Begin(FlowRegister, StepRegisterName)
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Clear(ctx, 1))

	loaded, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, loaded.InFlow())
}

func TestEndFlowKeepsBroadcastText(t *testing.T) {
	s := &Session{UserID: 42}
	s.BroadcastText = "promo"
	s.Begin(FlowExchange, StepEnterAmount)
	s.AmountUSD = decimal.RequireFromString("5")
	s.MethodID = 3

	s.EndFlow()

	assert.False(t, s.InFlow())
	assert.True(t, s.AmountUSD.IsZero())
	assert.Zero(t, s.MethodID)
	assert.Equal(t, "promo", s.BroadcastText, "staged broadcast survives flow resets")
}

func TestBeginClearsPreviousScratch(t *testing.T) {
	s := &Session{UserID: 1}
	s.Begin(FlowRegister, StepRegisterName)
	s.Email = "x@y.com"

	s.Begin(FlowExchange, StepSelectDirection)

	assert.Equal(t, FlowExchange, s.Flow)
	assert.Empty(t, s.Email)
}

func TestLockerSerializesPerUser(t *testing.T) {
	l := NewLocker()

	var mu sync.Mutex
	inSection := 0
	maxSeen := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock(1)
			defer l.Unlock(1)

			mu.Lock()
			inSection++
			if inSection > maxSeen {
				maxSeen = inSection
			}
			mu.Unlock()

			mu.Lock()
			inSection--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "at most one goroutine per user inside the section")
}

func TestLockerIndependentUsers(t *testing.T) {
	l := NewLocker()
	l.Lock(1)

	done := make(chan struct{})
	go func() {
		l.Lock(2)
		l.Unlock(2)
		close(done)
	}()

	<-done // user 2 is not blocked by user 1's lock
	l.Unlock(1)
}
