package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenticsearch/pkg/proto"
)

func TestTrackerConcurrentReads(t *testing.T) {
	tracker := NewTracker()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, s := range proto.LinearStages()[1:] {
			tracker.OnUpdate(proto.Update{QueryID: "q1", Stage: s})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = tracker.State()
		}
	}()
	wg.Wait()

	assert.Equal(t, proto.StageComplete, tracker.State().Stage)
	tracker.Reset()
	assert.Equal(t, proto.StageIdle, tracker.State().Stage)
	assert.Empty(t, tracker.Updates())
}

func TestChannelObserverPreservesOrder(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()
	ch := NewChannelObserver(ctx, 1)

	var got []proto.Stage
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range ch.Updates() {
			got = append(got, u.Stage)
		}
	}()

	_, err := h.orch.Run(ctx, "What is the capital of Australia?", ch)
	require.NoError(t, err)
	ch.Close()
	<-done

	assert.Equal(t, proto.LinearStages()[1:], got)
}

func TestChannelObserverStopsBlockingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := NewChannelObserver(ctx, 0)

	returned := make(chan struct{})
	go func() {
		ch.OnUpdate(proto.Update{Stage: proto.StageRouting})
		close(returned)
	}()

	cancel()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("OnUpdate blocked after cancellation")
	}
}

func TestChannelObserverDeliversErrorAfterCancel(t *testing.T) {
	h := newHarness(t, 1000)
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ch := NewChannelObserver(ctx, 16)

		_, err := h.orch.Run(ctx, "What is the capital of Australia?", ch)
		require.Error(t, err)
		ch.Close()

		var failures []proto.Update
		for u := range ch.Updates() {
			if u.Stage == proto.StageError {
				failures = append(failures, u)
			}
		}
		require.Len(t, failures, 1, "run %d", i)
		assert.Equal(t, proto.KindCancelled, failures[0].Kind)
	}
}

func TestChannelObserverBufferedSendIgnoresCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := NewChannelObserver(ctx, 4)

	for i := 0; i < 4; i++ {
		ch.OnUpdate(proto.Update{Stage: proto.StageRouting})
	}
	ch.OnUpdate(proto.Update{Stage: proto.StageError})
	ch.Close()

	var n int
	for range ch.Updates() {
		n++
	}
	assert.Equal(t, 4, n)
}

func TestObserversFanOut(t *testing.T) {
	a, b := NewTracker(), NewTracker()
	Observers{a, nil, b}.OnUpdate(proto.Update{QueryID: "q", Stage: proto.StageRouting})
	assert.Equal(t, proto.StageRouting, a.State().Stage)
	assert.Equal(t, proto.StageRouting, b.State().Stage)
}
