package pipeline

import (
	"context"
	"sync"

	"agenticsearch/pkg/proto"
)

// Tracker folds updates into a ProcessingState. It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	state   proto.ProcessingState
	updates []proto.Update
}

// NewTracker returns a tracker in the idle state.
func NewTracker() *Tracker {
	return &Tracker{state: proto.NewProcessingState()}
}

// OnUpdate implements proto.Observer. An update for a new query discards
// the previous query's state first.
func (t *Tracker) OnUpdate(u proto.Update) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.QueryID != "" && u.QueryID != "" && u.QueryID != t.state.QueryID {
		t.state.Reset()
		t.updates = nil
	}
	t.state = t.state.Apply(u)
	t.updates = append(t.updates, u)
}

// State returns a snapshot of the current state.
func (t *Tracker) State() proto.ProcessingState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.state
	s.Response = t.state.Response.Clone()
	return s
}

// Updates returns the updates received for the current query, in order.
func (t *Tracker) Updates() []proto.Update {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]proto.Update, len(t.updates))
	copy(out, t.updates)
	return out
}

// Stages returns the stage of every update received, in order.
func (t *Tracker) Stages() []proto.Stage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]proto.Stage, len(t.updates))
	for i := range t.updates {
		out[i] = t.updates[i].Stage
	}
	return out
}

// Reset returns the tracker to idle.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Reset()
	t.updates = nil
}

// ChannelObserver delivers updates over a buffered channel in order.
// OnUpdate blocks while the buffer is full, but never past the end of ctx.
type ChannelObserver struct {
	ctx  context.Context
	ch   chan proto.Update
	once sync.Once
}

// NewChannelObserver creates an observer with the given buffer size.
func NewChannelObserver(ctx context.Context, buffer int) *ChannelObserver {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelObserver{ctx: ctx, ch: make(chan proto.Update, buffer)}
}

// OnUpdate implements proto.Observer.
// A send that fits in the buffer always lands, even after ctx is done, so
// the terminal update of a cancelled run is not lost.
func (c *ChannelObserver) OnUpdate(u proto.Update) {
	select {
	case c.ch <- u:
		return
	default:
	}
	select {
	case c.ch <- u:
	case <-c.ctx.Done():
	}
}

// Updates returns the receive side of the channel.
func (c *ChannelObserver) Updates() <-chan proto.Update {
	return c.ch
}

// Close closes the channel. Call it once the run has returned.
func (c *ChannelObserver) Close() {
	c.once.Do(func() { close(c.ch) })
}

// Observers fans each update out to every observer in order.
type Observers []proto.Observer

// OnUpdate implements proto.Observer.
func (obs Observers) OnUpdate(u proto.Update) {
	for _, o := range obs {
		if o != nil {
			o.OnUpdate(u)
		}
	}
}
