package security

import (
	"context"
	"time"

	"agenticsearch/pkg/logx"
	"agenticsearch/pkg/metrics"
	"agenticsearch/pkg/proto"
)

// Gate admits or rejects a query before any model call is made.
type Gate struct {
	limiter   *SlidingWindowLimiter
	screener  *Screener
	scanDelay time.Duration
	recorder  metrics.Recorder
	logger    *logx.Logger
}

// GateOption customizes a Gate.
type GateOption func(*Gate)

// WithScanDelay pauses before the checks run.
func WithScanDelay(d time.Duration) GateOption {
	return func(g *Gate) {
		g.scanDelay = d
	}
}

// WithRecorder counts rejections on the given recorder.
func WithRecorder(r metrics.Recorder) GateOption {
	return func(g *Gate) {
		if r != nil {
			g.recorder = r
		}
	}
}

// NewGate combines a limiter and a screener. Either may be nil to skip that check.
func NewGate(limiter *SlidingWindowLimiter, screener *Screener, opts ...GateOption) *Gate {
	g := &Gate{
		limiter:  limiter,
		screener: screener,
		recorder: metrics.Nop(),
		logger:   logx.NewLogger("security"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Screen returns nil if the query may proceed, otherwise a *proto.QueryError.
// The rate limit is checked first; a rejected query never reaches the screener.
func (g *Gate) Screen(ctx context.Context, query string) error {
	if err := sleep(ctx, g.scanDelay); err != nil {
		return proto.WrapQueryError(proto.KindCancelled, err, proto.MsgCancelled)
	}

	if g.limiter != nil && !g.limiter.Allow() {
		g.recorder.IncRejection(ReasonRateLimited)
		g.logger.Warn("query rejected: rate limit reached")
		return proto.NewQueryError(proto.KindRateLimited, proto.MsgRateLimited)
	}

	if g.screener == nil {
		return nil
	}
	verdict, err := g.screener.Screen(query)
	if err != nil {
		g.logger.Warn("credential scan failed: %v", err)
	}
	if verdict == nil {
		return nil
	}
	g.recorder.IncRejection(verdict.Reason)
	g.logger.Warn("query rejected: %s (%s)", verdict.Kind, verdict.Detail)
	return proto.NewQueryError(verdict.Kind, verdict.Message())
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
