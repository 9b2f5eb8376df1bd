package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"agenticsearch/pkg/agent/llmerrors"
	"agenticsearch/pkg/logx"
	"agenticsearch/pkg/metrics"
	"agenticsearch/pkg/proto"
	"agenticsearch/pkg/render"
)

// OutcomeComplete is the query outcome label for successful runs.
const OutcomeComplete = "complete"

// Gate admits or rejects a query before any model call.
type Gate interface {
	Screen(ctx context.Context, query string) error
}

// Pacing holds the cosmetic delays after drafting and on entering validation.
// The scan delay belongs to the gate.
type Pacing struct {
	Draft    time.Duration
	Validate time.Duration
}

// Result is the outcome of one run with its diagnostics.
type Result struct {
	QueryID   string
	Response  *proto.Response
	Reasoning string
	Critique  string
	Timings   map[proto.Stage]time.Duration
	Duration  time.Duration
}

// Orchestrator sequences the stages for one query at a time. It holds no
// per-query state and may be reused, including concurrently; the gate's
// limiter is the only state shared between runs.
type Orchestrator struct {
	gate      Gate
	router    *Router
	generator *Generator
	refiner   *Refiner
	validator *Validator
	renderer  render.Renderer
	pacing    Pacing
	recorder  metrics.Recorder
	logger    *logx.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRenderer sets the markup renderer applied to the final text.
func WithRenderer(r render.Renderer) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.renderer = r
		}
	}
}

// WithPacing sets the cosmetic stage delays.
func WithPacing(p Pacing) Option {
	return func(o *Orchestrator) {
		o.pacing = p
	}
}

// WithMetrics records stage timings and outcomes on r.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewOrchestrator wires the stages together. The default renderer is HTML.
func NewOrchestrator(gate Gate, router *Router, generator *Generator, refiner *Refiner, validator *Validator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gate:      gate,
		router:    router,
		generator: generator,
		refiner:   refiner,
		validator: validator,
		renderer:  render.NewHTML(),
		recorder:  metrics.Nop(),
		logger:    logx.NewLogger("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessQuery runs the pipeline and returns the final response.
func (o *Orchestrator) ProcessQuery(ctx context.Context, query string, observer proto.Observer) (*proto.Response, error) {
	res, err := o.Run(ctx, query, observer)
	if err != nil {
		return nil, err
	}
	return res.Response, nil
}

// Run processes one query, notifying observer on every stage transition.
// On failure it emits a single StageError update and returns the
// *proto.QueryError with Stage set to the stage that was active.
func (o *Orchestrator) Run(ctx context.Context, query string, observer proto.Observer) (*Result, error) {
	if observer == nil {
		observer = proto.NopObserver{}
	}
	queryID := uuid.NewString()
	r := &run{
		o:        o,
		ctx:      logx.WithQueryID(ctx, queryID),
		observer: observer,
		queryID:  queryID,
		stage:    proto.StageIdle,
		started:  time.Now(),
		logger:   o.logger.WithQueryID(queryID),
		result:   &Result{QueryID: queryID, Timings: make(map[proto.Stage]time.Duration)},
	}
	r.logger.Info("processing query (%d chars)", len(query))

	if err := r.execute(query); err != nil {
		return nil, r.fail(err)
	}
	r.result.Duration = time.Since(r.started)
	o.recorder.IncQuery(OutcomeComplete)
	r.logger.Info("query complete in %s (agent %s)", r.result.Duration.Round(time.Millisecond), r.result.Response.AgentUsed)
	return r.result, nil
}

// run is the state of one query in flight.
type run struct {
	o          *Orchestrator
	ctx        context.Context
	observer   proto.Observer
	queryID    string
	stage      proto.Stage
	agent      proto.Agent
	started    time.Time
	stageStart time.Time
	logger     *logx.Logger
	result     *Result
}

func (r *run) execute(query string) error {
	o := r.o

	if err := r.enter(proto.StageSanitization, nil); err != nil {
		return err
	}
	if err := o.gate.Screen(r.ctx, query); err != nil {
		return err
	}

	if err := r.enter(proto.StageRouting, nil); err != nil {
		return err
	}
	decision, err := o.router.Route(r.ctx, query)
	if err != nil {
		return err
	}
	r.agent = decision.Agent
	r.result.Reasoning = decision.Reasoning
	r.logger.Info("routed to %s agent: %s", decision.Agent, decision.Reasoning)

	if err := r.enter(proto.StageSearching, nil); err != nil {
		return err
	}
	draft, err := o.generator.Generate(r.ctx, query, decision.Agent)
	if err != nil {
		return err
	}

	if err := r.enter(proto.StageDrafting, &proto.ResponsePatch{Text: &draft.Text, Sources: draft.Sources}); err != nil {
		return err
	}
	if err := sleep(r.ctx, o.pacing.Draft); err != nil {
		return err
	}

	if err := r.enter(proto.StageRefining, nil); err != nil {
		return err
	}
	refined, err := o.refiner.Refine(r.ctx, query, draft.Text, draft.Sources)
	if err != nil {
		return err
	}

	if err := r.enter(proto.StageValidating, &proto.ResponsePatch{Text: &refined}); err != nil {
		return err
	}
	if err := sleep(r.ctx, o.pacing.Validate); err != nil {
		return err
	}
	verdict, err := o.validator.Validate(r.ctx, query, refined)
	if err != nil {
		return err
	}
	r.result.Critique = verdict.Critique

	text, err := o.renderer.Render(refined)
	if err != nil {
		return err
	}
	confidence := verdict.Confidence
	final := &proto.Response{
		Text:       text,
		Sources:    draft.Sources,
		AgentUsed:  decision.Agent,
		Confidence: &confidence,
	}
	r.result.Response = final.Clone()
	return r.enter(proto.StageComplete, proto.PatchFromResponse(final))
}

// enter moves to the next stage and notifies the observer. It fails
// instead if the context has ended.
func (r *run) enter(next proto.Stage, patch *proto.ResponsePatch) error {
	if !next.IsTerminal() {
		if err := r.ctx.Err(); err != nil {
			return err
		}
	}
	r.closeStage()
	r.stage = next
	logx.DebugState(r.ctx, "pipeline", "enter", string(next))
	r.observer.OnUpdate(proto.Update{
		QueryID:  r.queryID,
		Stage:    next,
		Agent:    r.agent,
		Response: patch,
		At:       time.Now(),
	})
	return nil
}

// closeStage records how long the current stage took.
func (r *run) closeStage() {
	now := time.Now()
	if r.stage != proto.StageIdle && !r.stageStart.IsZero() {
		d := now.Sub(r.stageStart)
		r.result.Timings[r.stage] += d
		r.o.recorder.ObserveStage(strings.ToLower(string(r.stage)), d)
	}
	r.stageStart = now
}

// fail classifies err, emits the single StageError update and returns
// the classified error.
func (r *run) fail(err error) *proto.QueryError {
	qe := classify(r.ctx, err)
	qe.Stage = r.stage
	r.closeStage()

	r.observer.OnUpdate(proto.Update{
		QueryID:     r.queryID,
		Stage:       proto.StageError,
		Agent:       r.agent,
		Error:       qe.Message,
		Kind:        qe.Kind,
		FailedStage: qe.Stage,
		At:          time.Now(),
	})
	r.stage = proto.StageError
	r.o.recorder.IncQuery(string(qe.Kind))

	if qe.Kind == proto.KindCancelled {
		r.logger.Info("query cancelled during %s", qe.Stage)
	} else {
		r.logger.Warn("query failed during %s: %s: %v", qe.Stage, qe.Kind, err)
	}
	return qe
}

// classify maps any failure to a QueryError. A finished caller context
// always means cancellation, whatever the stage reported.
func classify(ctx context.Context, err error) *proto.QueryError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if proto.IsKind(err, proto.KindCancelled) {
			return proto.Classify(err)
		}
		return proto.WrapQueryError(proto.KindCancelled, err, proto.MsgCancelled)
	}
	var qe *proto.QueryError
	if errors.As(err, &qe) {
		return qe
	}
	var le *llmerrors.Error
	if errors.As(err, &le) {
		return proto.ExternalFailure(err)
	}
	return proto.Classify(err)
}

// externalFailure wraps an error returned by a model client.
func externalFailure(err error) error {
	var qe *proto.QueryError
	if errors.As(err, &qe) {
		return qe
	}
	return proto.ExternalFailure(err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
