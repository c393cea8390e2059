// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the research, structuring and illustration
// stages of one query and owns the state machine observers watch.
//
// Research and structuring failures end the run in the error state. An
// illustration failure never does: the run completes with the report and
// no image.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/veriviz/internal/events"
	"github.com/pdiddy/veriviz/internal/research"
	"github.com/pdiddy/veriviz/pkg/types"
)

var (
	// ErrEmptyTopic is returned by Run when the topic is blank.
	ErrEmptyTopic = errors.New("topic must not be empty")

	// ErrInvalidAudience is returned by Run for an unknown audience.
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrSuperseded is returned by a run that was replaced by a newer one
	// before it finished. Its remaining transitions are discarded.
	ErrSuperseded = errors.New("run superseded by a newer run")
)

// Researcher runs the grounded research stage.
type Researcher interface {
	Research(ctx context.Context, topic string, audience types.Audience) (research.Findings, error)
}

// Structurer turns research text into a report without sources.
type Structurer interface {
	Structure(ctx context.Context, researchText string, audience types.Audience) (types.ReportResult, error)
}

// Illustrator generates the report image.
type Illustrator interface {
	GenerateImage(ctx context.Context, prompt string) (types.GeneratedImage, error)
}

// Outcome is the result of a run that reached the complete state.
type Outcome struct {
	RunID  string
	Report types.ReportResult

	// Image is nil when illustration failed.
	Image *types.GeneratedImage
}

// transitions lists the states each in-run state may move to. Starting a
// run is handled separately and is allowed from any state.
var transitions = map[types.PipelineState][]types.PipelineState{
	types.StateResearching:     {types.StateStructuring, types.StateError},
	types.StateStructuring:     {types.StateGeneratingImage, types.StateError},
	types.StateGeneratingImage: {types.StateComplete},
}

func allowed(from, to types.PipelineState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Orchestrator runs queries one at a time. Starting a new run cancels the
// one in flight and bumps the epoch so late results of the old run are
// ignored.
type Orchestrator struct {
	researcher  Researcher
	structurer  Structurer
	illustrator Illustrator

	logger     logrus.FieldLogger
	broker     *events.Broker
	runTimeout time.Duration
	newRunID   func() string
	now        func() time.Time

	mu        sync.Mutex
	snap      types.Snapshot
	cancel    context.CancelFunc
	observers []func(types.Snapshot)

	// pubMu keeps notifications in transition order without holding mu
	// while observers run.
	pubMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithBroker publishes snapshots to b instead of a private broker.
func WithBroker(b *events.Broker) Option {
	return func(o *Orchestrator) {
		if b != nil {
			o.broker = b
		}
	}
}

// WithRunTimeout bounds each run. Zero means no deadline.
func WithRunTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.runTimeout = d
	}
}

// New creates an idle orchestrator.
func New(r Researcher, s Structurer, i Illustrator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		researcher:  r,
		structurer:  s,
		illustrator: i,
		logger:      logrus.StandardLogger(),
		broker:      events.NewBroker(),
		newRunID:    uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.snap = types.Snapshot{State: types.StateIdle, UpdatedAt: o.now()}
	return o
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() types.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap.Clone()
}

// Subscribe streams every snapshot published after the call until ctx is
// done. Slow subscribers lose intermediate snapshots, never the latest.
func (o *Orchestrator) Subscribe(ctx context.Context) <-chan types.Snapshot {
	return o.broker.Subscribe(ctx)
}

// Observe registers fn to be called synchronously, in order, with every
// snapshot. fn must not call back into the Orchestrator.
func (o *Orchestrator) Observe(fn func(types.Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Reset cancels any in-flight run and returns to idle.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.snap = types.Snapshot{
		Epoch:     o.snap.Epoch + 1,
		State:     types.StateIdle,
		UpdatedAt: o.now(),
	}
	o.publishLocked()
}

// Result is delivered by Start when the run ends.
type Result struct {
	Outcome *Outcome
	Err     error
}

// run is the bookkeeping of one started run.
type run struct {
	ctx      context.Context
	cancel   context.CancelFunc
	epoch    uint64
	id       string
	topic    string
	audience types.Audience
}

// Run executes one query. Input errors are returned before anything
// changes. Otherwise the run enters researching, and Run returns the stage
// error for a run that ended in the error state, ErrSuperseded for a run
// replaced by a newer one, or the outcome of a completed run.
func (o *Orchestrator) Run(ctx context.Context, topic string, audience types.Audience) (*Outcome, error) {
	r, err := o.start(ctx, topic, audience)
	if err != nil {
		return nil, err
	}
	return o.execute(r)
}

// Start validates the input and enters researching synchronously, then
// runs the stages in the background. It returns the run ID and a channel
// that receives the result once.
func (o *Orchestrator) Start(ctx context.Context, topic string, audience types.Audience) (string, <-chan Result, error) {
	r, err := o.start(ctx, topic, audience)
	if err != nil {
		return "", nil, err
	}
	done := make(chan Result, 1)
	go func() {
		out, err := o.execute(r)
		done <- Result{Outcome: out, Err: err}
		close(done)
	}()
	return r.id, done, nil
}

// start validates input and supersedes any in-flight run.
func (o *Orchestrator) start(ctx context.Context, topic string, audience types.Audience) (*run, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if !audience.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAudience, audience)
	}

	r := &run{topic: topic, audience: audience}
	if o.runTimeout > 0 {
		r.ctx, r.cancel = context.WithTimeout(ctx, o.runTimeout)
	} else {
		r.ctx, r.cancel = context.WithCancel(ctx)
	}

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.cancel = r.cancel
	r.id = o.newRunID()
	r.epoch = o.snap.Epoch + 1
	o.snap = types.Snapshot{
		RunID:     r.id,
		Epoch:     r.epoch,
		State:     types.StateResearching,
		Topic:     topic,
		Audience:  audience,
		UpdatedAt: o.now(),
	}
	o.publishLocked()
	return r, nil
}

// execute runs the three stages of r.
func (o *Orchestrator) execute(r *run) (*Outcome, error) {
	defer r.cancel()
	log := o.logger.WithFields(logrus.Fields{"run_id": r.id, "topic": r.topic})
	log.WithField("audience", r.audience.Key()).Info("run started")

	findings, err := o.researcher.Research(r.ctx, r.topic, r.audience)
	if err != nil {
		return nil, o.fail(r.epoch, log.WithField("stage", "research"), err)
	}
	if err := o.transition(r.epoch, types.StateStructuring, nil); err != nil {
		return nil, err
	}

	report, err := o.structurer.Structure(r.ctx, findings.Text, r.audience)
	if err != nil {
		return nil, o.fail(r.epoch, log.WithField("stage", "structuring"), err)
	}
	report.Sources = findings.Sources
	err = o.transition(r.epoch, types.StateGeneratingImage, func(s *types.Snapshot) {
		published := report.Clone()
		s.Report = &published
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"chart_kind": report.ChartKind,
		"points":     len(report.ChartData),
		"sources":    len(report.Sources),
	}).Info("report structured")

	var image *types.GeneratedImage
	img, err := o.illustrator.GenerateImage(r.ctx, report.ImagePrompt)
	if err != nil {
		log.WithField("stage", "illustration").WithError(err).Warn("continuing without illustration")
	} else {
		image = &img
	}
	err = o.transition(r.epoch, types.StateComplete, func(s *types.Snapshot) {
		s.Image = image
	})
	if err != nil {
		return nil, err
	}
	log.WithField("has_image", image != nil).Info("run complete")

	return &Outcome{RunID: r.id, Report: report, Image: image}, nil
}

// fail moves the run to the error state with err's message.
func (o *Orchestrator) fail(epoch uint64, log logrus.FieldLogger, err error) error {
	terr := o.transition(epoch, types.StateError, func(s *types.Snapshot) {
		s.Error = err.Error()
	})
	if terr != nil {
		return terr
	}
	log.WithError(err).Error("run failed")
	return err
}

// transition applies one state change for the run with the given epoch.
// It returns ErrSuperseded when a newer run owns the state.
func (o *Orchestrator) transition(epoch uint64, next types.PipelineState, mutate func(*types.Snapshot)) error {
	o.mu.Lock()
	if o.snap.Epoch != epoch {
		o.mu.Unlock()
		return ErrSuperseded
	}
	if !allowed(o.snap.State, next) {
		from := o.snap.State
		o.mu.Unlock()
		return fmt.Errorf("illegal state transition %s -> %s", from, next)
	}

	o.snap.State = next
	o.snap.UpdatedAt = o.now()
	if mutate != nil {
		mutate(&o.snap)
	}
	if next.Terminal() && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.publishLocked()
	return nil
}

// publishLocked notifies observers and the broker of the current snapshot.
// It must be called with mu held and releases it.
func (o *Orchestrator) publishLocked() {
	snap := o.snap.Clone()
	observers := append([]func(types.Snapshot){}, o.observers...)
	o.pubMu.Lock()
	o.mu.Unlock()
	defer o.pubMu.Unlock()

	for _, fn := range observers {
		fn(snap.Clone())
	}
	o.broker.Publish(snap)
}
