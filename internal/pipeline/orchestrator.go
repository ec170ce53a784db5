package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cheahjs/replicate-image-bundler/internal/archive"
	"github.com/cheahjs/replicate-image-bundler/internal/fetch"
	"github.com/cheahjs/replicate-image-bundler/internal/params"
	"github.com/cheahjs/replicate-image-bundler/internal/replicate"
)

// Generator turns a parameter set into an ordered list of image locators.
type Generator interface {
	Generate(ctx context.Context, ps params.ParameterSet) ([]string, error)
}

// Fetcher resolves locators to image bytes, one result per locator, in order.
type Fetcher interface {
	FetchAll(ctx context.Context, locators []string) []fetch.Result
}

// PipelineBusyError rejects a run while another run is in flight.
type PipelineBusyError struct {
	RunID string
}

func (e *PipelineBusyError) Error() string {
	return fmt.Sprintf("pipeline is busy with run %s", e.RunID)
}

// Result is everything a finished run hands to its caller. It is not retained
// by the Orchestrator.
type Result struct {
	RunID       string
	State       State
	Params      params.ParameterSet
	Locators    []string
	Archive     *archive.Archive
	Diagnostics []*fetch.Failure
	Duration    time.Duration
}

// Orchestrator sequences validation, generation, fetching and bundling.
type Orchestrator struct {
	generator Generator
	fetcher   Fetcher
	observer  func(runID string, state State)

	mu sync.Mutex

	stateMu   sync.RWMutex
	state     State
	activeRun string
}

type Option func(*Orchestrator)

// WithObserver registers fn to be called on every state transition.
func WithObserver(fn func(runID string, state State)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

func NewOrchestrator(generator Generator, fetcher Fetcher, opts ...Option) (*Orchestrator, error) {
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}

	o := &Orchestrator{generator: generator, fetcher: fetcher, state: StateIdle}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State reports the stage of the current or most recent run.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

// Run executes one submission. Validation and generation errors fail the run and
// no archive is produced. Fetch failures never fail the run: they are returned as
// diagnostics next to an archive of whatever succeeded, possibly empty.
func (o *Orchestrator) Run(ctx context.Context, in params.Input) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.New().String()}

	// activeRun changes together with ownership of mu, so a rejected caller
	// always sees the id of the run holding it.
	o.stateMu.Lock()
	if !o.mu.TryLock() {
		active := o.activeRun
		o.stateMu.Unlock()
		return nil, &PipelineBusyError{RunID: active}
	}
	o.activeRun = result.RunID
	o.stateMu.Unlock()

	defer func() {
		o.stateMu.Lock()
		o.activeRun = ""
		o.mu.Unlock()
		o.stateMu.Unlock()
	}()

	o.transition(result, StateValidating)
	ps, err := params.New(in)
	if err != nil {
		o.fail(result, err)
		return nil, err
	}
	result.Params = ps

	o.transition(result, StateGenerating)
	locators, err := o.generator.Generate(ctx, ps)
	if err != nil {
		var svcErr *replicate.GenerationServiceError
		if !errors.As(err, &svcErr) {
			err = &replicate.GenerationServiceError{Cause: err}
		}
		o.fail(result, err)
		return nil, err
	}
	result.Locators = locators

	o.transition(result, StateFetching)
	results := o.fetcher.FetchAll(ctx, locators)

	o.transition(result, StateBundling)
	bundle, err := archive.Build(results)
	if err != nil {
		// only reachable if writing to memory fails; still not a pipeline failure
		log.Error().Err(err).Str("run", result.RunID).Msg("Failed to build archive")
		bundle = &archive.Archive{Entries: []archive.Entry{}, Failures: fetch.Failures(results)}
	}
	result.Archive = bundle
	result.Diagnostics = bundle.Failures

	result.Duration = time.Since(start)
	o.transition(result, StateDone)

	log.Info().
		Str("run", result.RunID).
		Int("images", len(locators)).
		Int("archived", len(bundle.Entries)).
		Int("failed", len(result.Diagnostics)).
		Dur("duration", result.Duration).
		Msg("Pipeline run completed")

	return result, nil
}

func (o *Orchestrator) transition(result *Result, state State) {
	o.stateMu.Lock()
	o.state = state
	o.stateMu.Unlock()

	result.State = state
	log.Info().Str("run", result.RunID).Stringer("state", state).Msg("Pipeline state changed")

	if o.observer != nil {
		o.observer(result.RunID, state)
	}
}

func (o *Orchestrator) fail(result *Result, err error) {
	o.transition(result, StateFailed)
	log.Error().Err(err).Str("run", result.RunID).Msg("Pipeline run failed")
}
