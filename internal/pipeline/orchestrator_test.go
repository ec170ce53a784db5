package pipeline

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheahjs/replicate-image-bundler/internal/fetch"
	"github.com/cheahjs/replicate-image-bundler/internal/params"
	"github.com/cheahjs/replicate-image-bundler/internal/replicate"
)

// --- Fakes ---

type fakeGenerator struct {
	locators []string
	err      error
	calls    int
	release  chan struct{}
	started  chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, ps params.ParameterSet) ([]string, error) {
	g.calls++
	if g.started != nil {
		close(g.started)
	}
	if g.release != nil {
		<-g.release
	}
	return g.locators, g.err
}

type fakeFetcher struct {
	status map[string]int
	calls  int
}

func (f *fakeFetcher) FetchAll(ctx context.Context, locators []string) []fetch.Result {
	f.calls++
	results := make([]fetch.Result, len(locators))
	for i, l := range locators {
		results[i] = fetch.Result{Index: i, Locator: l}
		if code, ok := f.status[l]; ok && code != http.StatusOK {
			results[i].Failure = &fetch.Failure{Index: i, Locator: l, StatusCode: code, Reason: http.StatusText(code)}
			continue
		}
		results[i].Data = []byte("png:" + l)
	}
	return results
}

func newTestOrchestrator(t *testing.T, g Generator, f Fetcher, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(g, f, opts...)
	require.NoError(t, err)
	return o
}

// --- Tests ---

func TestNewOrchestrator_RequiresDependencies(t *testing.T) {
	_, err := NewOrchestrator(nil, &fakeFetcher{})
	assert.Error(t, err)
	_, err = NewOrchestrator(&fakeGenerator{}, nil)
	assert.Error(t, err)
}

func TestRun_AllImagesFetched(t *testing.T) {
	gen := &fakeGenerator{locators: []string{"https://img/1", "https://img/2"}}
	var states []State
	o := newTestOrchestrator(t, gen, &fakeFetcher{}, WithObserver(func(_ string, s State) { states = append(states, s) }))

	result, err := o.Run(context.Background(), params.Defaults())

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Archive.Entries, 2)
	assert.Equal(t, "output_file_1.png", result.Archive.Entries[0].Name)
	assert.Equal(t, "output_file_2.png", result.Archive.Entries[1].Name)
	assert.Empty(t, result.Diagnostics)
	assert.Equal(t, []State{StateValidating, StateGenerating, StateFetching, StateBundling, StateDone}, states)
	assert.Equal(t, StateDone, o.State())
}

func TestRun_FirstFetchNotFound(t *testing.T) {
	gen := &fakeGenerator{locators: []string{"https://img/1", "https://img/2"}}
	fetcher := &fakeFetcher{status: map[string]int{"https://img/1": http.StatusNotFound}}
	o := newTestOrchestrator(t, gen, fetcher)

	result, err := o.Run(context.Background(), params.Defaults())

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	require.Len(t, result.Archive.Entries, 1)
	assert.Equal(t, "output_file_2.png", result.Archive.Entries[0].Name)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "https://img/1", result.Diagnostics[0].Locator)
	assert.Equal(t, http.StatusNotFound, result.Diagnostics[0].StatusCode)
}

func TestRun_NoLocators(t *testing.T) {
	gen := &fakeGenerator{locators: []string{}}
	o := newTestOrchestrator(t, gen, &fakeFetcher{})

	result, err := o.Run(context.Background(), params.Defaults())

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Empty(t, result.Archive.Entries)
	assert.NotEmpty(t, result.Archive.Data)
	assert.Empty(t, result.Diagnostics)
}

func TestRun_AllFetchesFailedIsStillDone(t *testing.T) {
	gen := &fakeGenerator{locators: []string{"https://img/1", "https://img/2"}}
	fetcher := &fakeFetcher{status: map[string]int{"https://img/1": 500, "https://img/2": 403}}
	o := newTestOrchestrator(t, gen, fetcher)

	result, err := o.Run(context.Background(), params.Defaults())

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Empty(t, result.Archive.Entries)
	assert.Len(t, result.Diagnostics, 2)
}

func TestRun_InvalidParametersStopBeforeNetwork(t *testing.T) {
	gen := &fakeGenerator{locators: []string{"https://img/1"}}
	fetcher := &fakeFetcher{}
	o := newTestOrchestrator(t, gen, fetcher)

	in := params.Defaults()
	in.Width = -1
	result, err := o.Run(context.Background(), in)

	assert.Nil(t, result)
	var invalid *params.InvalidParameterError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "width", invalid.Field)
	assert.Zero(t, gen.calls)
	assert.Zero(t, fetcher.calls)
	assert.Equal(t, StateFailed, o.State())
}

func TestRun_GenerationErrorShortCircuits(t *testing.T) {
	timeout := &replicate.GenerationServiceError{Cause: context.DeadlineExceeded}
	gen := &fakeGenerator{err: timeout}
	fetcher := &fakeFetcher{}
	o := newTestOrchestrator(t, gen, fetcher)

	result, err := o.Run(context.Background(), params.Defaults())

	assert.Nil(t, result)
	var svcErr *replicate.GenerationServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, fetcher.calls)
	assert.Equal(t, StateFailed, o.State())
}

func TestRun_PlainGeneratorErrorIsWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	o := newTestOrchestrator(t, &fakeGenerator{err: cause}, &fakeFetcher{})

	_, err := o.Run(context.Background(), params.Defaults())

	var svcErr *replicate.GenerationServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.ErrorIs(t, err, cause)
}

func TestRun_RejectsOverlappingRuns(t *testing.T) {
	gen := &fakeGenerator{
		locators: []string{"https://img/1"},
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	o := newTestOrchestrator(t, gen, &fakeFetcher{})

	var wg sync.WaitGroup
	wg.Add(1)
	var first *Result
	var firstErr error
	go func() {
		defer wg.Done()
		first, firstErr = o.Run(context.Background(), params.Defaults())
	}()

	select {
	case <-gen.started:
	case <-time.After(time.Second):
		t.Fatal("first run did not start")
	}

	_, err := o.Run(context.Background(), params.Defaults())
	var busy *PipelineBusyError
	require.True(t, errors.As(err, &busy))
	assert.NotEmpty(t, busy.RunID)

	close(gen.release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, first.RunID, busy.RunID, "busy error names the run in progress")

	// the orchestrator accepts new runs once the previous one finished
	gen.started, gen.release = nil, nil
	_, err = o.Run(context.Background(), params.Defaults())
	assert.NoError(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "generating", StateGenerating.String())
	assert.Equal(t, "unknown", State(99).String())
}
