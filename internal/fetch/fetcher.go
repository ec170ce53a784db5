package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultConcurrency = 2
	DefaultTimeout     = 60 * time.Second
	// MaxImageBytes bounds a single image body.
	MaxImageBytes = 64 << 20
)

// Failure describes why a single locator could not be retrieved.
// StatusCode is 0 when no HTTP response was received.
type Failure struct {
	Index      int
	Locator    string
	StatusCode int
	Reason     string
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch image %d from %s: status %d: %s", f.Index+1, f.Locator, f.StatusCode, f.Reason)
	}
	return fmt.Sprintf("failed to fetch image %d from %s: %s", f.Index+1, f.Locator, f.Reason)
}

// Result is the outcome for one locator: Data on success, Failure otherwise.
type Result struct {
	Index   int
	Locator string
	Data    []byte
	Failure *Failure
}

func (r Result) OK() bool {
	return r.Failure == nil
}

// Failures returns the failed results in order.
func Failures(results []Result) []*Failure {
	var failures []*Failure
	for _, r := range results {
		if !r.OK() {
			failures = append(failures, r.Failure)
		}
	}
	return failures
}

// Fetcher retrieves generated images. Fetches run concurrently but results are
// always returned in locator order, and one failure never stops the others.
type Fetcher struct {
	httpClient  *http.Client
	concurrency int
	limiter     *rate.Limiter
}

type Option func(*Fetcher)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = httpClient }
}

// WithConcurrency sets the number of parallel fetches. Values below 1 mean sequential.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n < 1 {
			n = 1
		}
		f.concurrency = n
	}
}

// WithRateInterval spaces request starts by at least interval. Zero disables pacing.
func WithRateInterval(interval time.Duration) Option {
	return func(f *Fetcher) {
		if interval > 0 {
			f.limiter = rate.NewLimiter(rate.Every(interval), 1)
		} else {
			f.limiter = nil
		}
	}
}

func NewFetcher(opts ...Option) *Fetcher {
	fetcher := &Fetcher{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

func (f *Fetcher) FetchAll(ctx context.Context, locators []string) []Result {
	results := make([]Result, len(locators))

	// Goroutines never return an error, so one failure cannot cancel the group.
	var eg errgroup.Group
	eg.SetLimit(f.concurrency)

	for i, locator := range locators {
		eg.Go(func() error {
			results[i] = f.fetchOne(ctx, i, locator)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, index int, locator string) Result {
	result := Result{Index: index, Locator: locator}

	fail := func(statusCode int, reason string) Result {
		result.Failure = &Failure{Index: index, Locator: locator, StatusCode: statusCode, Reason: reason}
		log.Warn().Int("index", index+1).Str("locator", locator).Int("status", statusCode).Str("reason", reason).Msg("Failed to fetch image")
		return result
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fail(0, err.Error())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return fail(0, err.Error())
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fail(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return fail(resp.StatusCode, fmt.Sprintf("failed to read body: %v", err))
	}
	if len(data) > MaxImageBytes {
		return fail(resp.StatusCode, "image exceeds size limit")
	}
	if len(data) == 0 {
		return fail(resp.StatusCode, "empty body")
	}

	log.Debug().Int("index", index+1).Int("bytes", len(data)).Msg("Fetched image")

	result.Data = data
	return result
}
