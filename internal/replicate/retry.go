package replicate

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/cheahjs/replicate-image-bundler/internal/params"
)

// Generator produces image locators for a parameter set.
type Generator interface {
	Generate(ctx context.Context, ps params.ParameterSet) ([]string, error)
}

// RetryingGenerator retries a Generator with exponential backoff. The contract of
// the wrapped Generator is unchanged: the last error is returned as is.
type RetryingGenerator struct {
	next       Generator
	maxRetries uint64
	initial    time.Duration
}

// WithRetry wraps next. With maxRetries == 0 it returns next unchanged.
func WithRetry(next Generator, maxRetries uint64, initial time.Duration) Generator {
	if maxRetries == 0 {
		return next
	}
	return &RetryingGenerator{next: next, maxRetries: maxRetries, initial: initial}
}

func (r *RetryingGenerator) Generate(ctx context.Context, ps params.ParameterSet) ([]string, error) {
	policy := backoff.NewExponentialBackOff()
	if r.initial > 0 {
		policy.InitialInterval = r.initial
	}

	var locators []string
	attempt := 0
	operation := func() error {
		attempt++
		var err error
		locators, err = r.next.Generate(ctx, ps)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("Generation failed, retrying")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx), notify)
	if err != nil {
		return nil, err
	}
	return locators, nil
}
