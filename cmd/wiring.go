package cmd

import (
	"net/http"

	"github.com/cheahjs/replicate-image-bundler/internal/fetch"
	"github.com/cheahjs/replicate-image-bundler/internal/pipeline"
	"github.com/cheahjs/replicate-image-bundler/internal/replicate"
)

func newOrchestrator(opts ...pipeline.Option) (*pipeline.Orchestrator, error) {
	client, err := replicate.NewClient(cfg.ReplicateAPIToken, cfg.ModelEndpoint,
		replicate.WithBaseURL(cfg.ReplicateBaseURL),
		replicate.WithPollInterval(cfg.PollInterval),
		replicate.WithTimeout(cfg.GenerationTimeout),
	)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.NewFetcher(
		fetch.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
		fetch.WithConcurrency(cfg.FetchConcurrency),
		fetch.WithRateInterval(cfg.FetchRateInterval),
	)

	return pipeline.NewOrchestrator(
		replicate.WithRetry(client, cfg.GenerationRetries, cfg.RetryInterval),
		fetcher,
		opts...,
	)
}
