package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/cheahjs/replicate-image-bundler/internal/cache"
	"github.com/cheahjs/replicate-image-bundler/internal/params"
	"github.com/cheahjs/replicate-image-bundler/internal/pipeline"
	"github.com/cheahjs/replicate-image-bundler/internal/replicate"
)

const maxRequestBytes = 1 << 20

// Runner executes a pipeline run for one submission.
type Runner interface {
	Run(ctx context.Context, in params.Input) (*pipeline.Result, error)
}

type Router struct {
	router       *mux.Router
	runner       Runner
	archiveCache *cache.ArchiveCache
	baseURL      string
}

func NewRouter(runner Runner, archiveCache *cache.ArchiveCache, baseURL string) *Router {
	r := mux.NewRouter()
	router := &Router{
		router:       r,
		runner:       runner,
		archiveCache: archiveCache,
		baseURL:      baseURL,
	}

	r.HandleFunc("/image/generation", router.imageGenerationHandler).Methods("POST")
	r.HandleFunc("/archives/{id}", router.archiveHandler).Methods("GET")
	r.HandleFunc("/examples", router.examplesHandler).Methods("GET")

	return router
}

func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router.router.ServeHTTP(w, r)
}

func (router *Router) getBaseUrl(r *http.Request) string {
	if router.baseURL != "" {
		return router.baseURL
	}
	return "http://" + r.Host
}

func (router *Router) imageGenerationHandler(w http.ResponseWriter, r *http.Request) {
	var request GenerationRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		log.Warn().Int64("limit", tooLarge.Limit).Msg("Request body too large")
		respondWithError(w, http.StatusRequestEntityTooLarge, "invalid_request_error",
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		return
	} else if err != nil {
		log.Warn().Err(err).Msg("Failed to read request body")
		respondWithError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}

	if len(body) > 0 {
		if err := json.Unmarshal(body, &request); err != nil {
			log.Warn().Err(err).Msg("Failed to decode generation request")
			respondWithError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
			return
		}
	}

	result, err := router.runner.Run(r.Context(), convertRequest(request))
	if err != nil {
		router.respondWithRunError(w, err)
		return
	}

	archiveID, err := router.archiveCache.StoreArchive(result.Archive)
	if errors.Is(err, cache.ErrStoreFull) {
		respondWithError(w, http.StatusServiceUnavailable, "server_error", "Archive store is full, try again later")
		return
	} else if err != nil {
		log.Error().Err(err).Msg("Failed to store archive")
		respondWithError(w, http.StatusInternalServerError, "server_error", "Failed to store archive")
		return
	}

	respondWithJSON(w, http.StatusOK, convertResult(result, archiveID, router.getBaseUrl(r)))
}

func (router *Router) respondWithRunError(w http.ResponseWriter, err error) {
	var invalid *params.InvalidParameterError
	var busy *pipeline.PipelineBusyError
	var svcErr *replicate.GenerationServiceError

	switch {
	case errors.As(err, &invalid):
		respondWithError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
	case errors.As(err, &busy):
		respondWithError(w, http.StatusConflict, "pipeline_busy", err.Error())
	case errors.As(err, &svcErr):
		respondWithError(w, http.StatusBadGateway, "generation_service_error", err.Error())
	default:
		log.Error().Err(err).Msg("Pipeline run failed unexpectedly")
		respondWithError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}
