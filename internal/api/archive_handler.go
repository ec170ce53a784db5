package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/cheahjs/replicate-image-bundler/internal/archive"
	"github.com/cheahjs/replicate-image-bundler/internal/cache"
)

func (router *Router) archiveHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	bundle, err := router.archiveCache.GetArchive(id)
	if errors.Is(err, cache.ErrArchiveNotFound) {
		respondWithError(w, http.StatusNotFound, "not_found", "Archive not found")
		return
	} else if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to retrieve archive")
		respondWithError(w, http.StatusInternalServerError, "server_error", "Failed to retrieve archive")
		return
	}

	w.Header().Set("Content-Type", archive.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(bundle.Size()))
	w.Write(bundle.Data)
}
