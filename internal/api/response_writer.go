package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	jsonBody, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBody)
}

func respondWithError(w http.ResponseWriter, status int, errType string, message string) {
	respondWithJSON(w, status, ErrorResponse{Error: ErrorDetail{Message: message, Type: errType}})
}
