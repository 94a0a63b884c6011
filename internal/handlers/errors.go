package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// respondWithError logs the detailed error and sends a user-friendly message
func respondWithError(w http.ResponseWriter, statusCode int, userMessage string, logMessage string, err error) {
	if err != nil {
		logrus.WithError(err).Error(logMessage)
	} else {
		logrus.Error(logMessage)
	}
	respondWithJSON(w, statusCode, map[string]interface{}{
		"error": userMessage,
	})
}

// respondWithJSON writes the payload with the given status code
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}
