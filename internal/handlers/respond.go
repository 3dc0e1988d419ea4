package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-booking/internal/clock"
	"github.com/ukydev/fleet-booking/internal/models"
)

type messageResponse struct {
	Message string `json:"message"`
}

type availabilityResponse struct {
	Message       string `json:"message"`
	AvailableFrom string `json:"available_from"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// writeError maps domain errors to status codes. Anything unrecognized is a
// storage or internal failure and is logged before answering 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *log.Entry, err error) {
	var (
		verr *models.ValidationError
		cerr *models.ConflictError
	)
	switch {
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusConflict, availabilityResponse{
			Message:       "Vehicle is already on route",
			AvailableFrom: clock.Format(cerr.AvailableFrom),
		})
	case errors.Is(err, models.ErrVehicleNotFound):
		writeMessage(w, http.StatusNotFound, "Vehicle not found")
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Message)
	default:
		logger.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func componentLogger(l *log.Entry) *log.Entry {
	if l != nil {
		return l
	}
	return log.WithField("component", "handlers")
}
