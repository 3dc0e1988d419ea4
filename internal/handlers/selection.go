package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-booking/internal/clock"
	"github.com/ukydev/fleet-booking/internal/models"
)

// Dispatcher moves vehicles on and off route.
type Dispatcher interface {
	Reserve(ctx context.Context, plate string, distanceKm int) (*models.TripDetails, error)
	Release(ctx context.Context, plate string) (*models.Release, error)
}

type reservationResponse struct {
	Message     string              `json:"message"`
	TripDetails *models.TripDetails `json:"trip_details"`
}

// SelectionHandler serves /select/{plate}: PUT reserves, PATCH releases.
type SelectionHandler struct {
	Dispatcher Dispatcher
	Logger     *log.Entry
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(d Dispatcher, logger *log.Entry) *SelectionHandler {
	return &SelectionHandler{Dispatcher: d, Logger: componentLogger(logger)}
}

func (h *SelectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.Reserve(w, r)
	case http.MethodPatch:
		h.Release(w, r)
	default:
		methodNotAllowed(w)
	}
}

// Reserve puts the vehicle on route for ?distance= kilometers.
func (h *SelectionHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	plate := r.PathValue("plate")
	distance, _ := strconv.Atoi(r.URL.Query().Get("distance"))

	trip, err := h.Dispatcher.Reserve(r.Context(), plate, distance)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationResponse{
		Message:     fmt.Sprintf("Vehicle %s has been set on route", plate),
		TripDetails: trip,
	})
}

// Release makes the vehicle available immediately.
func (h *SelectionHandler) Release(w http.ResponseWriter, r *http.Request) {
	plate := r.PathValue("plate")

	rel, err := h.Dispatcher.Release(r.Context(), plate)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		Message:       fmt.Sprintf("Vehicle %s is now available", plate),
		AvailableFrom: clock.Format(rel.AvailableFrom),
	})
}
