package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-booking/internal/clock"
	"github.com/ukydev/fleet-booking/internal/models"
)

// Ranker prices a trip request against the fleet.
type Ranker interface {
	Rank(ctx context.Context, req models.TripRequest, now time.Time) (*models.Ranking, error)
}

// CombinationHandler serves GET /combinations.
type CombinationHandler struct {
	Ranker Ranker
	Clock  clock.Clock
	Logger *log.Entry
}

// NewCombinationHandler creates a new combination handler
func NewCombinationHandler(ranker Ranker, c clock.Clock, logger *log.Entry) *CombinationHandler {
	return &CombinationHandler{Ranker: ranker, Clock: c, Logger: componentLogger(logger)}
}

func (h *CombinationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	// Unparseable values count as missing.
	q := r.URL.Query()
	passengers, _ := strconv.Atoi(q.Get("passengers"))
	distance, _ := strconv.Atoi(q.Get("distance"))

	ranking, err := h.Ranker.Rank(r.Context(), models.TripRequest{Passengers: passengers, Distance: distance}, h.Clock.Now())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}
