package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-booking/internal/models"
)

// Fleet is the vehicle registry as seen by the HTTP layer.
type Fleet interface {
	List(ctx context.Context) ([]models.Vehicle, error)
	Create(ctx context.Context, attrs models.VehicleAttributes) (*models.Vehicle, error)
	Update(ctx context.Context, sel models.Selector, attrs models.VehicleAttributes) (*models.Vehicle, error)
	Delete(ctx context.Context, sel models.Selector) (*models.Deletion, error)
}

// vehicleRequest is the body of POST, PUT and DELETE /all/fleet.
type vehicleRequest struct {
	ID *int64 `json:"id,omitempty"`
	models.VehicleAttributes
}

// selector prefers the id and falls back to the plate. An id of 0 counts as
// absent when a plate is given.
func (req vehicleRequest) selector() models.Selector {
	if req.ID != nil && (*req.ID != 0 || req.LicensePlateNumber == nil) {
		return models.ByID(*req.ID)
	}
	if req.LicensePlateNumber != nil {
		return models.ByPlate(*req.LicensePlateNumber)
	}
	return models.Selector{}
}

// VehicleHandler serves /all/fleet.
type VehicleHandler struct {
	Fleet  Fleet
	Logger *log.Entry
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(fleet Fleet, logger *log.Entry) *VehicleHandler {
	return &VehicleHandler{Fleet: fleet, Logger: componentLogger(logger)}
}

func (h *VehicleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodPut:
		h.Update(w, r)
	case http.MethodDelete:
		h.Delete(w, r)
	default:
		methodNotAllowed(w)
	}
}

// List returns every vehicle, refreshing idle availability first.
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.Fleet.List(r.Context())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// Create registers a vehicle.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeVehicleRequest(w, r, true)
	if !ok {
		return
	}
	v, err := h.Fleet.Create(r.Context(), req.VehicleAttributes)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Update applies a partial update to the vehicle selected by id or plate.
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeVehicleRequest(w, r, true)
	if !ok {
		return
	}
	v, err := h.Fleet.Update(r.Context(), req.selector(), req.VehicleAttributes)
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Delete removes the vehicle selected by id or plate, read from the body or
// from the query string.
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeVehicleRequest(w, r, false)
	if !ok {
		return
	}
	q := r.URL.Query()
	if req.ID == nil && q.Get("id") != "" {
		id, err := strconv.ParseInt(q.Get("id"), 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid id")
			return
		}
		req.ID = &id
	}
	if req.LicensePlateNumber == nil && q.Get("license_plate_number") != "" {
		plate := q.Get("license_plate_number")
		req.LicensePlateNumber = &plate
	}

	d, err := h.Fleet.Delete(r.Context(), req.selector())
	if err != nil {
		writeError(w, r, h.Logger, err)
		return
	}
	writeMessage(w, http.StatusOK, d.Message())
}

// decodeVehicleRequest reads the JSON body. An empty body is an error only
// when required is set.
func decodeVehicleRequest(w http.ResponseWriter, r *http.Request, required bool) (vehicleRequest, bool) {
	var req vehicleRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Failed to read request body")
		return req, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if required {
			writeMessage(w, http.StatusBadRequest, "Request body is required")
			return req, false
		}
		return req, true
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return req, false
	}
	return req, true
}
