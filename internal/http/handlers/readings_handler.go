package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"greenhouse/internal/models"
	"greenhouse/internal/service"
)

// ReadingsService is the application boundary the handlers dispatch to.
type ReadingsService interface {
	CreateReading(ctx context.Context, input service.ReadingInput) (*models.Reading, error)
	ListReadings(ctx context.Context, query service.ListQuery) (*service.ReadingPage, error)
}

// ReadingsHandlers serves the /api/v1/readings endpoints.
type ReadingsHandlers struct {
	service ReadingsService
	logger  *zap.Logger
}

// NewReadingsHandlers returns handlers.
func NewReadingsHandlers(service ReadingsService, logger *zap.Logger) *ReadingsHandlers {
	return &ReadingsHandlers{
		service: service,
		logger:  logger,
	}
}

// Create handles POST /api/v1/readings.
func (h *ReadingsHandlers) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var input service.ReadingInput
	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(&input)
	if err == nil {
		// A second decode must hit EOF; anything else is trailing garbage.
		switch next := decoder.Decode(&struct{}{}); next {
		case io.EOF:
		case nil:
			err = fmt.Errorf("unexpected data after JSON body")
		default:
			err = next
		}
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid JSON body")
		return
	}

	reading, err := h.service.CreateReading(r.Context(), input)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeFieldErrors(w, http.StatusUnprocessableEntity, verr.Fields)
			return
		}
		h.logger.Error("failed to create reading", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Failed to create reading")
		return
	}

	writeJSON(w, http.StatusCreated, reading)
}

// List handles GET /api/v1/readings.
func (h *ReadingsHandlers) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := service.ListQuery{
		DeviceID: params.Get("device_id"),
		Sensor:   params.Get("sensor"),
		Limit:    service.DefaultLimit,
		Offset:   0,
	}

	var parseErrs []service.FieldError
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			parseErrs = append(parseErrs, service.FieldError{Field: "limit", Message: "must be an integer"})
		} else {
			query.Limit = limit
		}
	}
	if raw := params.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			parseErrs = append(parseErrs, service.FieldError{Field: "offset", Message: "must be an integer"})
		} else {
			query.Offset = offset
		}
	}
	if len(parseErrs) > 0 {
		writeFieldErrors(w, http.StatusUnprocessableEntity, parseErrs)
		return
	}

	page, err := h.service.ListReadings(r.Context(), query)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeFieldErrors(w, http.StatusUnprocessableEntity, verr.Fields)
			return
		}
		h.logger.Error("failed to list readings", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Failed to retrieve readings")
		return
	}

	writeJSON(w, http.StatusOK, page)
}
