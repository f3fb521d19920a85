package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"greenhouse/internal/models"
	"greenhouse/internal/repository"
)

const (
	maxIdentifierLength = 64
	maxUnitLength       = 16

	// DefaultLimit applies when the caller omits the page size.
	DefaultLimit = 100
	// MaxLimit is the largest accepted page size. Values above it are
	// rejected, never clamped.
	MaxLimit = 2000
)

// ReadingStore is the persistence boundary for readings.
type ReadingStore interface {
	Insert(ctx context.Context, reading *models.Reading) error
	List(ctx context.Context, filter repository.ListFilter, page repository.Page) ([]models.Reading, int, error)
}

// ReadingPublisher receives every successfully stored reading.
type ReadingPublisher interface {
	Publish(reading models.Reading)
}

// ReadingInput represents an incoming observation payload. Value is a pointer
// so a missing measurement can be told apart from an explicit zero.
type ReadingInput struct {
	DeviceID   string     `json:"device_id"`
	Sensor     string     `json:"sensor"`
	Value      *float64   `json:"value"`
	Unit       string     `json:"unit"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// Validate checks field constraints and reports every violation at once.
func (in ReadingInput) Validate() error {
	var verr ValidationError

	if in.DeviceID == "" {
		verr.add("device_id", "is required")
	} else if utf8.RuneCountInString(in.DeviceID) > maxIdentifierLength {
		verr.add("device_id", fmt.Sprintf("must be at most %d characters", maxIdentifierLength))
	}

	if in.Sensor == "" {
		verr.add("sensor", "is required")
	} else if utf8.RuneCountInString(in.Sensor) > maxIdentifierLength {
		verr.add("sensor", fmt.Sprintf("must be at most %d characters", maxIdentifierLength))
	}

	if in.Value == nil {
		verr.add("value", "is required")
	}

	if utf8.RuneCountInString(in.Unit) > maxUnitLength {
		verr.add("unit", fmt.Sprintf("must be at most %d characters", maxUnitLength))
	}

	return verr.orNil()
}

// ListQuery carries filter and pagination parameters for a listing.
type ListQuery struct {
	DeviceID string
	Sensor   string
	Limit    int
	Offset   int
}

// Validate enforces the accepted limit and offset ranges.
func (q ListQuery) Validate() error {
	var verr ValidationError

	if q.Limit < 1 || q.Limit > MaxLimit {
		verr.add("limit", fmt.Sprintf("must be between 1 and %d", MaxLimit))
	}
	if q.Offset < 0 {
		verr.add("offset", "must not be negative")
	}

	return verr.orNil()
}

// ReadingPage is one page of a filtered listing. Total counts all rows
// matching the filter, not just the rows returned.
type ReadingPage struct {
	Items  []models.Reading `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ReadingsService validates, defaults and persists readings.
type ReadingsService struct {
	store     ReadingStore
	publisher ReadingPublisher
	logger    *zap.Logger
}

// NewReadingsService returns service instance. The publisher may be nil when
// no live stream is wired.
func NewReadingsService(store ReadingStore, publisher ReadingPublisher, logger *zap.Logger) *ReadingsService {
	return &ReadingsService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateReading validates the input, applies defaults and stores the reading.
// The returned reading carries its server-assigned id.
func (s *ReadingsService) CreateReading(ctx context.Context, input ReadingInput) (*models.Reading, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	recordedAt := time.Now().UTC()
	if input.RecordedAt != nil && !input.RecordedAt.IsZero() {
		recordedAt = input.RecordedAt.UTC()
	}

	reading := &models.Reading{
		DeviceID:   input.DeviceID,
		Sensor:     input.Sensor,
		Value:      *input.Value,
		Unit:       input.Unit,
		RecordedAt: recordedAt,
	}

	if err := s.store.Insert(ctx, reading); err != nil {
		return nil, err
	}

	s.logger.Info("created reading",
		zap.String("device_id", reading.DeviceID),
		zap.String("sensor", reading.Sensor),
	)

	if s.publisher != nil {
		s.publisher.Publish(*reading)
	}

	return reading, nil
}

// ListReadings returns the filtered page plus the total matching row count.
func (s *ReadingsService) ListReadings(ctx context.Context, query ListQuery) (*ReadingPage, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	items, total, err := s.store.List(ctx,
		repository.ListFilter{DeviceID: query.DeviceID, Sensor: query.Sensor},
		repository.Page{Limit: query.Limit, Offset: query.Offset},
	)
	if err != nil {
		return nil, err
	}

	return &ReadingPage{
		Items:  items,
		Total:  total,
		Limit:  query.Limit,
		Offset: query.Offset,
	}, nil
}
