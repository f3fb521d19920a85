package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"greenhouse/internal/models"
	"greenhouse/internal/service"
)

type fakeReadingsService struct {
	createCalls int
	listCalls   int
	createErr   error
	listErr     error
	reading     *models.Reading
	page        *service.ReadingPage
	lastInput   service.ReadingInput
	lastQuery   service.ListQuery
}

func (f *fakeReadingsService) CreateReading(_ context.Context, input service.ReadingInput) (*models.Reading, error) {
	f.createCalls++
	f.lastInput = input
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.reading, nil
}

func (f *fakeReadingsService) ListReadings(_ context.Context, query service.ListQuery) (*service.ReadingPage, error) {
	f.listCalls++
	f.lastQuery = query
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.page, nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return body
}

func TestCreateReturnsPersistedReading(t *testing.T) {
	svc := &fakeReadingsService{
		reading: &models.Reading{
			ID:         1,
			DeviceID:   "sensor-001",
			Sensor:     "temperature",
			Value:      23.5,
			Unit:       "celsius",
			RecordedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	h := NewReadingsHandlers(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readings",
		strings.NewReader(`{"device_id":"sensor-001","sensor":"temperature","value":23.5,"unit":"celsius"}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["id"] != float64(1) {
		t.Fatalf("expected id 1, got %v", body["id"])
	}
	if body["unit"] != "celsius" {
		t.Fatalf("expected unit celsius, got %v", body["unit"])
	}
	if svc.lastInput.Value == nil || *svc.lastInput.Value != 23.5 {
		t.Fatalf("value not forwarded: %+v", svc.lastInput)
	}
}

func TestCreateRejectsInvalidJSON(t *testing.T) {
	svc := &fakeReadingsService{}
	h := NewReadingsHandlers(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readings", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if svc.createCalls != 0 {
		t.Fatal("service must not be called for malformed JSON")
	}
	if _, ok := decodeBody(t, rec)["detail"]; !ok {
		t.Fatal("error body must carry a detail field")
	}
}

func TestCreateRejectsTrailingData(t *testing.T) {
	for _, body := range []string{
		`{"device_id":"d","sensor":"s","value":1}garbage`,
		`{"device_id":"d","sensor":"s","value":1}{"device_id":"e"}`,
	} {
		svc := &fakeReadingsService{}
		h := NewReadingsHandlers(svc, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/readings", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Create(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", body, rec.Code)
		}
		if svc.createCalls != 0 {
			t.Fatalf("%s: service must not be called", body)
		}
	}
}

func TestCreateMapsValidationErrors(t *testing.T) {
	svc := &fakeReadingsService{
		createErr: &service.ValidationError{Fields: []service.FieldError{{Field: "device_id", Message: "is required"}}},
	}
	h := NewReadingsHandlers(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readings", strings.NewReader(`{"sensor":"temperature","value":1}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	detail, ok := decodeBody(t, rec)["detail"].([]any)
	if !ok || len(detail) != 1 {
		t.Fatalf("expected structured detail, got %v", detail)
	}
}

func TestCreateHidesStorageFailureDetail(t *testing.T) {
	svc := &fakeReadingsService{createErr: errors.New("pq: relation lost")}
	h := NewReadingsHandlers(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/readings", strings.NewReader(`{"device_id":"d","sensor":"s","value":1}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "relation") {
		t.Fatal("storage detail must not leak to the client")
	}
	if decodeBody(t, rec)["detail"] != "Failed to create reading" {
		t.Fatalf("expected generic detail, got %s", rec.Body.String())
	}
}

func TestListDefaultsAndForwarding(t *testing.T) {
	svc := &fakeReadingsService{
		page: &service.ReadingPage{Items: []models.Reading{}, Total: 0, Limit: 100, Offset: 0},
	}
	h := NewReadingsHandlers(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings?device_id=a&sensor=temperature", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastQuery.Limit != service.DefaultLimit || svc.lastQuery.Offset != 0 {
		t.Fatalf("defaults not applied: %+v", svc.lastQuery)
	}
	if svc.lastQuery.DeviceID != "a" || svc.lastQuery.Sensor != "temperature" {
		t.Fatalf("filter not forwarded: %+v", svc.lastQuery)
	}

	body := decodeBody(t, rec)
	items, ok := body["items"].([]any)
	if !ok || len(items) != 0 {
		t.Fatalf("expected empty items array, got %v", body["items"])
	}
}

func TestListParsesPagination(t *testing.T) {
	svc := &fakeReadingsService{
		page: &service.ReadingPage{Items: []models.Reading{}, Total: 3, Limit: 5, Offset: 2},
	}
	h := NewReadingsHandlers(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings?limit=5&offset=2", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastQuery.Limit != 5 || svc.lastQuery.Offset != 2 {
		t.Fatalf("pagination not forwarded: %+v", svc.lastQuery)
	}
}

func TestListRejectsNonIntegerPagination(t *testing.T) {
	for _, query := range []string{"limit=abc", "offset=abc", "limit=1.5"} {
		svc := &fakeReadingsService{}
		h := NewReadingsHandlers(svc, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/readings?"+query, nil)
		rec := httptest.NewRecorder()

		h.List(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", query, rec.Code)
		}
		if svc.listCalls != 0 {
			t.Fatalf("%s: service must not be called", query)
		}
	}
}

func TestListMapsValidationErrors(t *testing.T) {
	svc := &fakeReadingsService{
		listErr: &service.ValidationError{Fields: []service.FieldError{{Field: "limit", Message: "must be between 1 and 2000"}}},
	}
	h := NewReadingsHandlers(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings?limit=2001", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestListHidesStorageFailureDetail(t *testing.T) {
	svc := &fakeReadingsService{listErr: errors.New("dial tcp: connection refused")}
	h := NewReadingsHandlers(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "dial tcp") {
		t.Fatal("storage detail must not leak to the client")
	}
}
