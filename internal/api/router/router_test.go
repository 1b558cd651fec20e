package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medbridge-ai/intake-pipeline/internal/consultation"
	"github.com/medbridge-ai/intake-pipeline/internal/http/handlers"
	"github.com/medbridge-ai/intake-pipeline/internal/intake"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

type stubConsultations struct{}

func (stubConsultations) Get(_ context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	return &consultation.Consultation{ID: id, Specialty: "General Practice", Status: consultation.StatusActive}, nil
}

func (stubConsultations) UpdateStatusAndAssessment(context.Context, uuid.UUID, string, string) error {
	return nil
}

type stubReports struct{}

func (stubReports) Save(_ context.Context, r *consultation.Report) (uuid.UUID, error) {
	return uuid.New(), nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, intake.DiagnosticRequest) (intake.GeneratedAnalysis, error) {
	return intake.GeneratedAnalysis{Analysis: "ok", Urgency: "routine"}, nil
}

type stubLLM struct{}

func (stubLLM) Complete(context.Context, intake.LLMRequest) (intake.LLMResponse, error) {
	return intake.LLMResponse{}, errors.New("model disabled in tests")
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.New("error")
	service := intake.NewReportService(intake.NewMemoryLocks(), stubGenerator{}, stubConsultations{}, stubReports{}, logger)
	factory := func(uuid.UUID) *intake.AgenticService {
		c := intake.NewCollector()
		c.Initialize(time.Time{})
		return intake.NewAgenticService(c, intake.NewCompletenessDetector(c), stubLLM{}, "test-model", logger)
	}
	registry := intake.NewSessionRegistry(factory, service, logger)

	cfg := &Config{
		Logger: logger,
		Intake: handlers.NewIntakeHandler(handlers.IntakeConfig{
			Registry:      registry,
			Consultations: stubConsultations{},
			Logger:        logger,
		}),
		OpsAuthSecret: "test-secret",
	}
	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}
}

func TestRouterMessageEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]any{
		"consultation_id": uuid.NewString(),
		"role":            "patient",
		"content":         "I have a terrible headache",
	})
	req := httptest.NewRequest(http.MethodPost, "/intake/events/message", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestRouterResetRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/intake/consultations/"+uuid.NewString()+"/reset", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
