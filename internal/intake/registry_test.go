package intake

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medbridge-ai/intake-pipeline/internal/consultation"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

func newRegistryFixture(t *testing.T, llmForSession func() LLMClient) (*SessionRegistry, *fakeReports) {
	t.Helper()
	logger := logging.New("error")
	consultations := &fakeConsultations{record: &consultation.Consultation{
		ID:        uuid.New(),
		Specialty: "General Practice",
		Status:    consultation.StatusActive,
	}}
	reports := &fakeReports{}
	service := NewReportService(NewMemoryLocks(), &fakeGenerator{analysis: plausibleAnalysis()}, consultations, reports, logger)

	factory := func(id uuid.UUID) *AgenticService {
		c := NewCollector()
		c.Initialize(time.Time{})
		det := NewCompletenessDetector(c)
		return NewAgenticService(c, det, llmForSession(), "test-model", logger)
	}
	return NewSessionRegistry(factory, service, logger), reports
}

func TestRegistryAcquireReturnsSameSession(t *testing.T) {
	reg, _ := newRegistryFixture(t, func() LLMClient { return &scriptedLLM{} })

	id := uuid.New()
	first := reg.Acquire(id)
	second := reg.Acquire(id)
	if first != second {
		t.Fatal("same consultation id must map to the same session")
	}
	if other := reg.Acquire(uuid.New()); other == first {
		t.Fatal("different consultations must not share a session")
	}
	if reg.Len() != 2 {
		t.Errorf("len = %d, want 2", reg.Len())
	}
}

func TestRegistryRemove(t *testing.T) {
	reg, _ := newRegistryFixture(t, func() LLMClient { return &scriptedLLM{} })

	id := uuid.New()
	first := reg.Acquire(id)
	reg.Remove(id)
	if reg.Len() != 0 {
		t.Fatalf("len = %d, want 0", reg.Len())
	}
	if reg.Acquire(id) == first {
		t.Fatal("removed session must not be reused")
	}
}

func TestRegistrySweepIdle(t *testing.T) {
	reg, _ := newRegistryFixture(t, func() LLMClient { return &scriptedLLM{} })

	reg.Acquire(uuid.New())
	if evicted := reg.SweepIdle(time.Now()); evicted != 0 {
		t.Fatalf("fresh session evicted: %d", evicted)
	}
	if evicted := reg.SweepIdle(time.Now().Add(3 * time.Hour)); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if reg.Len() != 0 {
		t.Errorf("len = %d, want 0", reg.Len())
	}
}

func TestSessionQuickReplyOutcome(t *testing.T) {
	reg, _ := newRegistryFixture(t, func() LLMClient { return &scriptedLLM{} })
	session := reg.Acquire(uuid.New())
	ctx := context.Background()
	base := time.Now()

	session.HandleMessage(ctx, Message{Role: RolePatient, Content: "I have a fever", SentAt: base})
	outcome := session.HandleMessage(ctx, Message{Role: RolePatient, Content: "it's really bad", SentAt: base.Add(time.Minute)})
	if !outcome.Process.ShouldConfirm {
		t.Fatalf("outcome = %+v, want confirmation request", outcome)
	}
	if outcome.GateResult != nil {
		t.Error("held message must not reach the gate")
	}

	summary := session.Confirm("it's really bad")
	if summary == "" {
		t.Error("confirmation summary empty")
	}
}

func TestSessionProviderMessageSkipsExtraction(t *testing.T) {
	reg, _ := newRegistryFixture(t, func() LLMClient { return &scriptedLLM{} })
	session := reg.Acquire(uuid.New())

	outcome := session.HandleMessage(context.Background(), Message{
		Role: RoleProvider, Content: "How severe is the headache?", SentAt: time.Now(),
	})
	if outcome.GateResult == nil {
		t.Fatal("provider messages still run the gate check")
	}
	if outcome.GateResult.ShouldTrigger {
		t.Error("empty collector must not trigger")
	}
}

func TestSessionFullPipelineGeneratesReport(t *testing.T) {
	reg, reports := newRegistryFixture(t, func() LLMClient {
		return &scriptedLLM{responses: []LLMResponse{completeJudgment()}}
	})
	session := reg.Acquire(uuid.New())
	ctx := context.Background()

	var report *AutomaticDiagnosticResult
	for _, msg := range richTranscript() {
		if outcome := session.HandleMessage(ctx, msg); outcome.Report != nil {
			report = outcome.Report
		}
	}

	if report == nil {
		t.Fatal("no outcome carried a report result")
	}
	if !report.Success {
		t.Fatalf("report result = %+v, want success", report)
	}
	if len(reports.saved) != 1 {
		t.Errorf("saved reports = %d, want 1", len(reports.saved))
	}
}

func TestSessionResetClearsTranscript(t *testing.T) {
	reg, _ := newRegistryFixture(t, func() LLMClient { return &scriptedLLM{} })
	session := reg.Acquire(uuid.New())
	ctx := context.Background()

	session.HandleMessage(ctx, Message{Role: RolePatient, Content: "severe headache for a week", SentAt: time.Now()})
	session.Reset()
	if len(session.messages) != 0 {
		t.Errorf("messages = %d, want 0", len(session.messages))
	}
	if session.agentic.Collector().MessageCount() != 0 {
		t.Error("collector state survived reset")
	}
}
