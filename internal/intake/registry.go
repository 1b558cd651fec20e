package intake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medbridge-ai/intake-pipeline/internal/observability/metrics"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

// SessionOutcome is what one processed message produced, for the caller
// to branch on.
type SessionOutcome struct {
	Process    ProcessResult              `json:"process"`
	GateResult *DiagnosticTriggerResult   `json:"gate_result,omitempty"`
	Guidance   string                     `json:"guidance,omitempty"`
	Report     *AutomaticDiagnosticResult `json:"report,omitempty"`
}

// Session is the per-consultation pipeline state: one collector, one
// gate, one analyzer, plus the visible transcript window. A mutex
// serializes message processing so arrival order is preserved even when
// the transport fans out deliveries.
type Session struct {
	mu           sync.Mutex
	id           uuid.UUID
	agentic      *AgenticService
	reports      *ReportService
	metrics      *metrics.PipelineMetrics
	messages     []Message
	lastActivity time.Time
}

// HandleMessage runs the full per-message pipeline: extract, gate check,
// and — when the gate fires — the report trigger path.
func (s *Session) HandleMessage(ctx context.Context, msg Message) SessionOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = time.Now()
	s.messages = append(s.messages, msg)

	var outcome SessionOutcome
	if msg.Role == RolePatient {
		outcome.Process = s.agentic.Collector().Process(msg.Content, msg.Role, msg.SentAt)
		switch {
		case outcome.Process.ShouldConfirm:
			s.metrics.ObserveMessage("held_for_confirmation")
			return outcome
		case outcome.Process.Reason == ReasonWindowExpired:
			s.metrics.ObserveMessage("window_expired")
			return outcome
		default:
			s.metrics.ObserveMessage("accepted")
		}
	}

	gate := s.agentic.Detector().ShouldTriggerDiagnostic()
	outcome.GateResult = &gate
	s.metrics.ObserveGateCheck(gate.ShouldTrigger, string(gate.RecommendedAction))

	if !gate.ShouldTrigger {
		if gate.RecommendedAction == ActionCollectMore && gate.Reason == "insufficient data" {
			outcome.Guidance = s.agentic.Detector().CollectionGuidance(gate)
		}
		return outcome
	}

	report := s.reports.CheckAndTriggerAutomaticReport(ctx, s.agentic, ReportContext{
		ConsultationID: s.id,
		Messages:       append([]Message(nil), s.messages...),
	})
	outcome.Report = &report
	return outcome
}

// Confirm accepts a quick reply the caller has explicitly confirmed.
func (s *Session) Confirm(content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = time.Now()
	s.agentic.Collector().ProcessConfirmed(content)
	s.metrics.ObserveMessage("confirmed")
	return s.agentic.Collector().Summary()
}

// LastPatientContent returns the most recent patient message in the
// visible window, or "" when none arrived yet.
func (s *Session) LastPatientContent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RolePatient {
			return s.messages[i].Content
		}
	}
	return ""
}

// Reset clears all pipeline state for this consultation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.agentic.Reset()
	s.messages = nil
}

// SessionFactory builds the per-consultation agentic stack.
type SessionFactory func(consultationID uuid.UUID) *AgenticService

// SessionRegistry keys pipeline state by consultation id so concurrent
// consultations never share mutable fields. Idle sessions are evicted by
// the sweep loop; the 30-minute collection window makes a swept-and-
// recreated session behave the same as a kept one for expired chats.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	factory SessionFactory
	reports *ReportService
	metrics *metrics.PipelineMetrics
	logger  *logging.Logger
	idleTTL time.Duration
}

// RegistryOption configures a SessionRegistry.
type RegistryOption func(*SessionRegistry)

// WithSessionIdleTTL overrides how long an inactive session survives.
func WithSessionIdleTTL(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// WithRegistryMetrics attaches Prometheus metrics to new sessions.
func WithRegistryMetrics(m *metrics.PipelineMetrics) RegistryOption {
	return func(r *SessionRegistry) {
		r.metrics = m
	}
}

func NewSessionRegistry(factory SessionFactory, reports *ReportService, logger *logging.Logger, opts ...RegistryOption) *SessionRegistry {
	if factory == nil {
		panic("intake: session factory cannot be nil")
	}
	if reports == nil {
		panic("intake: report service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &SessionRegistry{
		sessions: make(map[uuid.UUID]*Session),
		factory:  factory,
		reports:  reports,
		logger:   logger,
		idleTTL:  2 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the session for a consultation, creating it on first
// use.
func (r *SessionRegistry) Acquire(consultationID uuid.UUID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[consultationID]; ok {
		return s
	}
	s := &Session{
		id:           consultationID,
		agentic:      r.factory(consultationID),
		reports:      r.reports,
		metrics:      r.metrics,
		lastActivity: time.Now(),
	}
	r.sessions[consultationID] = s
	return s
}

// Remove drops a consultation's session at lifecycle end.
func (r *SessionRegistry) Remove(consultationID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, consultationID)
}

// Len reports how many sessions are live.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SweepIdle evicts sessions inactive past the idle TTL and returns how
// many were removed.
func (r *SessionRegistry) SweepIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastActivity) > r.idleTTL
		s.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps idle sessions until the context is cancelled.
func (r *SessionRegistry) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if evicted := r.SweepIdle(now); evicted > 0 {
				r.logger.Debug("evicted idle intake sessions", "count", evicted)
			}
		}
	}
}
