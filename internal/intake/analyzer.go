package intake

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medbridge-ai/intake-pipeline/internal/observability/metrics"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

var analyzerTracer = otel.Tracer("intake/agentic-analyzer")

// Recommended actions the completion model may return.
const (
	ActionContinueConversation = "continue_conversation"
	ActionGenerateReport       = "generate_report"
	ActionAskClarifying        = "ask_clarifying_questions"
)

const (
	defaultAnalyzerCooldown = 60 * time.Second
	triggerConfidenceFloor  = 0.7

	// Conservative fallback rule thresholds, used when the model call
	// fails or returns nothing parsable.
	fallbackMinMessages = 6
	fallbackMinElapsed  = 5 * time.Minute
	fallbackHighConf    = 0.6
	fallbackLowConf     = 0.3
)

// ConsultationContext carries the consultation metadata fed into the
// analysis prompt.
type ConsultationContext struct {
	ConsultationID string
	ReasonForVisit string
	Specialty      string
	PatientAge     int
	PatientGender  string
}

// CompletionAnalysis is the model's judgment on whether the consultation
// is over and the information goal has been met.
type CompletionAnalysis struct {
	IsComplete           bool     `json:"isComplete"`
	Confidence           float64  `json:"confidence"`
	Reasoning            string   `json:"reasoning"`
	CompletionIndicators []string `json:"completionIndicators"`
	MissingElements      []string `json:"missingElements"`
	RecommendedAction    string   `json:"recommendedAction"`

	// RuleFallback marks results produced by the deterministic rule
	// rather than the model.
	RuleFallback bool `json:"-"`
}

// DiagnosticRequest is the downstream request shape handed to the
// report generator.
type DiagnosticRequest struct {
	ConsultationID      string         `json:"consultation_id"`
	Symptoms            []string       `json:"symptoms"`
	Duration            DurationBucket `json:"duration"`
	Severity            SeverityBucket `json:"severity"`
	AdditionalInfo      string         `json:"additional_info,omitempty"`
	MedicalHistory      []string       `json:"medical_history,omitempty"`
	CurrentMedications  []string       `json:"current_medications,omitempty"`
	Allergies           []string       `json:"allergies,omitempty"`
	ConversationSummary string         `json:"conversation_summary,omitempty"`
	ProviderInsights    string         `json:"provider_insights,omitempty"`
}

// DiagnosticTrigger is the outcome of the full agentic trigger check.
type DiagnosticTrigger struct {
	ShouldTrigger bool
	Analysis      CompletionAnalysis
	Request       DiagnosticRequest
	Notification  string
	Reason        string
}

// reportNotification is shown to the patient when generation starts.
const reportNotification = "Thanks, I have everything I need. I'm putting together your report now — it will be ready in a moment."

// AgenticService is the agentic decision layer: it combines the keyword
// collector and completeness gate with a model-backed completion
// judgment, and only triggers report generation when both agree.
type AgenticService struct {
	collector *Collector
	detector  *CompletenessDetector
	llm       LLMClient
	model     string
	logger    *logging.Logger
	metrics   *metrics.PipelineMetrics
	clock     func() time.Time
	cooldown  time.Duration

	lastTriggerCheck time.Time
}

// AgenticOption configures an AgenticService.
type AgenticOption func(*AgenticService)

// WithAnalyzerCooldown overrides the 60-second model-check rate limit.
func WithAnalyzerCooldown(d time.Duration) AgenticOption {
	return func(s *AgenticService) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithAnalyzerClock overrides the wall clock, for tests.
func WithAnalyzerClock(clock func() time.Time) AgenticOption {
	return func(s *AgenticService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPipelineMetrics attaches Prometheus metrics.
func WithPipelineMetrics(m *metrics.PipelineMetrics) AgenticOption {
	return func(s *AgenticService) {
		s.metrics = m
	}
}

// NewAgenticService wires the analyzer around a collector, detector and
// LLM client. The model id may be empty for providers that carry their
// own default.
func NewAgenticService(collector *Collector, detector *CompletenessDetector, llm LLMClient, model string, logger *logging.Logger, opts ...AgenticOption) *AgenticService {
	if collector == nil {
		panic("intake: collector cannot be nil")
	}
	if detector == nil {
		panic("intake: detector cannot be nil")
	}
	if llm == nil {
		panic("intake: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &AgenticService{
		collector: collector,
		detector:  detector,
		llm:       llm,
		model:     model,
		logger:    logger,
		clock:     time.Now,
		cooldown:  defaultAnalyzerCooldown,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collector exposes the underlying collector for the live message path.
func (s *AgenticService) Collector() *Collector { return s.collector }

// Detector exposes the underlying completeness gate.
func (s *AgenticService) Detector() *CompletenessDetector { return s.detector }

// AnalyzeConversationCompletion re-feeds the visible window through the
// collector, asks the model whether the consultation is complete, and
// falls back to a deterministic rule if the call fails or nothing
// parsable comes back. It never returns an error: model failures
// downgrade, they do not propagate.
func (s *AgenticService) AnalyzeConversationCompletion(ctx context.Context, messages []Message, consultCtx ConsultationContext) CompletionAnalysis {
	ctx, span := analyzerTracer.Start(ctx, "intake.analyze_completion")
	defer span.End()

	s.refeed(messages)
	completeness := s.collector.Completeness()
	data := s.collector.DiagnosticData()

	prompt := buildCompletionPrompt(consultCtx, messages, completeness, data)
	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:       s.model,
		System:      []string{completionAnalysisInstructions},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		MaxTokens:   600,
		Temperature: 0.2,
	})
	if err != nil {
		s.logger.Warn("completion analysis model call failed, using rule fallback",
			"error", err,
			"consultation_id", consultCtx.ConsultationID,
		)
		analysis := s.ruleFallback(messages, completeness)
		s.metrics.ObserveAnalyzer("fallback", analysis.IsComplete)
		return analysis
	}

	var analysis CompletionAnalysis
	if err := decodeJSONObject(resp.Text, &analysis); err != nil {
		s.logger.Warn("completion analysis response unparsable, using rule fallback",
			"error", err,
			"consultation_id", consultCtx.ConsultationID,
		)
		analysis = s.ruleFallback(messages, completeness)
		s.metrics.ObserveAnalyzer("fallback", analysis.IsComplete)
		return analysis
	}

	span.SetAttributes(
		attribute.Bool("analysis.complete", analysis.IsComplete),
		attribute.Float64("analysis.confidence", analysis.Confidence),
		attribute.String("analysis.action", analysis.RecommendedAction),
	)
	s.metrics.ObserveAnalyzer("model", analysis.IsComplete)
	return analysis
}

// refeed resets the collector and replays the window's patient messages
// in arrival order. Quick replies the live pipeline already surfaced for
// confirmation are counted here: retaining a message in the visible
// window stands in for the caller's confirmation during replay.
func (s *AgenticService) refeed(messages []Message) {
	s.collector.Reset()
	for _, msg := range messages {
		if msg.Role != RolePatient {
			continue
		}
		res := s.collector.Process(msg.Content, msg.Role, msg.SentAt)
		if res.ShouldConfirm {
			s.collector.ProcessConfirmed(msg.Content)
		}
	}
}

// ruleFallback is the conservative deterministic judgment: complete only
// with enough volume, enough elapsed time, and at least one symptom.
func (s *AgenticService) ruleFallback(messages []Message, completeness DataCompleteness) CompletionAnalysis {
	elapsed := time.Duration(0)
	if len(messages) > 1 {
		elapsed = messages[len(messages)-1].SentAt.Sub(messages[0].SentAt)
	}

	complete := len(messages) >= fallbackMinMessages &&
		elapsed >= fallbackMinElapsed &&
		completeness.HasSymptoms

	analysis := CompletionAnalysis{
		IsComplete:   complete,
		Confidence:   fallbackLowConf,
		Reasoning:    "rule-based fallback: model judgment unavailable",
		RuleFallback: true,
	}
	if complete {
		analysis.Confidence = fallbackHighConf
		analysis.RecommendedAction = ActionGenerateReport
	} else {
		analysis.RecommendedAction = ActionContinueConversation
		analysis.MissingElements = completeness.MissingFields
	}
	return analysis
}

// ShouldTriggerAutomaticDiagnostic wraps the analyzer with its own rate
// limit and requires the semantic and structural checks to agree before
// committing to report generation.
func (s *AgenticService) ShouldTriggerAutomaticDiagnostic(ctx context.Context, messages []Message, consultCtx ConsultationContext) DiagnosticTrigger {
	now := s.clock()
	if !s.lastTriggerCheck.IsZero() && now.Sub(s.lastTriggerCheck) < s.cooldown {
		return DiagnosticTrigger{Reason: "analyzer cooldown active"}
	}
	s.lastTriggerCheck = now

	analysis := s.AnalyzeConversationCompletion(ctx, messages, consultCtx)

	if !analysis.IsComplete {
		return DiagnosticTrigger{Analysis: analysis, Reason: "conversation not complete"}
	}
	if analysis.RecommendedAction != ActionGenerateReport {
		return DiagnosticTrigger{Analysis: analysis, Reason: "model did not recommend report generation"}
	}
	if analysis.Confidence < triggerConfidenceFloor {
		return DiagnosticTrigger{Analysis: analysis, Reason: "confidence below threshold"}
	}
	if validation := s.detector.ValidateForDiagnosticRequest(); !validation.IsValid {
		return DiagnosticTrigger{Analysis: analysis, Reason: "collected data failed validation"}
	}

	data := s.collector.DiagnosticData()
	return DiagnosticTrigger{
		ShouldTrigger: true,
		Analysis:      analysis,
		Request: DiagnosticRequest{
			ConsultationID:     consultCtx.ConsultationID,
			Symptoms:           data.Symptoms,
			Duration:           data.Duration,
			Severity:           data.Severity,
			AdditionalInfo:     data.AdditionalInfo,
			MedicalHistory:     data.MedicalHistory,
			CurrentMedications: data.CurrentMedications,
			Allergies:          data.Allergies,
		},
		Notification: reportNotification,
	}
}

// Reset clears the collector, the gate, and the analyzer's own timers.
// Used at consultation end or restart.
func (s *AgenticService) Reset() {
	s.collector.Reset()
	s.detector.Reset()
	s.lastTriggerCheck = time.Time{}
}
