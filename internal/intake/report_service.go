package intake

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medbridge-ai/intake-pipeline/internal/consultation"
	"github.com/medbridge-ai/intake-pipeline/internal/observability/metrics"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

var reportTracer = otel.Tracer("intake/report-service")

// generationFailureMessage is patient-safe: shown directly in the chat
// when generation fails, with no internal detail.
const generationFailureMessage = "Sorry — there was a problem generating your report. Please try again in a moment."

// ConsultationStore is the consultation persistence collaborator.
type ConsultationStore interface {
	Get(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error)
	UpdateStatusAndAssessment(ctx context.Context, id uuid.UUID, status, assessment string) error
}

// ReportStore persists generated reports.
type ReportStore interface {
	Save(ctx context.Context, r *consultation.Report) (uuid.UUID, error)
}

// GeneratedAnalysis is the diagnostic-generation collaborator's output.
type GeneratedAnalysis struct {
	Analysis        string                   `json:"analysis"`
	Conditions      []consultation.Condition `json:"conditions"`
	Recommendations []string                 `json:"recommendations"`
	Urgency         string                   `json:"urgency"`
	Confidence      float64                  `json:"confidence"`
	RedFlags        []string                 `json:"redFlags"`
}

// ReportGenerator produces a diagnostic analysis from enriched intake
// data. The default implementation calls the LLM collaborator.
type ReportGenerator interface {
	Generate(ctx context.Context, req DiagnosticRequest) (GeneratedAnalysis, error)
}

// LLMReportGenerator asks the language model for the full structured
// report and recovers the JSON object from its reply, fenced or not.
type LLMReportGenerator struct {
	llm   LLMClient
	model string
}

func NewLLMReportGenerator(llm LLMClient, model string) *LLMReportGenerator {
	if llm == nil {
		panic("intake: llm client cannot be nil")
	}
	return &LLMReportGenerator{llm: llm, model: model}
}

func (g *LLMReportGenerator) Generate(ctx context.Context, req DiagnosticRequest) (GeneratedAnalysis, error) {
	resp, err := g.llm.Complete(ctx, LLMRequest{
		Model:       g.model,
		System:      []string{reportGenerationInstructions},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: buildReportPrompt(req)}},
		MaxTokens:   1500,
		Temperature: 0.3,
	})
	if err != nil {
		return GeneratedAnalysis{}, fmt.Errorf("intake: report generation call failed: %w", err)
	}

	var analysis GeneratedAnalysis
	if err := decodeJSONObject(resp.Text, &analysis); err != nil {
		return GeneratedAnalysis{}, fmt.Errorf("intake: report generation response unparsable: %w", err)
	}
	if strings.TrimSpace(analysis.Analysis) == "" {
		return GeneratedAnalysis{}, fmt.Errorf("intake: report generation returned empty analysis")
	}
	return analysis, nil
}

// ReportContext identifies the consultation being evaluated plus its
// visible transcript.
type ReportContext struct {
	ConsultationID uuid.UUID
	Messages       []Message
}

// AutomaticDiagnosticResult is the structured outcome of one trigger
// attempt. Failures carry a patient-safe message, never an exception.
type AutomaticDiagnosticResult struct {
	Success        bool          `json:"success"`
	Reason         string        `json:"reason,omitempty"`
	ReportID       uuid.UUID     `json:"report_id,omitempty"`
	Notification   string        `json:"notification,omitempty"`
	PatientMessage string        `json:"patient_message,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// ReportService is the trigger orchestrator: it holds the generation
// lock for the duration of a report build, enriches the collected data
// with conversation and provider-insight summaries, and persists the
// result. At most one generation runs per consultation id.
type ReportService struct {
	locks         GenerationLocks
	generator     ReportGenerator
	consultations ConsultationStore
	reports       ReportStore
	logger        *logging.Logger
	metrics       *metrics.PipelineMetrics
}

// ReportServiceOption configures a ReportService.
type ReportServiceOption func(*ReportService)

// WithReportMetrics attaches Prometheus metrics.
func WithReportMetrics(m *metrics.PipelineMetrics) ReportServiceOption {
	return func(s *ReportService) {
		s.metrics = m
	}
}

func NewReportService(locks GenerationLocks, generator ReportGenerator, consultations ConsultationStore, reports ReportStore, logger *logging.Logger, opts ...ReportServiceOption) *ReportService {
	if locks == nil {
		panic("intake: generation locks cannot be nil")
	}
	if generator == nil {
		panic("intake: report generator cannot be nil")
	}
	if consultations == nil {
		panic("intake: consultation store cannot be nil")
	}
	if reports == nil {
		panic("intake: report store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &ReportService{
		locks:         locks,
		generator:     generator,
		consultations: consultations,
		reports:       reports,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckAndTriggerAutomaticReport runs the full trigger path for one
// consultation using that consultation's agentic state. Duplicate
// concurrent attempts fail fast with "already in progress"; the lock is
// released on every exit path so a failed generation never blocks later
// attempts.
func (s *ReportService) CheckAndTriggerAutomaticReport(ctx context.Context, agentic *AgenticService, reportCtx ReportContext) AutomaticDiagnosticResult {
	start := time.Now()
	consultationID := reportCtx.ConsultationID.String()

	ctx, span := reportTracer.Start(ctx, "intake.check_and_trigger_report")
	defer span.End()
	span.SetAttributes(attribute.String("consultation_id", consultationID))

	acquired, err := s.locks.TryAcquire(ctx, consultationID)
	if err != nil {
		s.logger.Error("generation lock check failed", "error", err, "consultation_id", consultationID)
		return AutomaticDiagnosticResult{
			Reason:         "lock unavailable",
			PatientMessage: generationFailureMessage,
			ProcessingTime: time.Since(start),
		}
	}
	if !acquired {
		s.metrics.ObserveLockContention()
		return AutomaticDiagnosticResult{
			Reason:         "report generation already in progress",
			ProcessingTime: time.Since(start),
		}
	}
	defer func() {
		if err := s.locks.Release(ctx, consultationID); err != nil {
			s.logger.Error("failed to release generation lock", "error", err, "consultation_id", consultationID)
		}
	}()

	record, err := s.consultations.Get(ctx, reportCtx.ConsultationID)
	if err != nil {
		s.logger.Error("consultation lookup failed", "error", err, "consultation_id", consultationID)
		return AutomaticDiagnosticResult{
			Reason:         "consultation unavailable",
			PatientMessage: generationFailureMessage,
			ProcessingTime: time.Since(start),
		}
	}

	trigger := agentic.ShouldTriggerAutomaticDiagnostic(ctx, reportCtx.Messages, ConsultationContext{
		ConsultationID: consultationID,
		ReasonForVisit: record.ReasonForVisit,
		Specialty:      record.Specialty,
		PatientAge:     record.PatientAge,
		PatientGender:  record.PatientGender,
	})
	if !trigger.ShouldTrigger {
		return AutomaticDiagnosticResult{
			Reason:         trigger.Reason,
			ProcessingTime: time.Since(start),
		}
	}

	req := trigger.Request
	req.ConversationSummary = summarizeConversation(reportCtx.Messages)
	req.ProviderInsights = summarizeProviderInsights(reportCtx.Messages)

	generated, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.logger.Error("diagnostic report generation failed", "error", err, "consultation_id", consultationID)
		s.metrics.ObserveReport("failed", time.Since(start).Seconds())
		return AutomaticDiagnosticResult{
			Reason:         "generation failed",
			PatientMessage: generationFailureMessage,
			ProcessingTime: time.Since(start),
		}
	}

	report := &consultation.Report{
		ConsultationID:   record.ID,
		PatientID:        record.PatientID,
		ProviderID:       record.ProviderID,
		Analysis:         generated.Analysis,
		Conditions:       generated.Conditions,
		Recommendations:  generated.Recommendations,
		Urgency:          generated.Urgency,
		Confidence:       generated.Confidence,
		RedFlags:         generated.RedFlags,
		GenerationMethod: consultation.GenerationAutomatic,
	}
	reportID, err := s.reports.Save(ctx, report)
	if err != nil {
		s.logger.Error("failed to persist generated report", "error", err, "consultation_id", consultationID)
		s.metrics.ObserveReport("failed", time.Since(start).Seconds())
		return AutomaticDiagnosticResult{
			Reason:         "persistence failed",
			PatientMessage: generationFailureMessage,
			ProcessingTime: time.Since(start),
		}
	}

	if err := s.consultations.UpdateStatusAndAssessment(ctx, record.ID, consultation.StatusReportGenerated, generated.Analysis); err != nil {
		// Report is saved; the stale status is recoverable, so log and
		// still report success.
		s.logger.Error("failed to update consultation after report", "error", err, "consultation_id", consultationID)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveReport("success", elapsed.Seconds())
	span.SetAttributes(attribute.String("report_id", reportID.String()))
	s.logger.Info("automatic diagnostic report generated",
		"consultation_id", consultationID,
		"report_id", reportID,
		"urgency", generated.Urgency,
		"processing_ms", elapsed.Milliseconds(),
	)

	return AutomaticDiagnosticResult{
		Success:        true,
		ReportID:       reportID,
		Notification:   trigger.Notification,
		ProcessingTime: elapsed,
	}
}

// ---------- enrichment summaries ----------

var (
	painMentionRE     = regexp.MustCompile(`(?i)\b(pain|ache|aching|hurt|hurts|hurting|burning|throbbing)\b`)
	durationNumberRE  = regexp.MustCompile(`(?i)\b\d+\s*(hour|hours|day|days|week|weeks|month|months|year|years)\b`)
	severityMentionRE = regexp.MustCompile(`(?i)\b(mild|moderate|severe|extreme|unbearable|terrible|worst|\d+\s*(?:/|out of)\s*10)\b`)
	insightMentionRE  = regexp.MustCompile(`(?i)\b(assess|assessment|recommend|recommendation|suggest|advise|follow[\s-]?up|plan|monitor|prescri)\w*\b`)
)

const maxSummarySentences = 6

// summarizeConversation pulls the patient sentences that mention pain,
// numeric durations, or severity words into a short digest.
func summarizeConversation(messages []Message) string {
	var picked []string
	for _, msg := range messages {
		if msg.Role != RolePatient {
			continue
		}
		for _, sentence := range splitSentences(msg.Content) {
			if painMentionRE.MatchString(sentence) ||
				durationNumberRE.MatchString(sentence) ||
				severityMentionRE.MatchString(sentence) {
				picked = append(picked, sentence)
				if len(picked) >= maxSummarySentences {
					return strings.Join(picked, ". ")
				}
			}
		}
	}
	return strings.Join(picked, ". ")
}

// summarizeProviderInsights pulls the provider sentences carrying
// assessment, recommendation, or follow-up language.
func summarizeProviderInsights(messages []Message) string {
	var picked []string
	for _, msg := range messages {
		if msg.Role != RoleProvider {
			continue
		}
		for _, sentence := range splitSentences(msg.Content) {
			if insightMentionRE.MatchString(sentence) {
				picked = append(picked, sentence)
				if len(picked) >= maxSummarySentences {
					return strings.Join(picked, ". ")
				}
			}
		}
	}
	return strings.Join(picked, ". ")
}
