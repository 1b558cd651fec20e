package intake

import (
	"strings"
	"time"
)

// TriggerAction tells the caller what the pipeline should do next.
type TriggerAction string

const (
	ActionConfirmGeneration TriggerAction = "confirm_generation"
	ActionCollectMore       TriggerAction = "collect_more"
)

const (
	defaultGateCooldown   = 30 * time.Second
	defaultMinNewMessages = 3

	triggerHighConfidence = 0.8
	triggerMinConfidence  = 0.6
	almostCompleteScore   = 70
)

// DiagnosticTriggerResult is the outcome of one gate check.
type DiagnosticTriggerResult struct {
	ShouldTrigger     bool             `json:"should_trigger"`
	Confidence        float64          `json:"confidence"`
	Completeness      DataCompleteness `json:"completeness"`
	RecommendedAction TriggerAction    `json:"recommended_action"`
	Reason            string           `json:"reason,omitempty"`
}

// ValidationResult is the final structural sanity gate before handing
// collected data downstream.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// CompletenessDetector wraps a Collector and decides when a re-evaluation
// of diagnostic readiness is due, rate-limiting both by time and by new
// message volume so a tightly-polled pipeline doesn't burn checks.
type CompletenessDetector struct {
	collector      *Collector
	cooldown       time.Duration
	minNewMessages int
	clock          func() time.Time

	lastCheck        time.Time
	lastMessageCount int
}

// DetectorOption configures a CompletenessDetector.
type DetectorOption func(*CompletenessDetector)

// WithGateCooldown overrides the 30-second check cooldown.
func WithGateCooldown(d time.Duration) DetectorOption {
	return func(det *CompletenessDetector) {
		if d > 0 {
			det.cooldown = d
		}
	}
}

// WithMinNewMessages overrides the minimum new messages between checks.
func WithMinNewMessages(n int) DetectorOption {
	return func(det *CompletenessDetector) {
		if n > 0 {
			det.minNewMessages = n
		}
	}
}

// WithDetectorClock overrides the wall clock, for tests.
func WithDetectorClock(clock func() time.Time) DetectorOption {
	return func(det *CompletenessDetector) {
		if clock != nil {
			det.clock = clock
		}
	}
}

// NewCompletenessDetector creates a detector over the given collector.
func NewCompletenessDetector(collector *Collector, opts ...DetectorOption) *CompletenessDetector {
	if collector == nil {
		panic("intake: collector cannot be nil")
	}
	det := &CompletenessDetector{
		collector:      collector,
		cooldown:       defaultGateCooldown,
		minNewMessages: defaultMinNewMessages,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(det)
	}
	return det
}

// ShouldTriggerDiagnostic runs one gate check. Checks inside the cooldown
// or without enough new messages return a negative result immediately and
// do not consume the cooldown.
func (det *CompletenessDetector) ShouldTriggerDiagnostic() DiagnosticTriggerResult {
	now := det.clock()

	if !det.lastCheck.IsZero() && now.Sub(det.lastCheck) < det.cooldown {
		return DiagnosticTriggerResult{
			RecommendedAction: ActionCollectMore,
			Reason:            "cooldown active",
		}
	}
	newMessages := det.collector.MessageCount() - det.lastMessageCount
	if newMessages < det.minNewMessages {
		return DiagnosticTriggerResult{
			RecommendedAction: ActionCollectMore,
			Reason:            "not enough new messages",
		}
	}

	det.lastCheck = now
	det.lastMessageCount = det.collector.MessageCount()

	completeness := det.collector.Completeness()
	data := det.collector.DiagnosticData()
	confidence := det.confidence(completeness, data)

	hasMinimum := completeness.HasSymptoms && (completeness.HasDuration || completeness.HasSeverity)
	highQuality := averageSymptomLength(data.Symptoms) > 15 || len(data.AdditionalInfo) > 50

	result := DiagnosticTriggerResult{
		Confidence:   confidence,
		Completeness: completeness,
	}
	switch {
	case hasMinimum && highQuality && confidence >= triggerHighConfidence:
		result.ShouldTrigger = true
		result.RecommendedAction = ActionConfirmGeneration
		result.Reason = "rich data with high confidence"
	case hasMinimum && confidence >= triggerMinConfidence:
		result.ShouldTrigger = true
		result.RecommendedAction = ActionConfirmGeneration
		result.Reason = "minimum data with sufficient confidence"
	case completeness.Score >= almostCompleteScore:
		result.RecommendedAction = ActionConfirmGeneration
		result.Reason = "almost complete"
	default:
		result.RecommendedAction = ActionCollectMore
		result.Reason = "insufficient data"
	}
	return result
}

// confidence blends the completeness score with textual-richness bonuses.
func (det *CompletenessDetector) confidence(completeness DataCompleteness, data DiagnosticData) float64 {
	confidence := 0.6 * float64(completeness.Score) / 100

	avgLen := averageSymptomLength(data.Symptoms)
	if avgLen > 15 {
		confidence += 0.2
	}
	if avgLen > 30 {
		confidence += 0.1
	}
	if len(data.AdditionalInfo) > 50 {
		confidence += 0.1
	}
	if completeness.HasDuration {
		confidence += 0.05
	}
	if completeness.HasSeverity {
		confidence += 0.05
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func averageSymptomLength(symptoms []string) float64 {
	if len(symptoms) == 0 {
		return 0
	}
	total := 0
	for _, s := range symptoms {
		total += len(s)
	}
	return float64(total) / float64(len(symptoms))
}

// ValidateForDiagnosticRequest is the final sanity gate before collected
// data is handed to the report generator.
func (det *CompletenessDetector) ValidateForDiagnosticRequest() ValidationResult {
	data := det.collector.DiagnosticData()

	var errs []string
	if len(data.Symptoms) == 0 {
		errs = append(errs, "no symptoms collected")
	}
	total := 0
	for _, s := range data.Symptoms {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, "blank symptom entry")
			break
		}
	}
	for _, s := range data.Symptoms {
		total += len(s)
	}
	if len(data.Symptoms) > 0 && total < 10 {
		errs = append(errs, "symptom descriptions too short")
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// CollectionGuidance renders the specific missing-field prompt to surface
// to the patient when more data is needed.
func (det *CompletenessDetector) CollectionGuidance(result DiagnosticTriggerResult) string {
	c := result.Completeness
	switch {
	case !c.HasSymptoms:
		return "Could you describe the symptoms you're experiencing?"
	case !c.HasDuration && !c.HasSeverity:
		return "How long has this been going on, and how severe would you say it is?"
	case !c.HasDuration:
		return "How long has this been going on?"
	case !c.HasSeverity:
		return "How severe would you say it is, say on a scale from mild to unbearable?"
	case !c.HasAdditionalInfo:
		return "Is there anything else about your situation I should know, like what makes it better or worse?"
	default:
		return "Thanks, I have what I need for now."
	}
}

// Reset clears the detector's rate-limit timers.
func (det *CompletenessDetector) Reset() {
	det.lastCheck = time.Time{}
	det.lastMessageCount = 0
}
