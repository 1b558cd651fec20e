package intake

import (
	"fmt"
	"strings"
	"time"
)

// Sender roles on the consultation transcript.
const (
	RolePatient  = "patient"
	RoleProvider = "provider"
)

// Message is one transcript entry as delivered by the chat transport.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

const (
	defaultConversationWindow  = 30 * time.Minute
	defaultQuickReplyThreshold = 7 * time.Minute
)

// ReasonWindowExpired is returned once the 30-minute collection window has
// elapsed; the collector is inert for the rest of the consultation.
const ReasonWindowExpired = "window expired"

// ReasonQuickReply is returned when a reply arrived faster than the
// quick-reply threshold and extraction is deferred pending confirmation.
const ReasonQuickReply = "quick reply requires confirmation"

// DiagnosticData is the structured clinical state mined from one
// consultation's patient messages.
type DiagnosticData struct {
	Symptoms           []string       `json:"symptoms"`
	Duration           DurationBucket `json:"duration"`
	Severity           SeverityBucket `json:"severity"`
	AdditionalInfo     string         `json:"additional_info"`
	MedicalHistory     []string       `json:"medical_history"`
	CurrentMedications []string       `json:"current_medications"`
	Allergies          []string       `json:"allergies"`
}

// TimingState tracks per-consultation conversation timing.
type TimingState struct {
	ConversationStart    time.Time
	LastPatientMessage   time.Time
	ResponseTimes        []time.Duration
	RequiresConfirmation bool
}

// Fragments are the raw extraction results for a single message.
type Fragments struct {
	Symptoms         []string
	Duration         DurationBucket
	Severity         SeverityBucket
	History          []string
	Medications      []string
	Allergies        []string
	ContextSentences []string
}

// ExtractionStrategy mines diagnostic fragments out of one message. The
// default is keyword-table driven; deployments can plug in a real
// clinical NLP backend without touching the collector state machine.
type ExtractionStrategy interface {
	Extract(text string) Fragments
}

// ProcessResult tells the caller how a message was handled.
type ProcessResult struct {
	ShouldConfirm bool   `json:"should_confirm"`
	Reason        string `json:"reason,omitempty"`
}

// Collector accumulates DiagnosticData and TimingState for a single
// consultation. It is not safe for concurrent use; callers serialize
// message processing per consultation id (the session registry does this).
type Collector struct {
	strategy   ExtractionStrategy
	window     time.Duration
	quickReply time.Duration
	clock      func() time.Time

	data         DiagnosticData
	timing       TimingState
	messageCount int
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithExtractionStrategy replaces the default keyword extractor.
func WithExtractionStrategy(s ExtractionStrategy) CollectorOption {
	return func(c *Collector) {
		if s != nil {
			c.strategy = s
		}
	}
}

// WithConversationWindow overrides the staleness cutoff.
func WithConversationWindow(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithQuickReplyThreshold overrides the confirmation latency guard.
func WithQuickReplyThreshold(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.quickReply = d
		}
	}
}

// WithCollectorClock overrides the wall clock, for tests.
func WithCollectorClock(clock func() time.Time) CollectorOption {
	return func(c *Collector) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewCollector creates a collector for one consultation.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		strategy:   KeywordStrategy{},
		window:     defaultConversationWindow,
		quickReply: defaultQuickReplyThreshold,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize resets timing and data state for a new consultation. A zero
// startTime means "now".
func (c *Collector) Initialize(startTime time.Time) {
	if startTime.IsZero() {
		startTime = c.clock()
	}
	c.data = DiagnosticData{}
	c.timing = TimingState{ConversationStart: startTime}
	c.messageCount = 0
}

// Process accepts one transcript message. Non-patient messages are ignored.
// Messages after the conversation window are rejected without touching
// accumulated data. Replies faster than the quick-reply threshold are held
// for confirmation; extraction runs only once ProcessConfirmed is called.
func (c *Collector) Process(content, role string, at time.Time) ProcessResult {
	if role != RolePatient {
		return ProcessResult{}
	}
	if at.IsZero() {
		at = c.clock()
	}
	if c.timing.ConversationStart.IsZero() {
		c.timing.ConversationStart = at
	}

	if at.Sub(c.timing.ConversationStart) > c.window {
		return ProcessResult{Reason: ReasonWindowExpired}
	}

	first := c.timing.LastPatientMessage.IsZero()
	if !first {
		latency := at.Sub(c.timing.LastPatientMessage)
		c.timing.ResponseTimes = append(c.timing.ResponseTimes, latency)
		if latency < c.quickReply {
			c.timing.LastPatientMessage = at
			c.messageCount++
			c.timing.RequiresConfirmation = true
			return ProcessResult{ShouldConfirm: true, Reason: ReasonQuickReply}
		}
	}

	c.timing.LastPatientMessage = at
	c.messageCount++
	c.merge(c.strategy.Extract(content))
	return ProcessResult{}
}

// ProcessConfirmed extracts data from a quick reply the caller has
// explicitly confirmed, and clears the confirmation flag.
func (c *Collector) ProcessConfirmed(content string) {
	c.timing.RequiresConfirmation = false
	c.merge(c.strategy.Extract(content))
}

func (c *Collector) merge(frags Fragments) {
	c.data.Symptoms = append(c.data.Symptoms, frags.Symptoms...)

	// Duration and severity are first-match-wins: once set, later
	// messages never overwrite them.
	if c.data.Duration == DurationUnknown && frags.Duration != DurationUnknown {
		c.data.Duration = frags.Duration
	}
	if c.data.Severity == SeverityUnknown && frags.Severity != SeverityUnknown {
		c.data.Severity = frags.Severity
	}

	c.data.MedicalHistory = appendUnique(c.data.MedicalHistory, frags.History)
	c.data.CurrentMedications = appendUnique(c.data.CurrentMedications, frags.Medications)
	c.data.Allergies = appendUnique(c.data.Allergies, frags.Allergies)

	for _, sentence := range frags.ContextSentences {
		if c.data.AdditionalInfo != "" {
			c.data.AdditionalInfo += " "
		}
		c.data.AdditionalInfo += sentence
	}
}

func appendUnique(dst []string, src []string) []string {
	for _, s := range src {
		found := false
		for _, existing := range dst {
			if existing == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

// Completeness field weights.
const (
	symptomsWeight       = 40
	durationWeight       = 25
	severityWeight       = 25
	additionalInfoWeight = 10
)

// DataCompleteness scores the collected state against weighted criteria.
type DataCompleteness struct {
	Score             int      `json:"score"`
	HasSymptoms       bool     `json:"has_symptoms"`
	HasDuration       bool     `json:"has_duration"`
	HasSeverity       bool     `json:"has_severity"`
	HasAdditionalInfo bool     `json:"has_additional_info"`
	IsComplete        bool     `json:"is_complete"`
	MissingFields     []string `json:"missing_fields,omitempty"`
}

// Completeness recomputes the weighted score over current state. Pure
// with respect to collector state.
func (c *Collector) Completeness() DataCompleteness {
	dc := DataCompleteness{
		HasSymptoms:       len(c.data.Symptoms) > 0,
		HasDuration:       c.data.Duration != DurationUnknown,
		HasSeverity:       c.data.Severity != SeverityUnknown,
		HasAdditionalInfo: c.data.AdditionalInfo != "",
	}
	if dc.HasSymptoms {
		dc.Score += symptomsWeight
	} else {
		dc.MissingFields = append(dc.MissingFields, "symptoms")
	}
	if dc.HasDuration {
		dc.Score += durationWeight
	} else {
		dc.MissingFields = append(dc.MissingFields, "duration")
	}
	if dc.HasSeverity {
		dc.Score += severityWeight
	} else {
		dc.MissingFields = append(dc.MissingFields, "severity")
	}
	if dc.HasAdditionalInfo {
		dc.Score += additionalInfoWeight
	} else {
		dc.MissingFields = append(dc.MissingFields, "additional context")
	}
	dc.IsComplete = dc.HasSymptoms && (dc.HasDuration || dc.HasSeverity)
	return dc
}

// DiagnosticData returns a copy of the accumulated clinical state.
func (c *Collector) DiagnosticData() DiagnosticData {
	out := c.data
	out.Symptoms = append([]string(nil), c.data.Symptoms...)
	out.MedicalHistory = append([]string(nil), c.data.MedicalHistory...)
	out.CurrentMedications = append([]string(nil), c.data.CurrentMedications...)
	out.Allergies = append([]string(nil), c.data.Allergies...)
	return out
}

// Timing returns a copy of the conversation timing state.
func (c *Collector) Timing() TimingState {
	out := c.timing
	out.ResponseTimes = append([]time.Duration(nil), c.timing.ResponseTimes...)
	return out
}

// MessageCount reports how many patient messages have been accepted
// inside the conversation window.
func (c *Collector) MessageCount() int {
	return c.messageCount
}

// RequiresConfirmation reports whether the most recent reply is held
// pending explicit confirmation.
func (c *Collector) RequiresConfirmation() bool {
	return c.timing.RequiresConfirmation
}

// WithinWindow reports whether the conversation is still inside the
// collection window at the given instant.
func (c *Collector) WithinWindow(at time.Time) bool {
	if c.timing.ConversationStart.IsZero() {
		return true
	}
	if at.IsZero() {
		at = c.clock()
	}
	return at.Sub(c.timing.ConversationStart) <= c.window
}

// Summary renders a short human-readable digest of the collected data,
// suitable for user-facing confirmation prompts.
func (c *Collector) Summary() string {
	var sb strings.Builder
	if len(c.data.Symptoms) > 0 {
		sb.WriteString("Symptoms: " + strings.Join(c.data.Symptoms, "; "))
	} else {
		sb.WriteString("Symptoms: none recorded yet")
	}
	if c.data.Duration != DurationUnknown {
		sb.WriteString(fmt.Sprintf("\nDuration: %s", c.data.Duration))
	}
	if c.data.Severity != SeverityUnknown {
		sb.WriteString(fmt.Sprintf("\nSeverity: %s", c.data.Severity))
	}
	if len(c.data.MedicalHistory) > 0 {
		sb.WriteString(fmt.Sprintf("\nHistory: %s", strings.Join(c.data.MedicalHistory, "; ")))
	}
	if len(c.data.CurrentMedications) > 0 {
		sb.WriteString(fmt.Sprintf("\nMedications: %s", strings.Join(c.data.CurrentMedications, "; ")))
	}
	if len(c.data.Allergies) > 0 {
		sb.WriteString(fmt.Sprintf("\nAllergies: %s", strings.Join(c.data.Allergies, "; ")))
	}
	if c.data.AdditionalInfo != "" {
		sb.WriteString(fmt.Sprintf("\nNotes: %s", c.data.AdditionalInfo))
	}
	return sb.String()
}

// Reset clears all state; used when a consultation lifecycle ends or a
// new one starts under a reused collector instance.
func (c *Collector) Reset() {
	c.data = DiagnosticData{}
	c.timing = TimingState{}
	c.messageCount = 0
}
