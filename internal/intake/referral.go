package intake

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/medbridge-ai/intake-pipeline/internal/directory"
	"github.com/medbridge-ai/intake-pipeline/internal/observability/metrics"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

// Referral marker format, version 1. The provider prompt instructs the
// model to emit this token verbatim; detection is exact-pattern matching
// on it, so the prompt and this regexp must change together.
//
//	[REFERRAL_SUGGESTED: Cardiology]
var referralMarkerRE = regexp.MustCompile(`\[REFERRAL_SUGGESTED:\s*([^\]]+)\]`)

// SpecialtyPsychiatry is the specialty forced by mental-health keyword
// hits.
const SpecialtyPsychiatry = "Psychiatry"

// Referral sources.
const (
	ReferralSourceMarker  = "marker"
	ReferralSourceKeyword = "keyword"
)

// ReferralSuggestion is metadata attached to the stored provider message,
// not a standalone entity.
type ReferralSuggestion struct {
	Specialty      string    `json:"specialty"`
	Source         string    `json:"source"`
	SpecialistID   uuid.UUID `json:"specialist_id,omitempty"`
	SpecialistName string    `json:"specialist_name,omitempty"`
}

// SpecialistDirectory resolves a candidate specialist for a specialty.
type SpecialistDirectory interface {
	FindAvailable(ctx context.Context, specialty string) (*directory.Specialist, error)
}

// ReferralDetector scans provider replies and patient messages for
// referral signals and resolves a candidate specialist.
type ReferralDetector struct {
	directory SpecialistDirectory
	logger    *logging.Logger
	metrics   *metrics.PipelineMetrics
}

// ReferralOption configures a ReferralDetector.
type ReferralOption func(*ReferralDetector)

// WithReferralMetrics attaches Prometheus metrics.
func WithReferralMetrics(m *metrics.PipelineMetrics) ReferralOption {
	return func(d *ReferralDetector) {
		d.metrics = m
	}
}

func NewReferralDetector(dir SpecialistDirectory, logger *logging.Logger, opts ...ReferralOption) *ReferralDetector {
	if dir == nil {
		panic("intake: specialist directory cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	d := &ReferralDetector{directory: dir, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect inspects one provider reply plus the triggering patient message.
// An explicit marker in the reply names the target specialty; a
// mental-health keyword hit in either message forces a psychiatry
// suggestion unless the current provider already is one. Returns nil when
// no referral signal is present or no specialist is available.
func (d *ReferralDetector) Detect(ctx context.Context, providerReply, patientMessage, currentSpecialty string) (*ReferralSuggestion, error) {
	specialty, source := referralTarget(providerReply, patientMessage, currentSpecialty)
	if specialty == "" {
		return nil, nil
	}

	specialist, err := d.directory.FindAvailable(ctx, specialty)
	if err != nil {
		return nil, err
	}
	if specialist == nil {
		d.logger.Info("referral detected but no specialist available", "specialty", specialty, "source", source)
		return nil, nil
	}

	d.metrics.ObserveReferral(source)
	d.logger.Info("referral suggestion resolved",
		"specialty", specialty,
		"source", source,
		"specialist_id", specialist.ID,
	)
	return &ReferralSuggestion{
		Specialty:      specialty,
		Source:         source,
		SpecialistID:   specialist.ID,
		SpecialistName: specialist.Name,
	}, nil
}

// referralTarget picks the specialty to refer to, preferring the
// explicit marker over the keyword scan.
func referralTarget(providerReply, patientMessage, currentSpecialty string) (specialty, source string) {
	if m := referralMarkerRE.FindStringSubmatch(providerReply); len(m) == 2 {
		if s := strings.TrimSpace(m[1]); s != "" {
			return s, ReferralSourceMarker
		}
	}

	if strings.EqualFold(currentSpecialty, SpecialtyPsychiatry) {
		return "", ""
	}
	combined := strings.ToLower(providerReply + " " + patientMessage)
	if containsAny(combined, mentalHealthKeywords) {
		return SpecialtyPsychiatry, ReferralSourceKeyword
	}
	return "", ""
}
