package consultation

import (
	"time"

	"github.com/google/uuid"
)

// Consultation lifecycle states.
const (
	StatusActive          = "active"
	StatusReportGenerated = "report_generated"
	StatusClosed          = "closed"
)

// Report generation provenance.
const (
	GenerationAutomatic = "automatic"
	GenerationManual    = "manual"
)

// Consultation is one ongoing patient-provider chat session.
type Consultation struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	ProviderID     uuid.UUID `json:"provider_id"`
	ReasonForVisit string    `json:"reason_for_visit"`
	Specialty      string    `json:"specialty"`
	PatientAge     int       `json:"patient_age"`
	PatientGender  string    `json:"patient_gender"`
	Status         string    `json:"status"`
	Assessment     string    `json:"assessment"`
	MessageCount   int       `json:"message_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Condition is one candidate diagnosis with a coarse likelihood.
type Condition struct {
	Name       string `json:"name"`
	Likelihood string `json:"likelihood"`
}

// Report is a generated diagnostic report. Created once per triggered
// completion; this pipeline never mutates it afterward.
type Report struct {
	ID               uuid.UUID   `json:"id"`
	ConsultationID   uuid.UUID   `json:"consultation_id"`
	PatientID        uuid.UUID   `json:"patient_id"`
	ProviderID       uuid.UUID   `json:"provider_id"`
	Analysis         string      `json:"analysis"`
	Conditions       []Condition `json:"conditions"`
	Recommendations  []string    `json:"recommendations"`
	Urgency          string      `json:"urgency"`
	Confidence       float64     `json:"confidence"`
	RedFlags         []string    `json:"red_flags,omitempty"`
	GenerationMethod string      `json:"generation_method"`
	CreatedAt        time.Time   `json:"created_at"`
}
