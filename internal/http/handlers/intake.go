package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medbridge-ai/intake-pipeline/internal/intake"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

// IntakeHandler exposes the pipeline over the chat-transport webhook
// surface.
type IntakeHandler struct {
	registry      *intake.SessionRegistry
	referrals     *intake.ReferralDetector
	consultations intake.ConsultationStore
	logger        *logging.Logger
}

// IntakeConfig wires the intake handler.
type IntakeConfig struct {
	Registry      *intake.SessionRegistry
	Referrals     *intake.ReferralDetector
	Consultations intake.ConsultationStore
	Logger        *logging.Logger
}

func NewIntakeHandler(cfg IntakeConfig) *IntakeHandler {
	if cfg.Registry == nil {
		panic("handlers: session registry cannot be nil")
	}
	if cfg.Consultations == nil {
		panic("handlers: consultation store cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &IntakeHandler{
		registry:      cfg.Registry,
		referrals:     cfg.Referrals,
		consultations: cfg.Consultations,
		logger:        cfg.Logger,
	}
}

type messageRequest struct {
	ConsultationID string    `json:"consultation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

type messageResponse struct {
	ShouldConfirm   bool                       `json:"should_confirm"`
	Reason          string                     `json:"reason,omitempty"`
	Guidance        string                     `json:"guidance,omitempty"`
	ReportTriggered bool                       `json:"report_triggered"`
	ReportID        string                     `json:"report_id,omitempty"`
	Notification    string                     `json:"notification,omitempty"`
	PatientMessage  string                     `json:"patient_message,omitempty"`
	Referral        *intake.ReferralSuggestion `json:"referral,omitempty"`
}

// HandleMessage ingests one transcript message and responds with the
// pipeline's observable outcome.
func (h *IntakeHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id, err := uuid.Parse(req.ConsultationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid consultation_id")
		return
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != intake.RolePatient && role != intake.RoleProvider {
		writeError(w, http.StatusBadRequest, "role must be patient or provider")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content cannot be empty")
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	session := h.registry.Acquire(id)
	outcome := session.HandleMessage(r.Context(), intake.Message{
		Role:    role,
		Content: req.Content,
		SentAt:  req.Timestamp,
	})

	resp := messageResponse{
		ShouldConfirm: outcome.Process.ShouldConfirm,
		Reason:        outcome.Process.Reason,
		Guidance:      outcome.Guidance,
	}
	if outcome.Report != nil {
		resp.ReportTriggered = outcome.Report.Success
		resp.Notification = outcome.Report.Notification
		resp.PatientMessage = outcome.Report.PatientMessage
		if outcome.Report.Success {
			resp.ReportID = outcome.Report.ReportID.String()
		} else if resp.Reason == "" {
			resp.Reason = outcome.Report.Reason
		}
	}

	if role == intake.RoleProvider && h.referrals != nil {
		record, err := h.consultations.Get(r.Context(), id)
		if err != nil {
			h.logger.Warn("consultation lookup for referral scan failed", "error", err, "consultation_id", id)
		} else {
			suggestion, err := h.referrals.Detect(r.Context(), req.Content, session.LastPatientContent(), record.Specialty)
			if err != nil {
				h.logger.Warn("referral detection failed", "error", err, "consultation_id", id)
			} else {
				resp.Referral = suggestion
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type confirmRequest struct {
	ConsultationID string `json:"consultation_id"`
	Content        string `json:"content"`
}

type confirmResponse struct {
	Summary string `json:"summary"`
}

// HandleConfirm accepts a previously held quick reply.
func (h *IntakeHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id, err := uuid.Parse(req.ConsultationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid consultation_id")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content cannot be empty")
		return
	}

	summary := h.registry.Acquire(id).Confirm(req.Content)
	writeJSON(w, http.StatusOK, confirmResponse{Summary: summary})
}

// HandleReset ends a consultation's pipeline lifecycle.
func (h *IntakeHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "consultationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid consultation id")
		return
	}

	h.registry.Acquire(id).Reset()
	h.registry.Remove(id)
	h.logger.Info("consultation pipeline reset", "consultation_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck reports liveness plus the live session count.
func (h *IntakeHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.registry.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
