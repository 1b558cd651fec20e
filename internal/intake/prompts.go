package intake

import (
	"fmt"
	"strings"
)

// completionAnalysisInstructions asks the model to judge whether the
// consultation has reached a natural, information-complete conclusion.
// The JSON field names are a contract: the strict parser in analyzer.go
// depends on them.
const completionAnalysisInstructions = `You are reviewing a medical intake conversation between a patient and a provider. Decide whether the consultation has reached a natural conclusion AND whether enough clinical information has been collected to produce a diagnostic report.

A consultation is complete when the patient has described their symptoms, how long they have lasted, and how severe they are, and the conversation shows signs of wrapping up (summaries, thanks, no open questions). A [CONSULTATION_COMPLETE] marker in a provider message is one completion indicator among others, not a verdict on its own.

Respond with JSON only, exactly this shape:
{"isComplete": <bool>, "confidence": <0.0-1.0>, "reasoning": "<short explanation>", "completionIndicators": ["..."], "missingElements": ["..."], "recommendedAction": "continue_conversation" | "generate_report" | "ask_clarifying_questions"}`

// buildCompletionPrompt renders the analysis prompt: consultation
// context, the last messages verbatim, and the completeness breakdown.
func buildCompletionPrompt(consultCtx ConsultationContext, messages []Message, completeness DataCompleteness, data DiagnosticData) string {
	var sb strings.Builder

	sb.WriteString("CONSULTATION CONTEXT\n")
	if consultCtx.ReasonForVisit != "" {
		fmt.Fprintf(&sb, "Reason for visit: %s\n", consultCtx.ReasonForVisit)
	}
	if consultCtx.Specialty != "" {
		fmt.Fprintf(&sb, "Specialty: %s\n", consultCtx.Specialty)
	}
	if consultCtx.PatientAge > 0 {
		fmt.Fprintf(&sb, "Patient age: %d\n", consultCtx.PatientAge)
	}
	if consultCtx.PatientGender != "" {
		fmt.Fprintf(&sb, "Patient gender: %s\n", consultCtx.PatientGender)
	}

	sb.WriteString("\nRECENT MESSAGES\n")
	recent := messages
	if len(recent) > promptMessageWindow {
		recent = recent[len(recent)-promptMessageWindow:]
	}
	for _, msg := range recent {
		fmt.Fprintf(&sb, "[%s] %s\n", msg.Role, msg.Content)
	}

	sb.WriteString("\nCOLLECTED DATA\n")
	fmt.Fprintf(&sb, "Completeness score: %d/100\n", completeness.Score)
	fmt.Fprintf(&sb, "Symptoms (%d): %s\n", len(data.Symptoms), strings.Join(data.Symptoms, "; "))
	fmt.Fprintf(&sb, "Duration: %s\n", orUnknown(string(data.Duration)))
	fmt.Fprintf(&sb, "Severity: %s\n", orUnknown(string(data.Severity)))
	if len(completeness.MissingFields) > 0 {
		fmt.Fprintf(&sb, "Missing: %s\n", strings.Join(completeness.MissingFields, ", "))
	}

	return sb.String()
}

// promptMessageWindow caps how many transcript messages go into the
// analysis prompt.
const promptMessageWindow = 10

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// reportGenerationInstructions asks the model for a full structured
// diagnostic report. Field names are a parser contract, same as above.
const reportGenerationInstructions = `You are a clinical decision-support assistant. Based on the structured intake data below, produce a diagnostic analysis. You are assisting a licensed provider; do not address the patient directly.

Respond with JSON only, exactly this shape:
{"analysis": "<narrative assessment>", "conditions": [{"name": "...", "likelihood": "high" | "moderate" | "low"}], "recommendations": ["..."], "urgency": "routine" | "soon" | "urgent" | "emergency", "confidence": <0.0-1.0>, "redFlags": ["..."]}`

// buildReportPrompt renders the diagnostic-generation prompt from the
// enriched request payload.
func buildReportPrompt(req DiagnosticRequest) string {
	var sb strings.Builder

	sb.WriteString("INTAKE DATA\n")
	fmt.Fprintf(&sb, "Symptoms: %s\n", strings.Join(req.Symptoms, "; "))
	fmt.Fprintf(&sb, "Duration: %s\n", orUnknown(string(req.Duration)))
	fmt.Fprintf(&sb, "Severity: %s\n", orUnknown(string(req.Severity)))
	if req.AdditionalInfo != "" {
		fmt.Fprintf(&sb, "Additional context: %s\n", req.AdditionalInfo)
	}
	if len(req.MedicalHistory) > 0 {
		fmt.Fprintf(&sb, "Medical history: %s\n", strings.Join(req.MedicalHistory, "; "))
	}
	if len(req.CurrentMedications) > 0 {
		fmt.Fprintf(&sb, "Current medications: %s\n", strings.Join(req.CurrentMedications, "; "))
	}
	if len(req.Allergies) > 0 {
		fmt.Fprintf(&sb, "Allergies: %s\n", strings.Join(req.Allergies, "; "))
	}
	if req.ConversationSummary != "" {
		fmt.Fprintf(&sb, "\nCONVERSATION SUMMARY\n%s\n", req.ConversationSummary)
	}
	if req.ProviderInsights != "" {
		fmt.Fprintf(&sb, "\nPROVIDER INSIGHTS\n%s\n", req.ProviderInsights)
	}

	return sb.String()
}
