package intake

import "strings"

// KeywordStrategy is the default ExtractionStrategy: best-effort keyword
// and phrase mining over the tables in keywords.go. It is heuristic text
// matching, not clinical NLP.
type KeywordStrategy struct{}

var _ ExtractionStrategy = KeywordStrategy{}

// symptomContextWords is how many words of surrounding context are
// captured on each side of a matched symptom keyword.
const symptomContextWords = 2

// Extract mines one message for diagnostic fragments.
func (KeywordStrategy) Extract(text string) Fragments {
	text = strings.TrimSpace(text)
	if text == "" {
		return Fragments{}
	}
	lower := strings.ToLower(text)

	var frags Fragments
	frags.Symptoms = extractSymptomPhrases(lower)
	frags.Duration = matchDuration(lower)
	frags.Severity = matchSeverity(lower)

	for _, sentence := range splitSentences(text) {
		sentenceLower := strings.ToLower(sentence)
		if containsAny(sentenceLower, historyMarkers) {
			frags.History = append(frags.History, sentence)
		}
		if containsAny(sentenceLower, medicationMarkers) {
			frags.Medications = append(frags.Medications, sentence)
		}
		if containsAny(sentenceLower, allergyMarkers) {
			frags.Allergies = append(frags.Allergies, sentence)
		}
		if containsAny(sentenceLower, medicalContextKeywords) {
			frags.ContextSentences = append(frags.ContextSentences, sentence)
		}
	}
	return frags
}

// extractSymptomPhrases scans for symptom keywords and captures each hit
// with a window of surrounding words for context.
func extractSymptomPhrases(lower string) []string {
	words := strings.Fields(lower)
	cleaned := make([]string, len(words))
	for i, w := range words {
		cleaned[i] = strings.Trim(w, ".,!?;:\"'()")
	}

	var phrases []string
	matched := make([]bool, len(words))
	for _, keyword := range symptomKeywords {
		kwWords := strings.Fields(keyword)
		for i := 0; i+len(kwWords) <= len(cleaned); i++ {
			if matched[i] {
				continue
			}
			hit := true
			for j, kw := range kwWords {
				if cleaned[i+j] != kw {
					hit = false
					break
				}
			}
			if !hit {
				continue
			}

			start := i - symptomContextWords
			if start < 0 {
				start = 0
			}
			end := i + len(kwWords) + symptomContextWords
			if end > len(cleaned) {
				end = len(cleaned)
			}
			phrases = append(phrases, strings.Join(cleaned[start:end], " "))
			for j := i; j < i+len(kwWords); j++ {
				matched[j] = true
			}
		}
	}
	return phrases
}

func matchDuration(lower string) DurationBucket {
	for _, bucket := range durationBuckets {
		if containsAny(lower, bucket.patterns) {
			return bucket.bucket
		}
	}
	return DurationUnknown
}

func matchSeverity(lower string) SeverityBucket {
	for _, bucket := range severityBuckets {
		if containsAny(lower, bucket.patterns) {
			return bucket.bucket
		}
	}
	return SeverityUnknown
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder
	flush := func() {
		s := strings.TrimSpace(sb.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		sb.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?', ';', '\n':
			flush()
		default:
			sb.WriteRune(r)
		}
	}
	flush()
	return sentences
}
