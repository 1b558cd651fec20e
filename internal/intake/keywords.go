package intake

// Keyword tables driving the heuristic extractor. These are data, not
// logic: the default ExtractionStrategy walks them, and deployments can
// swap the strategy without touching the collector state machine.

// ---------- duration buckets ----------

// DurationBucket is a coarse how-long-has-this-been-going-on category.
type DurationBucket string

const (
	DurationUnknown       DurationBucket = ""
	DurationLessThanDay   DurationBucket = "less-than-day"
	DurationOneToThreeDay DurationBucket = "1-3-days"
	DurationOneWeek       DurationBucket = "1-week"
	DurationOneMonth      DurationBucket = "1-month"
	DurationOverMonth     DurationBucket = "more-than-month"
)

// durationBuckets is ordered by specificity — longer-horizon phrases are
// checked before generic ones so "more than a month" never lands in the
// month bucket. First matching bucket wins and is immutable afterwards.
var durationBuckets = []struct {
	bucket   DurationBucket
	patterns []string
}{
	{DurationOverMonth, []string{
		"more than a month", "over a month", "several months", "few months",
		"couple of months", "couple months", "months now", "for months",
		"many months", "half a year", "over a year", "more than a year",
		"a year", "years", "chronic",
	}},
	{DurationOneMonth, []string{
		"a month", "one month", "about a month", "month now", "past month",
		"last month", "4 weeks", "four weeks", "3 weeks", "three weeks",
		"few weeks", "couple of weeks", "couple weeks", "two weeks", "2 weeks",
	}},
	{DurationOneWeek, []string{
		"a week", "one week", "about a week", "week now", "past week",
		"last week", "7 days", "seven days", "5 days", "five days",
		"6 days", "six days", "4 days", "four days",
	}},
	{DurationOneToThreeDay, []string{
		"3 days", "three days", "2 days", "two days", "couple of days",
		"couple days", "few days", "yesterday", "day before yesterday",
		"since yesterday", "a day or two",
	}},
	{DurationLessThanDay, []string{
		"today", "this morning", "this afternoon", "this evening", "tonight",
		"just started", "an hour", "few hours", "couple of hours",
		"couple hours", "since last night", "last night", "overnight",
	}},
}

// ---------- severity buckets ----------

// SeverityBucket is a coarse how-bad-is-it category.
type SeverityBucket string

const (
	SeverityUnknown  SeverityBucket = ""
	SeverityMild     SeverityBucket = "mild"
	SeverityModerate SeverityBucket = "moderate"
	SeveritySevere   SeverityBucket = "severe"
	SeverityExtreme  SeverityBucket = "extreme"
)

// severityBuckets is ordered worst-first so "unbearable, really severe"
// resolves to extreme. First matching bucket wins.
var severityBuckets = []struct {
	bucket   SeverityBucket
	patterns []string
}{
	{SeverityExtreme, []string{
		"unbearable", "excruciating", "worst pain", "worst i've ever",
		"can't move", "cannot move", "can't function", "cant function",
		"10 out of 10", "10/10", "extreme",
	}},
	{SeveritySevere, []string{
		"severe", "really bad", "very bad", "terribly", "terrible",
		"intense", "awful", "can't sleep", "cant sleep", "keeps me up",
		"8 out of 10", "9 out of 10", "8/10", "9/10", "sharp pain",
	}},
	{SeverityModerate, []string{
		"moderate", "pretty bad", "quite bad", "uncomfortable",
		"bothering me", "bothersome", "annoying", "5 out of 10",
		"6 out of 10", "7 out of 10", "5/10", "6/10", "7/10",
	}},
	{SeverityMild, []string{
		"mild", "slight", "slightly", "a little", "a bit", "minor",
		"not too bad", "bearable", "manageable", "comes and goes",
		"2 out of 10", "3 out of 10", "2/10", "3/10",
	}},
}

// ---------- symptom keywords ----------

// symptomKeywords are scanned per message; a hit captures the keyword
// plus a ±2-word context window as one symptom phrase.
var symptomKeywords = []string{
	"headache", "migraine", "pain", "ache", "aching", "sore", "soreness",
	"fever", "chills", "sweats", "cough", "coughing", "sneezing",
	"congestion", "runny nose", "sore throat", "nausea", "nauseous",
	"vomiting", "throwing up", "diarrhea", "constipation", "cramps",
	"cramping", "bloating", "dizzy", "dizziness", "lightheaded",
	"fatigue", "tired", "exhausted", "weakness", "numbness", "tingling",
	"rash", "itchy", "itching", "swelling", "swollen", "bruising",
	"bleeding", "shortness of breath", "breathless", "wheezing",
	"chest pain", "palpitations", "heartburn", "indigestion",
	"blurry vision", "blurred vision", "ringing", "earache",
	"back pain", "joint pain", "stiff", "stiffness", "burning",
	"discharge", "insomnia", "anxious", "anxiety", "depressed",
	"depression", "stressed", "panic", "appetite", "weight loss",
	"weight gain", "fainted", "fainting", "seizure", "tremor",
}

// ---------- history / medication / allergy markers ----------

// A sentence containing any marker is captured verbatim into the
// corresponding deduplicated set.
var historyMarkers = []string{
	"diagnosed with", "history of", "i have diabetes", "i have asthma",
	"i have hypertension", "high blood pressure", "heart condition",
	"heart disease", "thyroid", "previous surgery", "had surgery",
	"i had cancer", "runs in my family", "family history", "chronic",
	"i was hospitalized", "hospitalized for",
}

var medicationMarkers = []string{
	"i take", "i'm taking", "i am taking", "i'm on", "i am on",
	"prescribed", "prescription", "medication", "ibuprofen", "tylenol",
	"acetaminophen", "aspirin", "antibiotic", "antibiotics", "insulin",
	"inhaler", "metformin", "lisinopril", "statin", "antidepressant",
	"birth control", "supplement", "vitamins",
}

var allergyMarkers = []string{
	"allergic to", "allergy", "allergies", "anaphylaxis", "anaphylactic",
	"penicillin", "peanut allergy", "shellfish allergy", "latex",
	"hives when", "react to", "reaction to",
}

// ---------- medical context ----------

// medicalContextKeywords gate what lands in additionalInfo: a sentence
// with no medical signal is dropped rather than accumulated.
var medicalContextKeywords = []string{
	"doctor", "hospital", "clinic", "emergency", "urgent care",
	"symptom", "symptoms", "worse", "worsening", "better", "improving",
	"started", "spread", "spreading", "triggered", "trigger",
	"eating", "drinking", "sleeping", "exercise", "walking", "standing",
	"sitting", "morning", "night", "daily", "constant", "constantly",
	"intermittent", "pregnant", "pregnancy", "smoking", "smoke",
	"alcohol", "temperature", "blood", "breathing", "heart rate",
	"stress", "work", "injury", "injured", "fell", "accident",
}

// ---------- mental health ----------

// mentalHealthKeywords force a psychiatry referral suggestion when they
// appear in either the provider reply or the triggering patient message.
var mentalHealthKeywords = []string{
	"suicide", "suicidal", "kill myself", "end my life", "self-harm",
	"self harm", "hurting myself", "hurt myself", "overdose",
	"hopeless", "worthless", "no reason to live", "panic attack",
	"severe anxiety", "severe depression", "hearing voices",
	"hallucination", "hallucinations", "psychosis", "manic", "bipolar",
	"ptsd", "trauma", "eating disorder", "anorexia", "bulimia",
}
