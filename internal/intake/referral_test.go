package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbridge-ai/intake-pipeline/internal/directory"
	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

type fakeDirectory struct {
	specialists map[string]*directory.Specialist
	err         error
	lastQuery   string
}

func (f *fakeDirectory) FindAvailable(_ context.Context, specialty string) (*directory.Specialist, error) {
	f.lastQuery = specialty
	if f.err != nil {
		return nil, f.err
	}
	return f.specialists[specialty], nil
}

func newReferralFixture(t *testing.T) (*ReferralDetector, *fakeDirectory) {
	t.Helper()
	dir := &fakeDirectory{specialists: map[string]*directory.Specialist{
		"Cardiology": {ID: uuid.New(), Name: "Dr. Reyes", Specialty: "Cardiology"},
		"Psychiatry": {ID: uuid.New(), Name: "Dr. Okafor", Specialty: "Psychiatry"},
	}}
	return NewReferralDetector(dir, logging.New("error")), dir
}

func TestReferralDetector_Detect(t *testing.T) {
	tests := []struct {
		name             string
		providerReply    string
		patientMessage   string
		currentSpecialty string
		wantSpecialty    string
		wantSource       string
	}{
		{
			name:             "explicit marker",
			providerReply:    "Given these symptoms I'd like a cardiologist to take a look. [REFERRAL_SUGGESTED: Cardiology]",
			patientMessage:   "my chest hurts when climbing stairs",
			currentSpecialty: "General Practice",
			wantSpecialty:    "Cardiology",
			wantSource:       ReferralSourceMarker,
		},
		{
			name:             "mental health keyword in patient message",
			providerReply:    "I'm sorry you're going through this.",
			patientMessage:   "I've been having panic attacks every night and feel hopeless",
			currentSpecialty: "General Practice",
			wantSpecialty:    SpecialtyPsychiatry,
			wantSource:       ReferralSourceKeyword,
		},
		{
			name:             "mental health keyword in provider reply",
			providerReply:    "What you describe sounds like severe anxiety.",
			patientMessage:   "I can't sleep",
			currentSpecialty: "General Practice",
			wantSpecialty:    SpecialtyPsychiatry,
			wantSource:       ReferralSourceKeyword,
		},
		{
			name:             "keyword skipped when already in psychiatry",
			providerReply:    "Let's talk about those panic attacks.",
			patientMessage:   "the panic attacks are back",
			currentSpecialty: "psychiatry",
		},
		{
			name:             "marker overrides keyword",
			providerReply:    "This stress pattern needs a heart check first. [REFERRAL_SUGGESTED: Cardiology]",
			patientMessage:   "the panic attack gave me chest pain",
			currentSpecialty: "General Practice",
			wantSpecialty:    "Cardiology",
			wantSource:       ReferralSourceMarker,
		},
		{
			name:             "no signal",
			providerReply:    "Drink plenty of fluids and rest.",
			patientMessage:   "okay, thank you",
			currentSpecialty: "General Practice",
		},
		{
			name:             "blank marker specialty ignored",
			providerReply:    "[REFERRAL_SUGGESTED:   ]",
			patientMessage:   "all good",
			currentSpecialty: "General Practice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det, _ := newReferralFixture(t)

			suggestion, err := det.Detect(context.Background(),
				tt.providerReply, tt.patientMessage, tt.currentSpecialty)
			require.NoError(t, err)

			if tt.wantSpecialty == "" {
				assert.Nil(t, suggestion)
				return
			}
			require.NotNil(t, suggestion)
			assert.Equal(t, tt.wantSpecialty, suggestion.Specialty)
			assert.Equal(t, tt.wantSource, suggestion.Source)
		})
	}
}

func TestReferralResolvesSpecialist(t *testing.T) {
	det, dir := newReferralFixture(t)

	suggestion, err := det.Detect(context.Background(),
		"[REFERRAL_SUGGESTED: Cardiology]",
		"my chest hurts",
		"General Practice")
	require.NoError(t, err)
	require.NotNil(t, suggestion)

	assert.Equal(t, "Dr. Reyes", suggestion.SpecialistName)
	assert.NotEqual(t, uuid.Nil, suggestion.SpecialistID)
	assert.Equal(t, "Cardiology", dir.lastQuery)
}

func TestReferralNoSpecialistAvailable(t *testing.T) {
	det, dir := newReferralFixture(t)
	delete(dir.specialists, "Cardiology")

	suggestion, err := det.Detect(context.Background(),
		"[REFERRAL_SUGGESTED: Cardiology]", "", "General Practice")
	require.NoError(t, err)
	assert.Nil(t, suggestion)
}

func TestReferralDirectoryError(t *testing.T) {
	det, dir := newReferralFixture(t)
	dir.err = errors.New("db down")

	_, err := det.Detect(context.Background(),
		"[REFERRAL_SUGGESTED: Cardiology]", "", "General Practice")
	assert.Error(t, err)
}
