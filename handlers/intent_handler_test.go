package handlers

import (
	"testing"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	known := models.KnownLanguages()

	tests := []struct {
		name      string
		utterance string
		want      models.Intent
	}{
		{
			name:      "language switch",
			utterance: "switch to French please",
			want:      models.NewLanguageSwitchIntent(models.LanguageFrench),
		},
		{
			name:      "language switch speak in",
			utterance: "can you speak in Spanish",
			want:      models.NewLanguageSwitchIntent(models.LanguageSpanish),
		},
		{
			name:      "switch phrase without known language is not a switch",
			utterance: "switch to something else",
			want:      models.NewFreeformQuestionIntent("switch to something else"),
		},
		{
			name:      "pin this",
			utterance: "pin this spot",
			want:      models.NewPinLocationIntent(),
		},
		{
			name:      "bare save",
			utterance: "save",
			want:      models.NewPinLocationIntent(),
		},
		{
			name:      "save my french lesson is a pin, not a language switch",
			utterance: "save my French lesson",
			want:      models.NewPinLocationIntent(),
		},
		{
			name:      "translate request",
			utterance: "translate to German",
			want:      models.NewTranslateToIntent(models.LanguageGerman),
		},
		{
			name:      "translate to unknown language falls through",
			utterance: "translate to Klingon",
			want:      models.NewFreeformQuestionIntent("translate to Klingon"),
		},
		{
			name:      "where is",
			utterance: "where is the restroom",
			want:      models.NewNavigateToIntent("where is the restroom"),
		},
		{
			name:      "bare landmark keyword",
			utterance: "elevator",
			want:      models.NewNavigateToIntent("elevator"),
		},
		{
			name:      "freeform",
			utterance: "what color is the wall",
			want:      models.NewFreeformQuestionIntent("what color is the wall"),
		},
		{
			name:      "empty utterance",
			utterance: "   ",
			want:      models.NewFreeformQuestionIntent(""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyIntent(tt.utterance, known)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Rule order is a user-visible disambiguation policy: any utterance carrying
// both a pin keyword and a navigate keyword must pin, never navigate.
func TestClassifyIntentPinBeatsNavigate(t *testing.T) {
	known := models.KnownLanguages()

	utterances := []string{
		"pin this near the exit",
		"save this, it's by the elevator",
		"remember this spot next to the washroom",
		"pin the door where is the toilet",
		"save location of the restroom",
	}

	for _, utterance := range utterances {
		got := ClassifyIntent(utterance, known)
		assert.Equalf(t, models.IntentPinLocation, got.Kind,
			"utterance %q must resolve to a pin", utterance)
	}
}

// When several known languages are named, the one spoken first wins — the
// enumeration order of the known set must not leak into classification.
func TestClassifyIntentFirstNamedLanguageWins(t *testing.T) {
	known := models.KnownLanguages()

	got := ClassifyIntent("translate to mandarin not english", known)
	assert.Equal(t, models.NewTranslateToIntent(models.LanguageMandarin), got)

	got = ClassifyIntent("switch to spanish or maybe english", known)
	assert.Equal(t, models.NewLanguageSwitchIntent(models.LanguageSpanish), got)
}

func TestClassifyIntentLanguageSwitchBeatsPin(t *testing.T) {
	// "switch to" outranks the broad single-word pin keywords when a known
	// language is named.
	got := ClassifyIntent("switch to French and save me the trouble", models.KnownLanguages())
	assert.Equal(t, models.IntentLanguageSwitch, got.Kind)
	assert.Equal(t, models.LanguageFrench, got.Language)
}
