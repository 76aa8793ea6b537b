package locale

import (
	"testing"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"github.com/stretchr/testify/assert"
)

func TestMessageLocalizedTemplates(t *testing.T) {
	tests := []struct {
		lang  models.Language
		key   Key
		param string
		want  string
	}{
		{models.LanguageEnglish, KeyNavigatingTo, "main elevator lobby", "Navigating to main elevator lobby."},
		{models.LanguageFrench, KeyNavigatingTo, "hall principal", "Navigation vers hall principal."},
		{models.LanguageSpanish, KeySignHunting, "el baño", "Buscaré señales de el baño."},
		{models.LanguageGerman, KeyNavigationReset, "", "Navigation abgebrochen."},
		{models.LanguageEnglish, KeyPinFailed, "", "Sorry, I couldn't save this location."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.lang, tt.key, tt.param))
	}
}

func TestMessageFallsBackToEnglishForUncataloguedLanguage(t *testing.T) {
	assert.False(t, Supported(models.LanguageHindi))
	assert.Equal(t, "Okay, I'll speak in Hindi now.",
		Message(models.LanguageHindi, KeyLanguageSet, DisplayName(models.LanguageHindi)))
	assert.Equal(t, "I'll look for signs for the cafeteria.",
		Message(models.LanguageMandarin, KeySignHunting, "the cafeteria"))
}

func TestDisplayNameUsesEndonymsForCataloguedLanguages(t *testing.T) {
	assert.Equal(t, "français", DisplayName(models.LanguageFrench))
	assert.Equal(t, "Deutsch", DisplayName(models.LanguageGerman))
	// No catalog, so the confirmation is English; keep the English name.
	assert.Equal(t, "Hindi", DisplayName(models.LanguageHindi))
}

func TestSupportedLanguagesHaveEveryKey(t *testing.T) {
	keys := []Key{
		KeyNavigatingTo, KeySignHunting, KeyLanguageSet, KeyPinSaved,
		KeyPinNothing, KeyPinFailed, KeyNavigationReset, KeyScanPrompt,
		KeyGenericError,
	}
	for lang, catalog := range catalogs {
		for _, key := range keys {
			assert.Containsf(t, catalog, key, "language %s is missing key %s", lang, key)
		}
	}
}
