package utils

import (
	"testing"

	"github.com/RainyAlgorithms/visionbuddy/models"
	"github.com/stretchr/testify/assert"
)

func TestQueryTokensDropsFillerWords(t *testing.T) {
	tokens := queryTokens("Where is the restroom?")
	assert.Equal(t, []string{"where", "restroom"}, tokens)

	assert.Empty(t, queryTokens("go to it"))
}

func TestDescriptionMatches(t *testing.T) {
	query := "where is the restroom"
	tokens := queryTokens(query)

	assert.True(t, descriptionMatches("Restroom beside the north stairwell", query, tokens))
	assert.False(t, descriptionMatches("Vending machines by the lobby", query, tokens))
	assert.False(t, descriptionMatches("", query, tokens))

	// A short node description contained in the query matches too.
	assert.True(t, descriptionMatches("restroom", query, queryTokens(query)))
}

func TestVoiceForLanguage(t *testing.T) {
	assert.Equal(t, "aura-asteria-en", VoiceForLanguage(models.LanguageEnglish))
	assert.Empty(t, VoiceForLanguage(models.LanguageFrench), "non-English languages have no remote voice")
}
