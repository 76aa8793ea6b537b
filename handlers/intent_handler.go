package handlers

import (
	"strings"

	"github.com/RainyAlgorithms/visionbuddy/models"
)

// The classifier is a fixed, priority-ordered checklist of predicate→intent
// rules, not a parser. Rule order is a user-visible contract: keyword sets
// overlap ("save my French lesson" must be a pin, not a language switch;
// "pin it near the exit" must be a pin, not navigation), so rules are tried
// strictly in order and the first match wins.

var languageSwitchPhrases = []string{
	"speak in",
	"switch to",
	"talk in",
	"change language to",
}

var pinKeywords = []string{
	"pin this",
	"save this",
	"remember this",
	"pin location",
	"save location",
	"pin",
	"save",
}

var navigateKeywords = []string{
	"where is",
	"find",
	"navigate to",
	"go to",
	"looking for",
	"washroom",
	"toilet",
	"exit",
	"elevator",
	"restroom",
}

const translatePhrase = "translate to "

type intentRule struct {
	name  string
	match func(lowered, original string, known []models.Language) (models.Intent, bool)
}

var classifierRules = []intentRule{
	{
		name: "language switch",
		match: func(lowered, original string, known []models.Language) (models.Intent, bool) {
			if !containsAny(lowered, languageSwitchPhrases) {
				return models.Intent{}, false
			}
			lang, ok := containedLanguage(lowered, known)
			if !ok {
				return models.Intent{}, false
			}
			return models.NewLanguageSwitchIntent(lang), true
		},
	},
	{
		// "pin"/"save" are single words, so this rule is intentionally
		// broad. It sits after language switch so "save my French lesson"
		// is not misrouted, and before navigate so an utterance carrying
		// both pin and navigate keywords deterministically pins.
		name: "pin location",
		match: func(lowered, original string, known []models.Language) (models.Intent, bool) {
			if !containsAny(lowered, pinKeywords) {
				return models.Intent{}, false
			}
			return models.NewPinLocationIntent(), true
		},
	},
	{
		name: "translate",
		match: func(lowered, original string, known []models.Language) (models.Intent, bool) {
			idx := strings.Index(lowered, translatePhrase)
			if idx < 0 {
				return models.Intent{}, false
			}
			lang, ok := containedLanguage(lowered[idx+len(translatePhrase):], known)
			if !ok {
				return models.Intent{}, false
			}
			return models.NewTranslateToIntent(lang), true
		},
	},
	{
		name: "navigate",
		match: func(lowered, original string, known []models.Language) (models.Intent, bool) {
			if !containsAny(lowered, navigateKeywords) {
				return models.Intent{}, false
			}
			return models.NewNavigateToIntent(original), true
		},
	},
}

// ClassifyIntent resolves one transcribed utterance to exactly one Intent.
// Utterances matching no rule become freeform questions for the vision
// capability.
func ClassifyIntent(utterance string, known []models.Language) models.Intent {
	utterance = strings.TrimSpace(utterance)
	lowered := strings.ToLower(utterance)

	for _, rule := range classifierRules {
		if intent, ok := rule.match(lowered, utterance, known); ok {
			return intent
		}
	}
	return models.NewFreeformQuestionIntent(utterance)
}

func containsAny(lowered string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// containedLanguage finds the known language whose name appears earliest in
// the (already lowercased) text. When several are named, the first one
// spoken wins, not the first in enumeration order.
func containedLanguage(lowered string, known []models.Language) (models.Language, bool) {
	best := -1
	var found models.Language
	for _, lang := range known {
		idx := strings.Index(lowered, string(lang))
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
			found = lang
		}
	}
	return found, best >= 0
}
