package models

import (
	"time"
)

const (
	SESSION_END   = "<SESSION_END>"
	END_OF_SPEECH = "<END_OF_SPEECH>"
)

// Language is one of the fixed set of languages the assistant can speak.
type Language string

const (
	LanguageEnglish  Language = "english"
	LanguageFrench   Language = "french"
	LanguageSpanish  Language = "spanish"
	LanguageGerman   Language = "german"
	LanguageHindi    Language = "hindi"
	LanguageMandarin Language = "mandarin"
)

// KnownLanguages lists every language the classifier and the speech stack
// recognize, in a stable order.
func KnownLanguages() []Language {
	return []Language{
		LanguageEnglish,
		LanguageFrench,
		LanguageSpanish,
		LanguageGerman,
		LanguageHindi,
		LanguageMandarin,
	}
}

var localeTags = map[Language]string{
	LanguageEnglish:  "en-US",
	LanguageFrench:   "fr-FR",
	LanguageSpanish:  "es-ES",
	LanguageGerman:   "de-DE",
	LanguageHindi:    "hi-IN",
	LanguageMandarin: "zh-CN",
}

// LocaleTag returns the BCP-47 tag used for speech recognition and local
// synthesis. Unknown languages fall back to the English tag.
func (l Language) LocaleTag() string {
	if tag, ok := localeTags[l]; ok {
		return tag
	}
	return localeTags[LanguageEnglish]
}

// ShortCode returns the primary language subtag ("en", "fr", ...), the form
// the transcription service expects.
func (l Language) ShortCode() string {
	tag := l.LocaleTag()
	return tag[:2]
}

// ParseLanguage matches a spoken language name against the known set,
// case-insensitively. ok is false when the name is not recognized.
func ParseLanguage(name string) (Language, bool) {
	for _, lang := range KnownLanguages() {
		if string(lang) == normalizeLanguageName(name) {
			return lang, true
		}
	}
	return "", false
}

func normalizeLanguageName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c == ' ' || c == '.' || c == ',' || c == '?' || c == '!' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// Coordinates is a position on the abstract 2-D floor plane of a building.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SpatialNode is a known location inside a building. Nodes are immutable
// once created; updated information arrives as a fresh fetch, never as an
// in-place edit.
type SpatialNode struct {
	ID          string      `json:"id"`
	BuildingID  string      `json:"building_id"`
	Coordinates Coordinates `json:"coordinates"`
	Description string      `json:"description"`
	// IsGoldenPath is true only for registry-audited nodes. User-submitted
	// pins always start false.
	IsGoldenPath bool      `json:"is_golden_path"`
	CreatedAt    time.Time `json:"created_at"`
}

// SceneAnalysis is one spatial narration of a camera frame. Hazard and
// Navigation are empty when the scene contains neither.
type SceneAnalysis struct {
	Description string `json:"description"`
	Hazard      string `json:"hazard,omitempty"`
	Navigation  string `json:"navigation,omitempty"`
}

// SceneRequest carries the per-call policy for a vision analysis: the
// spoken question if the turn had one, the active navigation target if any,
// and the effective language for the response.
type SceneRequest struct {
	Question         string
	NavigationTarget string
	Language         Language
}

// NavigationState is the single active navigation goal. "No target" is the
// absence of the struct, never an empty TargetDescription.
type NavigationState struct {
	TargetDescription   string
	SourceRegistryMatch bool
}

// AudioPlaybackState tracks whether speech output is audible and which
// playback generation is current. Completion callbacks carry the generation
// they were dispatched under; a mismatch marks them stale.
type AudioPlaybackState struct {
	IsPlaying  bool
	Generation uint64
}
