package models

// IntentKind discriminates the tagged Intent variant.
type IntentKind string

const (
	IntentLanguageSwitch   IntentKind = "language_switch"
	IntentPinLocation      IntentKind = "pin_location"
	IntentTranslateTo      IntentKind = "translate_to"
	IntentNavigateTo       IntentKind = "navigate_to"
	IntentFreeformQuestion IntentKind = "freeform_question"
)

// Intent is the classified meaning of one utterance. Exactly one is produced
// per utterance and it is never mutated afterwards. The populated fields
// depend on Kind: Language for language switches and translation requests,
// Target for navigation, Text for freeform questions.
type Intent struct {
	Kind     IntentKind
	Language Language
	Target   string
	Text     string
}

func NewLanguageSwitchIntent(lang Language) Intent {
	return Intent{Kind: IntentLanguageSwitch, Language: lang}
}

func NewPinLocationIntent() Intent {
	return Intent{Kind: IntentPinLocation}
}

func NewTranslateToIntent(lang Language) Intent {
	return Intent{Kind: IntentTranslateTo, Language: lang}
}

func NewNavigateToIntent(target string) Intent {
	return Intent{Kind: IntentNavigateTo, Target: target}
}

func NewFreeformQuestionIntent(text string) Intent {
	return Intent{Kind: IntentFreeformQuestion, Text: text}
}
