// Package locale maps (language, message key, parameter) to the localized
// strings the assistant speaks. Languages without a full catalog fall back
// to the English template so the assistant is never silent.
package locale

import (
	"fmt"

	"github.com/RainyAlgorithms/visionbuddy/models"
)

// Key names one spoken template.
type Key string

const (
	KeyNavigatingTo    Key = "navigating_to"
	KeySignHunting     Key = "sign_hunting"
	KeyLanguageSet     Key = "language_set"
	KeyPinSaved        Key = "pin_saved"
	KeyPinNothing      Key = "pin_nothing"
	KeyPinFailed       Key = "pin_failed"
	KeyNavigationReset Key = "navigation_reset"
	KeyScanPrompt      Key = "scan_prompt"
	KeyGenericError    Key = "generic_error"
)

var catalogs = map[models.Language]map[Key]string{
	models.LanguageEnglish: {
		KeyNavigatingTo:    "Navigating to %s.",
		KeySignHunting:     "I'll look for signs for %s.",
		KeyLanguageSet:     "Okay, I'll speak in %s now.",
		KeyPinSaved:        "Saved this location: %s.",
		KeyPinNothing:      "I haven't seen this spot yet. Scan first, then pin.",
		KeyPinFailed:       "Sorry, I couldn't save this location.",
		KeyNavigationReset: "Navigation cancelled.",
		KeyScanPrompt:      "Scanning your surroundings.",
		KeyGenericError:    "Something went wrong. Please try again.",
	},
	models.LanguageFrench: {
		KeyNavigatingTo:    "Navigation vers %s.",
		KeySignHunting:     "Je vais chercher des panneaux pour %s.",
		KeyLanguageSet:     "D'accord, je parlerai en %s maintenant.",
		KeyPinSaved:        "Emplacement enregistré : %s.",
		KeyPinNothing:      "Je n'ai pas encore vu cet endroit. Scannez d'abord, puis épinglez.",
		KeyPinFailed:       "Désolé, je n'ai pas pu enregistrer cet emplacement.",
		KeyNavigationReset: "Navigation annulée.",
		KeyScanPrompt:      "J'analyse votre environnement.",
		KeyGenericError:    "Une erreur s'est produite. Veuillez réessayer.",
	},
	models.LanguageSpanish: {
		KeyNavigatingTo:    "Navegando hacia %s.",
		KeySignHunting:     "Buscaré señales de %s.",
		KeyLanguageSet:     "De acuerdo, ahora hablaré en %s.",
		KeyPinSaved:        "Ubicación guardada: %s.",
		KeyPinNothing:      "Todavía no he visto este lugar. Escanea primero y luego guarda.",
		KeyPinFailed:       "Lo siento, no pude guardar esta ubicación.",
		KeyNavigationReset: "Navegación cancelada.",
		KeyScanPrompt:      "Analizando tu entorno.",
		KeyGenericError:    "Algo salió mal. Inténtalo de nuevo.",
	},
	models.LanguageGerman: {
		KeyNavigatingTo:    "Navigiere zu %s.",
		KeySignHunting:     "Ich suche nach Schildern für %s.",
		KeyLanguageSet:     "Okay, ich spreche jetzt %s.",
		KeyPinSaved:        "Ort gespeichert: %s.",
		KeyPinNothing:      "Ich habe diesen Ort noch nicht gesehen. Erst scannen, dann merken.",
		KeyPinFailed:       "Entschuldigung, ich konnte diesen Ort nicht speichern.",
		KeyNavigationReset: "Navigation abgebrochen.",
		KeyScanPrompt:      "Ich analysiere deine Umgebung.",
		KeyGenericError:    "Etwas ist schiefgelaufen. Bitte versuche es erneut.",
	},
}

// Message renders the template for key in lang, substituting param. A
// language without a catalog, or a catalog missing the key, falls back to
// the English template. Templates without a parameter ignore param.
func Message(lang models.Language, key Key, param string) string {
	tmpl, ok := catalogs[lang][key]
	if !ok {
		tmpl = catalogs[models.LanguageEnglish][key]
	}
	if tmpl == "" {
		return param
	}
	if param == "" {
		// Parameterless keys carry no verb slot; drop the formatting for
		// ones that do to avoid a literal "%!s(MISSING)".
		if !hasVerb(tmpl) {
			return tmpl
		}
		return fmt.Sprintf(tmpl, "")
	}
	if !hasVerb(tmpl) {
		return tmpl
	}
	return fmt.Sprintf(tmpl, param)
}

// displayNames is how each language names itself in a spoken confirmation.
// Languages without a catalog keep their English name, since their
// confirmations fall back to English templates anyway.
var displayNames = map[models.Language]string{
	models.LanguageEnglish:  "English",
	models.LanguageFrench:   "français",
	models.LanguageSpanish:  "español",
	models.LanguageGerman:   "Deutsch",
	models.LanguageHindi:    "Hindi",
	models.LanguageMandarin: "Mandarin",
}

// DisplayName returns the spoken name for lang: the endonym for catalogued
// languages, the capitalized English name otherwise.
func DisplayName(lang models.Language) string {
	if name, ok := displayNames[lang]; ok {
		return name
	}
	return string(lang)
}

// Supported reports whether lang has its own catalog.
func Supported(lang models.Language) bool {
	_, ok := catalogs[lang]
	return ok
}

func hasVerb(tmpl string) bool {
	for i := 0; i+1 < len(tmpl); i++ {
		if tmpl[i] == '%' && tmpl[i+1] == 's' {
			return true
		}
	}
	return false
}
