package presentation

import (
	"golang.org/x/text/language"

	"github.com/trailview/service-routes/internal/domain/route"
)

// DefaultLanguage is used when nothing better can be negotiated.
const DefaultLanguage = "es"

// supportedLanguages lists display languages; the first is the matcher's fallback.
var supportedLanguages = []string{"es", "eu", "fr", "en"}

var languageMatcher = language.NewMatcher([]language.Tag{
	language.Spanish,
	language.MustParse("eu"),
	language.French,
	language.English,
})

// SupportedLanguages returns the display languages in preference order.
func SupportedLanguages() []string {
	return append([]string(nil), supportedLanguages...)
}

// NegotiateLanguage picks the best supported language for the given tags or
// Accept-Language values.
func NegotiateLanguage(preferred ...string) string {
	_, idx := language.MatchStrings(languageMatcher, preferred...)
	if idx < 0 || idx >= len(supportedLanguages) {
		return DefaultLanguage
	}
	return supportedLanguages[idx]
}

// IsSupportedLanguage reports whether lang is exactly one of the display languages.
func IsSupportedLanguage(lang string) bool {
	for _, l := range supportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

var difficultyLabels = map[string]map[route.Difficulty]string{
	"es": {
		route.DifficultyEasy:     "Fácil",
		route.DifficultyModerate: "Moderada",
		route.DifficultyHard:     "Difícil",
		route.DifficultyUnknown:  "Sin datos",
	},
	"eu": {
		route.DifficultyEasy:     "Erraza",
		route.DifficultyModerate: "Ertaina",
		route.DifficultyHard:     "Zaila",
		route.DifficultyUnknown:  "Daturik gabe",
	},
	"fr": {
		route.DifficultyEasy:     "Facile",
		route.DifficultyModerate: "Modérée",
		route.DifficultyHard:     "Difficile",
		route.DifficultyUnknown:  "Inconnue",
	},
	"en": {
		route.DifficultyEasy:     "Easy",
		route.DifficultyModerate: "Moderate",
		route.DifficultyHard:     "Hard",
		route.DifficultyUnknown:  "Unknown",
	},
}

// DifficultyLabel returns the display label of d in lang.
func DifficultyLabel(d route.Difficulty, lang string) string {
	labels, ok := difficultyLabels[lang]
	if !ok {
		labels = difficultyLabels[DefaultLanguage]
	}
	if l, ok := labels[d]; ok {
		return l
	}
	return labels[route.DifficultyUnknown]
}
