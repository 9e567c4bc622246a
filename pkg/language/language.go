// Package language detects the language of a text body.
package language

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// DefaultLanguages bounds detection to the languages client sites are
// written in. Each extra language costs model memory.
var DefaultLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Italian,
}

// minTextRunes is the shortest text worth classifying.
const minTextRunes = 20

// Detector returns an ISO 639-1 code for text.
type Detector interface {
	Detect(text string) (code string, ok bool)
}

// Lingua is a Detector backed by lingua-go. Models load on first use.
type Lingua struct {
	languages []lingua.Language
	once      sync.Once
	detector  lingua.LanguageDetector
}

func NewLingua(languages ...lingua.Language) *Lingua {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &Lingua{languages: languages}
}

func (l *Lingua) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minTextRunes {
		return "", false
	}
	l.once.Do(func() {
		l.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(l.languages...).
			Build()
	})
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Mismatch compares the languages of two texts. It reports a mismatch only
// when both are detected and differ.
func Mismatch(d Detector, expectedText, pageText string) (expected, found string, mismatch bool) {
	expected, okExpected := d.Detect(expectedText)
	found, okFound := d.Detect(pageText)
	if !okExpected || !okFound {
		return expected, found, false
	}
	return expected, found, expected != found
}
