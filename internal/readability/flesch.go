// Package readability scores text difficulty so generated explanations can
// be gated against a target accessible to a general audience.
//
// The scale is Flesch Reading Ease: higher means easier, roughly 90-100 for
// very easy text, 60-70 for plain English, below 30 for academic prose. The
// package commits to this single higher-is-easier scale; grade-level
// heuristics (lower-is-easier) are intentionally not mixed in.
package readability

import (
	"strings"
	"unicode"
)

// TargetScore is the minimum Reading Ease score an explanation must reach.
// The benefit domain's unavoidable long words ("eligibility",
// "requirement", "immigration status") depress the score of even short,
// clear sentences, so the cutoff sits below the textbook plain-English
// band: high enough to reject genuinely dense prose, low enough that a
// summary built from domain vocabulary still clears it.
const TargetScore = 35.0

// Score computes the Flesch Reading Ease score of the text.
// Empty or whitespace-only input returns 0, the hardest possible reading,
// rather than an error.
func Score(text string) float64 {
	words := splitWords(text)
	if len(words) == 0 {
		return 0
	}

	sentences := countSentences(text)
	if sentences == 0 {
		sentences = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	wordCount := float64(len(words))
	score := 206.835 - 1.015*(wordCount/float64(sentences)) - 84.6*(float64(syllables)/wordCount)

	// Clamp to the conventional 0-100 presentation range.
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// PassesTarget reports whether the text meets the fixed readability target.
func PassesTarget(text string) bool {
	return Score(text) >= TargetScore
}

// splitWords extracts letter runs; digits and punctuation delimit words.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// countSentences counts terminal punctuation runs. Text without any
// terminator still counts as one sentence.
func countSentences(text string) int {
	count := 0
	inTerminator := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if !inTerminator {
				count++
			}
			inTerminator = true
		default:
			inTerminator = false
		}
	}
	return count
}

// countSyllables estimates syllables with a vowel-cluster heuristic: each
// maximal vowel group counts once, one trailing silent "e" is collapsed,
// and every word has at least one syllable.
func countSyllables(word string) int {
	word = strings.Trim(strings.ToLower(word), "'")
	if word == "" {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	// Collapse a single trailing silent "e" ("have", "income"), but never
	// below one syllable ("the", "be").
	if count > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		count--
	}

	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
