// Package splitter implements the positive/negative prompt splitting
// heuristic applied to model output.
//
// Models asked to "reverse" an image into a generation prompt tend to answer
// in a loosely labelled two-part form ("Prompt: ... Negative: ..."), often
// with preamble, alternate label spellings, or Chinese labels. The splitter
// recovers the two halves without assuming a strict format.
package splitter

import (
	"regexp"
	"strings"
)

var (
	// Leading "User:"/"用户:" header sometimes echoed by reasoning models.
	// Anchored at the start of the text only.
	userHeaderRe = regexp.MustCompile(`(?i)^\s*(用户|User)\s*[:：]?\s*\n?`)

	// First positive label at the start of a line. Everything before it,
	// label included, is preamble and gets cut.
	positiveLabelRe = regexp.MustCompile(`(?is)(?:^|\n)\s*(prompt|positive|提示词|正向)\s*[:：]\s*`)

	// Negative label anywhere in the text. The \b guard only applies to the
	// ASCII labels; RE2 word boundaries never fire next to CJK runes, so the
	// Chinese labels are matched without it.
	negativeLabelRe = regexp.MustCompile(`(?im)(?:\b(?:negative\s*prompt|negative|neg|avoid|disallow|do\s*not)|负向|负面|避免|不要)\s*[:：]\s*`)

	// Residual line-leading labels left over after the cut.
	residualPositiveRe = regexp.MustCompile(`(?im)^\s*(positive|prompt|提示词|正向)\s*[:：]\s*`)
	residualNegativeRe = regexp.MustCompile(`(?im)^\s*(negative\s*prompt|negative|neg|avoid|disallow|do\s*not|负向|负面|避免|不要)\s*[:：]\s*`)
)

// Split divides model output into positive and negative prompt halves.
//
// Rules:
//  1. If a positive label ("Prompt:", "Positive:", "提示词:", "正向:")
//     appears at a line start, everything up to and including the label is
//     dropped; what follows is treated as the positive text.
//  2. The first negative label (Negative Prompt / Negative / Neg / Avoid /
//     Disallow / Do not / 负向 / 负面 / 避免 / 不要, case-insensitive)
//     splits positive from negative.
//  3. No negative label means the negative half is empty.
func Split(text string) (positive, negative string) {
	if text == "" {
		return "", ""
	}

	s := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))

	// 1) Cut everything before the positive label
	if loc := positiveLabelRe.FindStringIndex(s); loc != nil {
		s = strings.TrimLeft(s[loc[1]:], " \t\n")
	}

	// 2) Split on the negative label
	if loc := negativeLabelRe.FindStringIndex(s); loc != nil {
		positive = strings.TrimSpace(s[:loc[0]])
		negative = strings.TrimSpace(s[loc[1]:])
	} else {
		positive = strings.TrimSpace(s)
	}

	// 3) Clear residual labels left on either half
	positive = strings.TrimSpace(residualPositiveRe.ReplaceAllString(positive, ""))
	negative = strings.TrimSpace(residualNegativeRe.ReplaceAllString(negative, ""))

	return positive, negative
}

// Sanitize normalizes line endings and strips a leading "User:"/"用户:"
// header. It deliberately leaves inner labels alone so Split can still see
// them when run on the same source text.
func Sanitize(text string) string {
	t := strings.ReplaceAll(text, "\r\n", "\n")
	t = userHeaderRe.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}
