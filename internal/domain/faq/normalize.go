package faq

import "strings"

// NormalizeQuestion case-folds and trims a question. Interior whitespace and
// punctuation are kept so that substring checks see the text as typed.
func NormalizeQuestion(q string) string {
	return strings.TrimSpace(strings.ToLower(q))
}

func tokenize(q string) []string {
	return strings.Fields(q)
}
