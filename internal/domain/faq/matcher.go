package faq

import "strings"

// minFuzzyTokens is the key length, in tokens, below which a key must appear
// verbatim in the question to be considered by the fuzzy scan.
const minFuzzyTokens = 3

// Match returns the answer of the first FAQ entry that applies to question.
//
// An exact match on the normalized question wins. Otherwise entries are scanned
// in store order and the first key whose tokens are all contained in the
// question, or which is itself a substring of the question, is returned. Token
// containment is plain substring containment, so "certificate" is found inside
// "certificated". There is no scoring between several qualifying entries.
func Match(question string, catalog *Catalog) (string, bool) {
	normalized := NormalizeQuestion(question)
	if normalized == "" || catalog.Len() == 0 {
		return "", false
	}

	if answer, ok := catalog.Lookup(normalized); ok {
		return answer, true
	}

	for i, entry := range catalog.entries {
		key := entry.Question
		isSubstring := strings.Contains(normalized, key)
		words := catalog.tokens[i]
		if len(words) < minFuzzyTokens && !isSubstring {
			continue
		}
		if isSubstring || allWordsContained(normalized, words) {
			return entry.Answer, true
		}
	}
	return "", false
}

func allWordsContained(question string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(question, w) {
			return false
		}
	}
	return true
}
