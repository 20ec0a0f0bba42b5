package utils

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// EmailSimilarityThreshold is the ratio at which two emails count as the same
// person registering twice.
const EmailSimilarityThreshold = 0.8

// EmailSimilarity returns the Ratcliff/Obershelp ratio of two case-folded
// emails, compared character by character.
func EmailSimilarity(a, b string) float64 {
	return difflib.NewMatcher(chars(strings.ToLower(a)), chars(strings.ToLower(b))).Ratio()
}

// MostSimilarEmail scans candidates and returns the first one at or above
// the threshold. It is linear in len(candidates).
func MostSimilarEmail(email string, candidates []string) (string, bool) {
	for _, existing := range candidates {
		if EmailSimilarity(email, existing) >= EmailSimilarityThreshold {
			return existing, true
		}
	}
	return "", false
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
