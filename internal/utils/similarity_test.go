package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailSimilarity(t *testing.T) {
	tests := []struct {
		a, b    string
		similar bool
	}{
		{"alice@example.com", "alise@example.com", true},
		{"Alice@Example.com", "alice@example.com", true},
		{"alice@example.com", "bob@mail.org", false},
		{"chef@kitchen.io", "baker@bakery.net", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"~"+tt.b, func(t *testing.T) {
			ratio := EmailSimilarity(tt.a, tt.b)
			assert.Equal(t, tt.similar, ratio >= EmailSimilarityThreshold, "ratio=%f", ratio)
		})
	}
}

func TestEmailSimilarity_KnownRatio(t *testing.T) {
	// 16 of 17 characters line up: 2*16/34
	assert.InDelta(t, 32.0/34.0, EmailSimilarity("alice@example.com", "alise@example.com"), 1e-9)
	assert.Equal(t, 1.0, EmailSimilarity("same@example.com", "SAME@example.com"))
}

func TestMostSimilarEmail(t *testing.T) {
	existing := []string{"bob@mail.org", "alise@example.com"}

	match, found := MostSimilarEmail("alice@example.com", existing)
	assert.True(t, found)
	assert.Equal(t, "alise@example.com", match)

	_, found = MostSimilarEmail("zed@other.net", existing)
	assert.False(t, found)

	_, found = MostSimilarEmail("anyone@example.com", nil)
	assert.False(t, found)
}
