package ai

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

func TestNormalizeTypography(t *testing.T) {
	in := "## Judul Utama\n\n**penting** sekali\n- satu\n- dua\n\n\n\nakhir"
	out := normalizeTypography(in)

	assert.Contains(t, out, "*JUDUL UTAMA*")
	assert.Contains(t, out, "*penting* sekali")
	assert.Contains(t, out, "• satu")
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "\n\n\n")
}

func TestFormatResultHeaders(t *testing.T) {
	cases := []struct {
		name     string
		mode     models.GroundingMode
		fallback bool
		want     string
	}{
		{"plain", models.GroundingNone, false, "AI ASSISTANT"},
		{"search", models.GroundingSearch, false, "WEB RESEARCH"},
		{"reference", models.GroundingReference, false, "CONTENT ANALYSIS"},
		{"fallback wins", models.GroundingSearch, true, "MODE TERBATAS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatResult(&models.GenerationResult{
				Text:     "isi",
				Mode:     tc.mode,
				Fallback: tc.fallback,
				Attempt:  1,
			})
			assert.Contains(t, got, tc.want)
		})
	}
}

func TestFormatResultReferencesAndFooter(t *testing.T) {
	got := FormatResult(&models.GenerationResult{
		Text:    "ringkasan",
		Mode:    models.GroundingSearch,
		Attempt: 2,
		Elapsed: 3 * time.Second,
		Sources: []models.Source{
			{Title: "Portal Berita", URI: "https://portal.co.id/a"},
			{URI: "https://lain.co.id/b"},
			{Title: strings.Repeat("x", 80), URI: "https://panjang.co.id/c"},
		},
	})

	assert.Contains(t, got, "*REFERENSI*")
	assert.Contains(t, got, "1. Portal Berita")
	assert.Contains(t, got, "2. Sumber Data")
	assert.Contains(t, got, strings.Repeat("x", 60)+"...")
	assert.Contains(t, got, "_Respons: 3s • Percobaan: 2_")
}

func TestReferencesTruncateOnRuneBoundary(t *testing.T) {
	got := referencesSection([]models.Source{
		{Title: strings.Repeat("é", 80), URI: "https://aksen.co.id/d"},
	})

	assert.Contains(t, got, strings.Repeat("é", 60)+"...")
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
}

func TestFallbackTextAllCategories(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	for _, category := range []models.FailureCategory{
		models.FailureNetwork,
		models.FailureMalformedRequest,
		models.FailureNotFound,
		models.FailureRateLimited,
		models.FailureGeneric,
	} {
		got := fallbackText(category, "AB12CD34", now)
		assert.Contains(t, got, "❌", category)
		assert.Contains(t, got, "*Solusi yang disarankan:*", category)
		assert.Contains(t, got, "AB12CD34", category)
		assert.Contains(t, got, "15/06/2025 14:30", category)
	}
}

func TestFallbackTextUnknownCategoryFallsBackToGeneric(t *testing.T) {
	got := fallbackText(models.FailureCategory("aneh"), "AB12CD34", time.Now())
	assert.Contains(t, got, "SISTEM DALAM PEMELIHARAAN")
}
