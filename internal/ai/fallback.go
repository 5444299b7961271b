package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// Categorized, user-readable explanations for terminal generation failures.
// The category is matched exhaustively here; nothing re-parses error text.

type fallbackTemplate struct {
	title       string
	description string
	solutions   []string
	note        string
}

var fallbackTemplates = map[models.FailureCategory]fallbackTemplate{
	models.FailureNetwork: {
		title:       "GANGGUAN KONEKSI JARINGAN",
		description: "Sistem tidak dapat terhubung ke server AI saat ini.",
		solutions: []string{
			"Coba lagi dalam 1-2 menit",
			"Pastikan koneksi internet stabil",
			"Gunakan pertanyaan yang lebih sederhana",
		},
		note: "Tim teknis sedang memperbaiki masalah ini.",
	},
	models.FailureMalformedRequest: {
		title:       "FORMAT PERMINTAAN BERMASALAH",
		description: "Permintaan Anda tidak dapat diproses dalam format saat ini.",
		solutions: []string{
			"Gunakan bahasa yang lebih jelas dan spesifik",
			"Hindari karakter khusus atau simbol berlebihan",
			"Coba dengan struktur kalimat yang lebih sederhana",
		},
		note: "AI memerlukan pertanyaan dengan format yang jelas.",
	},
	models.FailureNotFound: {
		title:       "SUMBER TIDAK DAPAT DIAKSES",
		description: "Sumber atau URL yang diminta tidak ditemukan di server.",
		solutions: []string{
			"Pastikan URL masih aktif dan dapat diakses",
			"Coba dengan sumber atau website lain",
			"Gunakan kata kunci umum untuk pencarian web",
		},
		note: "Artikel atau halaman mungkin telah dihapus atau dipindahkan.",
	},
	models.FailureRateLimited: {
		title:       "SISTEM SEDANG SIBUK",
		description: "Terlalu banyak permintaan sedang diproses secara bersamaan.",
		solutions: []string{
			"Tunggu 2-3 menit sebelum mencoba lagi",
			"Gunakan /status untuk cek kondisi sistem",
		},
		note: "Terima kasih atas kesabaran Anda.",
	},
	models.FailureGeneric: {
		title:       "SISTEM DALAM PEMELIHARAAN",
		description: "Asisten AI sedang mengalami gangguan teknis sementara.",
		solutions: []string{
			"Coba lagi dengan perintah sederhana seperti /ping",
			"Hubungi administrator jika masalah berlanjut",
		},
		note: "Mohon maaf atas ketidaknyamanan ini.",
	},
}

// fallbackText synthesizes the categorized explanation with cause,
// remediation steps and a tracking identifier.
func fallbackText(category models.FailureCategory, trackingID string, now time.Time) string {
	tpl, ok := fallbackTemplates[category]
	if !ok {
		tpl = fallbackTemplates[models.FailureGeneric]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "❌ *%s*\n\n", tpl.title)
	sb.WriteString(tpl.description)
	sb.WriteString("\n\n*Solusi yang disarankan:*\n")
	for _, solution := range tpl.solutions {
		fmt.Fprintf(&sb, "• %s\n", solution)
	}
	fmt.Fprintf(&sb, "\n_%s_\n", tpl.note)
	fmt.Fprintf(&sb, "\n🆔 Error ID: `%s` • %s", trackingID, now.Format("02/01/2006 15:04"))
	return sb.String()
}
