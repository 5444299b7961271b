package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/void-rizqiagung/bot-mariioV2/internal/models"
)

// wib is the fixed UTC+7 offset the schedule is kept in, independent of the
// host timezone database.
var wib = time.FixedZone("WIB", 7*60*60)

type daySchedule struct {
	day            string
	uniform        string
	specialUniform string
	subjects       []string
}

var weekSchedule = map[time.Weekday]daySchedule{
	time.Monday: {
		day:            "Senin",
		uniform:        "Seragam Putih-Hijau",
		specialUniform: "Kaos Olahraga (saat jam Olahraga)",
		subjects: []string{
			"07.00 - 07.35: 🌅 Upacara",
			"07.35 - 08.10: 📋 Briefing",
			"08.10 - 09.20: 🏃 Olahraga",
			"09.40 - 10.50: 🇯🇵 Bahasa Jepang",
			"10.50 - 12.00: 🕌 PAI",
			"13.00 - 13.35: 🕋 Muhammadiyah",
			"13.35 - 14.45: 🇬🇧 Bahasa Inggris",
		},
	},
	time.Tuesday: {
		day:            "Selasa",
		uniform:        "Seragam Putih-Abu",
		specialUniform: "Wearpack (Baju Bengkel)",
		subjects: []string{
			"07.00 - 10.15: 🛠️ Bengkel Rizki",
			"10.15 - 14.10: 🔩 Bengkel Yahya",
			"14.10 - 14.45: 📐 MTK",
		},
	},
	time.Wednesday: {
		day:     "Rabu",
		uniform: "Seragam HW (Muhammadiyah)",
		subjects: []string{
			"07.00 - 08.10: 📖 Kuliah Duha",
			"08.10 - 09.20: 🇦🇪 Bahasa Arab",
			"09.40 - 10.50: 📐 MTK",
			"10.50 - 12.00: 🕌 PAI",
			"13.00 - 13.35: 🕋 Muhammadiyah",
			"13.35 - 14.45: 💼 PKK",
		},
	},
	time.Thursday: {
		day:            "Kamis",
		uniform:        "Seragam Batik-Hijau",
		specialUniform: "Wearpack (Baju Bengkel)",
		subjects: []string{
			"07.00 - 10.15: 🔧 Bengkel Adi",
			"10.15 - 14.45: 🔩 Bengkel Yahya",
		},
	},
	time.Friday: {
		day:     "Jum'at",
		uniform: "Baju Muslim (Koko) & Celana Abu",
		subjects: []string{
			"07.00 - 08.10: 📜 Sejarah",
			"08.10 - 09.20: 🇮🇩 PKN",
			"09.40 - 11.25: 🇮🇩 Bahasa Indonesia",
		},
	},
}

// scheduleFor renders the class schedule for one weekday; days without
// entries are holidays.
func scheduleFor(weekday time.Weekday) string {
	schedule, ok := weekSchedule[weekday]
	if !ok {
		return "🗓️ *Jadwal Hari Ini*\n\nLibur! Saatnya istirahat dan bersantai. ✨"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*🗓️ JADWAL HARI INI - %s*\n\n", strings.ToUpper(schedule.day))
	fmt.Fprintf(&sb, "*Seragam*: %s\n", schedule.uniform)
	if schedule.specialUniform != "" {
		fmt.Fprintf(&sb, "*Tambahan*: Jangan lupa bawa *%s*!\n", schedule.specialUniform)
	}
	sb.WriteString("\n*📚 Pelajaran & Buku:*\n")
	for _, subject := range schedule.subjects {
		fmt.Fprintf(&sb, "• %s\n", subject)
	}
	sb.WriteString("\nSemangat untuk hari ini! 💪")
	return sb.String()
}

func (d *Dispatcher) handleSchedule(ctx context.Context, msg *models.InboundMessage, args []string, user *models.User) error {
	d.reply(ctx, msg.ChatID, scheduleFor(d.now().In(wib).Weekday()))
	return nil
}
