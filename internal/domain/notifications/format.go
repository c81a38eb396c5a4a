package notifications

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func unitTitle(u string) string {
	switch u {
	case "kg":
		return "кг"
	case "pcs":
		return "шт"
	case "meters":
		return "м"
	}
	return u
}

// Format — текст уведомления для Telegram (без разметки).
func Format(ev StatusChanged, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	m := ev.Material

	var b strings.Builder
	if ev.Urgent() {
		b.WriteString("🚨 СРОЧНО! 🚨\n\n")
	}
	b.WriteString("🔄 Изменение статуса материала\n\n")
	fmt.Fprintf(&b, "📦 Материал: %s\n", m.Grade)
	if m.Supplier != "" {
		fmt.Fprintf(&b, "🏭 Поставщик: %s\n", m.Supplier)
	}
	if m.Certificate != "" {
		fmt.Fprintf(&b, "📄 Сертификат: %s\n", m.Certificate)
	}
	if m.Heat != "" {
		fmt.Fprintf(&b, "🔥 Плавка: %s\n", m.Heat)
	}
	fmt.Fprintf(&b, "📏 Размер: %s\n", m.Size)
	fmt.Fprintf(&b, "⚖️ Количество: %s %s\n", strconv.FormatFloat(m.Quantity, 'f', -1, 64), unitTitle(m.Unit))
	if ev.DocumentNumber != "" {
		fmt.Fprintf(&b, "🧾 Документ: %s\n", ev.DocumentNumber)
	}

	fmt.Fprintf(&b, "\n📊 Статус изменён:\n%s %s → %s %s\n\n",
		ev.Old.Emoji(), ev.Old.Title(), ev.New.Emoji(), ev.New.Title())
	fmt.Fprintf(&b, "🕐 Время: %s", ev.At.In(loc).Format("02.01.2006 15:04"))
	return b.String()
}
