package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/requirements"
	"github.com/Spok95/metalqms/internal/domain/users"
	"github.com/Spok95/metalqms/internal/workflow"
)

const helpText = `Команды:
/start — регистрация и меню
/check <марка> <размер> — нужны ли УЗК и ППСД, например: /check 40X ⌀80
/inspection <id> — карточка инспекции
/report <id> — отчёт по инспекции в Excel
/notify_on, /notify_off — уведомления о смене статусов
/help — помощь`

// parseCheckArgs — первое слово марка, остальное размер.
func parseCheckArgs(s string) (grade, size string, ok bool) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i <= 0 {
		return "", "", false
	}
	grade, size = s[:i], strings.TrimSpace(s[i+1:])
	return grade, size, size != ""
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	return id, err == nil && id > 0
}

// callbackArgs разбирает "kind:a:b:c" на вид и аргументы.
func callbackArgs(data string) (string, []string) {
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}

func requirementLine(title string, r requirements.Result) string {
	var sb strings.Builder
	mark := "➖ не требуется"
	if r.Required {
		mark = "⚠️ ТРЕБУЕТСЯ"
	}
	fmt.Fprintf(&sb, "%s: %s", title, mark)
	for _, reason := range r.Reasons {
		sb.WriteString("\n  • " + reason)
	}
	return sb.String()
}

func formatCheck(grade, size string, c workflow.Check) string {
	return fmt.Sprintf("🔩 %s, %s\n\n%s\n%s", grade, size,
		requirementLine("УЗК", c.Ultrasonic),
		requirementLine("ППСД", c.Ppsd))
}

func resultMark(r quality.Result) string {
	switch r {
	case quality.ResultPassed:
		return "✅"
	case quality.ResultFailed:
		return "❌"
	case quality.ResultNA:
		return "➖"
	}
	return "⏳"
}

func formatInspection(in quality.Inspection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Инспекция #%d (поступление #%d)\n", in.ID, in.ReceiptID)
	fmt.Fprintf(&sb, "Статус: %s, выполнено %.1f%%\n", in.Status.Title(), in.CompletionPercentage())
	if in.RequiresUltrasonic {
		sb.WriteString("⚠️ Требуется УЗК\n")
	}
	if in.RequiresPpsd {
		sb.WriteString("⚠️ Требуется ППСД\n")
	}
	if len(in.Results) == 0 {
		sb.WriteString("\nЧек-лист не назначен.")
		return sb.String()
	}
	sb.WriteString("\n")
	for _, it := range in.Results {
		crit := ""
		if it.Critical {
			crit = " ❗"
		}
		fmt.Fprintf(&sb, "%s %d. %s%s", resultMark(it.Result), it.Order, it.Description, crit)
		if it.Notes != "" {
			fmt.Fprintf(&sb, " — %s", it.Notes)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCompletion(out *workflow.CompletionOutcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏁 Инспекция #%d завершена.\nПоступление: %s %s",
		out.Inspection.ID, out.Receipt.Status.Emoji(), out.Receipt.Status.Title())
	if len(out.CriticalFailures) > 0 {
		sb.WriteString("\n\nКритические несоответствия:")
		for _, it := range out.CriticalFailures {
			fmt.Fprintf(&sb, "\n  • %d. %s", it.Order, it.Description)
		}
	}
	if len(out.LabRequests) > 0 {
		sb.WriteString("\n\nЗаявки в лабораторию:")
		for _, l := range out.LabRequests {
			fmt.Fprintf(&sb, "\n  • %s", l.TestType.Title())
		}
	}
	for _, w := range out.Warnings {
		fmt.Fprintf(&sb, "\n⚠️ %s", w)
	}
	return sb.String()
}

func formatApprovalRequest(u users.User) string {
	return fmt.Sprintf("Новый пользователь: %s (tg %d). Назначьте роль.", u.DisplayName(), u.TelegramID)
}

func roleTitle(r users.Role) string {
	switch r {
	case users.RoleWarehouse:
		return "Склад"
	case users.RoleQC:
		return "ОТК"
	case users.RoleLab:
		return "Лаборатория"
	case users.RoleAdmin:
		return "Администратор"
	}
	return string(r)
}
