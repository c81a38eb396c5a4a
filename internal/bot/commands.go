package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/metalqms/internal/dialog"
	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/domain/users"
	"github.com/Spok95/metalqms/internal/workflow"
)

func telegramOf(u *tgbotapi.User) users.Telegram {
	return users.Telegram{ID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}

// userError — текст ошибки для пользователя. Неизвестные ошибки логируются.
func (b *Bot) userError(err error) string {
	switch {
	case workflow.IsNotFound(err):
		return "Не найдено."
	case errors.Is(err, quality.ErrInvalidInspectionStatus):
		return "Инспекция в другом статусе, действие недоступно."
	case errors.Is(err, receipts.ErrInvalidTransition):
		return "Такой переход статуса поступления недопустим."
	case errors.Is(err, quality.ErrInvalidResult), errors.Is(err, quality.ErrBadChecklistFile),
		errors.Is(err, quality.ErrItemNotFound), errors.Is(err, workflow.ErrInvalidRequest):
		return "Ошибка: " + err.Error()
	case workflow.IsConflict(err):
		return "Такая запись уже есть."
	}
	b.log.Error("bot action failed", "err", err)
	return "Внутренняя ошибка, попробуйте позже."
}

// activeUser — подтверждённый пользователь или nil с ответом в чат.
func (b *Bot) activeUser(ctx context.Context, chatID, tgID int64) *users.User {
	u, err := b.svc.UserByTelegram(ctx, tgID)
	if err != nil {
		if workflow.IsNotFound(err) {
			b.reply(chatID, "Сначала зарегистрируйтесь: /start")
		} else {
			b.reply(chatID, b.userError(err))
		}
		return nil
	}
	if !u.Active {
		b.reply(chatID, "Ваша учётная запись ещё не подтверждена администратором.")
		return nil
	}
	return u
}

func canInspect(u *users.User) bool { return u.Role == users.RoleQC || u.Role == users.RoleAdmin }

func canView(u *users.User) bool { return canInspect(u) || u.Role == users.RoleLab }

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	tgID := msg.From.ID
	args := msg.CommandArguments()

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
		return

	case "help":
		b.reply(chatID, helpText)
		return

	case "cancel":
		b.resetState(ctx, chatID)
		b.reply(chatID, "Отменено.")
		return
	}

	u := b.activeUser(ctx, chatID, tgID)
	if u == nil {
		return
	}

	switch msg.Command() {
	case "check":
		grade, size, ok := parseCheckArgs(args)
		if !ok {
			b.reply(chatID, "Формат: /check <марка> <размер>, например /check 12X18H10T лист 20мм")
			return
		}
		b.showCheck(chatID, grade, size)

	case "inspection":
		id, ok := parseID(args)
		if !ok {
			b.reply(chatID, "Формат: /inspection <id>")
			return
		}
		if !canView(u) {
			b.reply(chatID, "Доступ запрещён.")
			return
		}
		b.showInspection(ctx, chatID, id)

	case "report":
		id, ok := parseID(args)
		if !ok {
			b.reply(chatID, "Формат: /report <id>")
			return
		}
		b.sendReport(ctx, chatID, id)

	case "notify_on", "notify_off":
		on := msg.Command() == "notify_on"
		if err := b.svc.SetNotifications(ctx, u.ID, on); err != nil {
			b.reply(chatID, b.userError(err))
			return
		}
		if on {
			b.reply(chatID, "🔔 Уведомления включены.")
		} else {
			b.reply(chatID, "🔕 Уведомления выключены.")
		}

	default:
		b.reply(chatID, "Не знаю такую команду. Наберите /help")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	reg, err := b.svc.RegisterTelegram(ctx, telegramOf(msg.From), b.adminChat != 0 && msg.From.ID == b.adminChat)
	if err != nil {
		b.reply(chatID, "Ошибка: не удалось сохранить профиль")
		b.log.Error("register telegram user", "tg_id", msg.From.ID, "err", err)
		return
	}
	b.resetState(ctx, chatID)

	if reg.PendingApproval {
		b.reply(chatID, "Заявка на доступ отправлена администратору. Дождитесь подтверждения.")
		if b.adminChat != 0 {
			m := tgbotapi.NewMessage(b.adminChat, formatApprovalRequest(*reg.User))
			m.ReplyMarkup = approveKeyboard(reg.User.ID)
			b.send(m)
		}
		return
	}

	m := tgbotapi.NewMessage(chatID, fmt.Sprintf("Здравствуйте, %s! Роль: %s.\n\n%s",
		reg.User.DisplayName(), roleTitle(reg.User.Role), helpText))
	m.ReplyMarkup = replyKeyboard(reg.User.Role)
	b.send(m)
}

func (b *Bot) handleStateMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	u := b.activeUser(ctx, chatID, msg.From.ID)
	if u == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)

	// Нижняя панель
	switch text {
	case btnCheck:
		b.setState(ctx, chatID, dialog.StateAwaitCheck, nil)
		m := tgbotapi.NewMessage(chatID, "Введите марку и размер через пробел, например: 40X ⌀80")
		m.ReplyMarkup = cancelKeyboard()
		b.send(m)
		return
	case btnInspection:
		if !canView(u) {
			return
		}
		b.setState(ctx, chatID, dialog.StateAwaitInspection, nil)
		m := tgbotapi.NewMessage(chatID, "Введите номер инспекции.")
		m.ReplyMarkup = cancelKeyboard()
		b.send(m)
		return
	case btnNotify:
		on := !u.TelegramEnabled
		if err := b.svc.SetNotifications(ctx, u.ID, on); err != nil {
			b.reply(chatID, b.userError(err))
			return
		}
		if on {
			b.reply(chatID, "🔔 Уведомления включены.")
		} else {
			b.reply(chatID, "🔕 Уведомления выключены.")
		}
		return
	case btnImport:
		if u.Role != users.RoleAdmin {
			return
		}
		b.setState(ctx, chatID, dialog.StateAwaitChecklistFile, nil)
		m := tgbotapi.NewMessage(chatID, "Пришлите .xlsx с чек-листами (формат как в шаблоне).")
		m.ReplyMarkup = cancelKeyboard()
		b.send(m)
		return
	case btnTemplate:
		if u.Role != users.RoleAdmin {
			return
		}
		b.sendTemplate(chatID)
		return
	}

	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Error("load dialog state", "chat_id", chatID, "err", err)
		return
	}

	switch st.State {
	case dialog.StateAwaitCheck:
		grade, size, ok := parseCheckArgs(text)
		if !ok {
			b.reply(chatID, "Нужно два значения: марка и размер.")
			return
		}
		b.resetState(ctx, chatID)
		b.showCheck(chatID, grade, size)

	case dialog.StateAwaitInspection:
		id, ok := parseID(text)
		if !ok {
			b.reply(chatID, "Нужен номер инспекции, например 12.")
			return
		}
		b.resetState(ctx, chatID)
		b.showInspection(ctx, chatID, id)

	case dialog.StateAwaitFailNote:
		inID, _ := dialog.GetInt64(st.Payload, "inspection_id")
		itemID, _ := dialog.GetInt64(st.Payload, "item_id")
		if text == "" {
			b.reply(chatID, "Опишите несоответствие текстом.")
			return
		}
		_, err := b.svc.RecordResult(ctx, inID, itemID, quality.ResultInput{Result: quality.ResultFailed, Notes: text})
		if err != nil {
			b.reply(chatID, b.userError(err))
			return
		}
		b.resetState(ctx, chatID)
		b.showInspection(ctx, chatID, inID)

	case dialog.StateAwaitChecklistFile:
		if msg.Document == nil {
			b.reply(chatID, "Жду файл .xlsx.")
			return
		}
		b.importChecklists(ctx, chatID, msg.Document.FileID)

	default:
		b.reply(chatID, "Не понимаю. Наберите /help")
	}
}

func (b *Bot) showCheck(chatID int64, grade, size string) {
	c := b.svc.Check(materials.Descriptor{Grade: grade, Size: size})
	b.reply(chatID, formatCheck(grade, size, c))
}

func (b *Bot) showInspection(ctx context.Context, chatID, id int64) {
	in, err := b.svc.GetInspection(ctx, id)
	if err != nil {
		b.reply(chatID, b.userError(err))
		return
	}
	m := tgbotapi.NewMessage(chatID, formatInspection(*in))
	m.ReplyMarkup = inspectionKeyboard(*in)
	b.send(m)
}

func (b *Bot) sendReport(ctx context.Context, chatID, id int64) {
	data, err := b.svc.Report(ctx, id)
	if err != nil {
		b.reply(chatID, b.userError(err))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("inspection_%d.xlsx", id),
		Bytes: data,
	})
	doc.Caption = fmt.Sprintf("Отчёт по инспекции #%d", id)
	b.send(doc)
}

func (b *Bot) sendTemplate(chatID int64) {
	data, err := quality.ChecklistTemplate()
	if err != nil {
		b.reply(chatID, b.userError(err))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "checklists_template.xlsx", Bytes: data})
	doc.Caption = "critical: да/нет. Пустая марка — универсальный чек-лист."
	b.send(doc)
}

func (b *Bot) importChecklists(ctx context.Context, chatID int64, fileID string) {
	data, err := b.downloadTelegramFile(ctx, fileID)
	if err != nil {
		b.log.Error("download checklist file", "err", err)
		b.reply(chatID, "Не удалось скачать файл.")
		return
	}
	lists, err := quality.ParseChecklists(bytes.NewReader(data))
	if err != nil {
		b.reply(chatID, b.userError(err))
		return
	}
	if err := b.svc.ImportChecklists(ctx, lists); err != nil {
		b.reply(chatID, b.userError(err))
		return
	}
	b.resetState(ctx, chatID)

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Загружено чек-листов: %d", len(lists))
	for _, c := range lists {
		grade := c.Grade
		if c.Universal() {
			grade = "все марки"
		}
		fmt.Fprintf(&sb, "\n  • %s v%s (%s), пунктов: %d", c.Name, c.Version, grade, len(c.Items))
	}
	b.reply(chatID, sb.String())
}
