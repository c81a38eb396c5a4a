package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/metalqms/internal/dialog"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/users"
)

func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	kind, args := callbackArgs(cb.Data)

	if kind == "nav" {
		b.resetState(ctx, chatID)
		b.answerCallback(cb, "Отменено", false)
		b.editTextAndClear(chatID, cb.Message.MessageID, "Отменено.")
		return
	}

	u := b.activeUser(ctx, chatID, cb.From.ID)
	if u == nil {
		b.answerCallback(cb, "", false)
		return
	}

	ids := make([]int64, 0, len(args))
	for _, a := range args {
		if id, err := strconv.ParseInt(a, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		b.answerCallback(cb, "Некорректная кнопка", false)
		return
	}

	switch kind {
	case "appr", "rej":
		if u.Role != users.RoleAdmin {
			b.answerCallback(cb, "Только для администратора", true)
			return
		}
		b.onApproval(ctx, cb, kind, ids[0], args)

	case "start", "res", "done":
		if !canInspect(u) {
			b.answerCallback(cb, "Только для ОТК", true)
			return
		}
		b.onInspectionAction(ctx, cb, u, kind, ids, args)

	case "rep":
		b.answerCallback(cb, "Готовлю отчёт…", false)
		b.sendReport(ctx, chatID, ids[0])

	default:
		b.answerCallback(cb, "", false)
	}
}

func (b *Bot) onApproval(ctx context.Context, cb *tgbotapi.CallbackQuery, kind string, userID int64, args []string) {
	chatID, mid := cb.Message.Chat.ID, cb.Message.MessageID

	if kind == "rej" {
		if err := b.svc.DeactivateUser(ctx, userID); err != nil {
			b.answerCallback(cb, b.userError(err), true)
			return
		}
		b.answerCallback(cb, "Отклонено", false)
		b.editTextAndClear(chatID, mid, fmt.Sprintf("🚫 Пользователь #%d отклонён.", userID))
		return
	}

	if len(args) < 2 {
		b.answerCallback(cb, "Некорректная кнопка", false)
		return
	}
	role := users.Role(args[1])
	target, err := b.svc.ApproveUser(ctx, userID, role)
	if err != nil {
		b.answerCallback(cb, b.userError(err), true)
		return
	}
	b.answerCallback(cb, "Подтверждено", false)
	b.editTextAndClear(chatID, mid, fmt.Sprintf("✅ %s: роль «%s».", target.DisplayName(), roleTitle(role)))

	if target.TelegramID != 0 {
		m := tgbotapi.NewMessage(target.TelegramID,
			fmt.Sprintf("Доступ подтверждён. Роль: %s.\n\n%s", roleTitle(role), helpText))
		m.ReplyMarkup = replyKeyboard(role)
		b.send(m)
	}
}

func (b *Bot) onInspectionAction(ctx context.Context, cb *tgbotapi.CallbackQuery, u *users.User, kind string, ids []int64, args []string) {
	chatID, mid := cb.Message.Chat.ID, cb.Message.MessageID
	inID := ids[0]

	switch kind {
	case "start":
		in, err := b.svc.StartInspection(ctx, inID, u.ID)
		if err != nil {
			b.answerCallback(cb, b.userError(err), true)
			return
		}
		b.answerCallback(cb, "Инспекция начата", false)
		b.editInspection(chatID, mid, *in)

	case "res":
		if len(ids) < 2 || len(args) < 3 {
			b.answerCallback(cb, "Некорректная кнопка", false)
			return
		}
		itemID, result := ids[1], quality.Result(args[2])
		if result == quality.ResultFailed {
			// без комментария несоответствие не принимается
			b.setState(ctx, chatID, dialog.StateAwaitFailNote, dialog.Payload{
				"inspection_id": inID,
				"item_id":       itemID,
			})
			b.answerCallback(cb, "", false)
			m := tgbotapi.NewMessage(chatID, "Опишите несоответствие одним сообщением.")
			m.ReplyMarkup = cancelKeyboard()
			b.send(m)
			return
		}
		if _, err := b.svc.RecordResult(ctx, inID, itemID, quality.ResultInput{Result: result}); err != nil {
			b.answerCallback(cb, b.userError(err), true)
			return
		}
		b.answerCallback(cb, result.Title(), false)
		if in, err := b.svc.GetInspection(ctx, inID); err == nil {
			b.editInspection(chatID, mid, *in)
		}

	case "done":
		out, err := b.svc.CompleteInspection(ctx, inID, u.ID)
		if err != nil {
			b.answerCallback(cb, b.userError(err), true)
			return
		}
		b.answerCallback(cb, "Инспекция завершена", false)
		b.editInspection(chatID, mid, *out.Inspection)
		b.reply(chatID, formatCompletion(out))
	}
}

func (b *Bot) editInspection(chatID int64, messageID int, in quality.Inspection) {
	b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, formatInspection(in), inspectionKeyboard(in)))
}

func (b *Bot) editTextAndClear(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		chatID, messageID, text,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	b.send(edit)
}
