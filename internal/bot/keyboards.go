package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/users"
)

const (
	btnCheck      = "🔍 Проверка УЗК/ППСД"
	btnInspection = "📋 Инспекция"
	btnNotify     = "🔔 Уведомления"
	btnImport     = "📥 Импорт чек-листов"
	btnTemplate   = "📄 Шаблон чек-листа"
)

// replyKeyboard Нижняя панель по роли
func replyKeyboard(role users.Role) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		{tgbotapi.NewKeyboardButton(btnCheck)},
	}
	if role == users.RoleQC || role == users.RoleAdmin || role == users.RoleLab {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnInspection)})
	}
	if role == users.RoleAdmin {
		rows = append(rows, []tgbotapi.KeyboardButton{
			tgbotapi.NewKeyboardButton(btnImport),
			tgbotapi.NewKeyboardButton(btnTemplate),
		})
	}
	rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(btnNotify)})
	return tgbotapi.ReplyKeyboardMarkup{ResizeKeyboard: true, Keyboard: rows}
}

// approveKeyboard — выбор роли админом для нового пользователя.
func approveKeyboard(userID int64) tgbotapi.InlineKeyboardMarkup {
	btn := func(title string, role users.Role) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(title, fmt.Sprintf("appr:%d:%s", userID, role))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("Склад", users.RoleWarehouse), btn("ОТК", users.RoleQC)),
		tgbotapi.NewInlineKeyboardRow(btn("Лаборатория", users.RoleLab), btn("Админ", users.RoleAdmin)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚫 Отклонить", fmt.Sprintf("rej:%d", userID)),
		),
	)
}

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Отменить", "nav:cancel"),
		),
	)
}

// inspectionKeyboard — кнопки по пунктам и действия над инспекцией.
// В работе каждый пункт получает строку ✅/❌/➖, критический — без «Н/П».
func inspectionKeyboard(in quality.Inspection) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	data := func(itemID int64, r quality.Result) string {
		return fmt.Sprintf("res:%d:%d:%s", in.ID, itemID, r)
	}

	switch in.Status {
	case quality.InspectionPending:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Начать", fmt.Sprintf("start:%d", in.ID)),
		))
	case quality.InspectionInProgress:
		for _, it := range in.Results {
			row := tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d ✅", it.Order), data(it.ID, quality.ResultPassed)),
				tgbotapi.NewInlineKeyboardButtonData("❌", data(it.ID, quality.ResultFailed)),
			)
			if !it.Critical {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("➖", data(it.ID, quality.ResultNA)))
			}
			rows = append(rows, row)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏁 Завершить", fmt.Sprintf("done:%d", in.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📊 Отчёт", fmt.Sprintf("rep:%d", in.ID)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
