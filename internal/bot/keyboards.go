package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/support-bot/internal/models"
)

var numberEmojis = map[int]string{
	1: "1️⃣",
	2: "2️⃣",
	3: "3️⃣",
	4: "4️⃣",
	5: "5️⃣",
	6: "6️⃣",
	7: "7️⃣",
	8: "8️⃣",
	9: "9️⃣",
}

func numberLabel(i int) string {
	if emoji, ok := numberEmojis[i]; ok {
		return emoji
	}
	return fmt.Sprintf("%d.", i)
}

// userMenuKeyboard is the main menu for regular users: one button per
// category, newest category first.
func userMenuKeyboard(categories []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(categories))
	for _, category := range categories {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(category)))
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func adminMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(actionNewMailing),
			tgbotapi.NewKeyboardButton(actionImageMailing),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(actionStatistics),
			tgbotapi.NewKeyboardButton(actionUnread),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// categoryKeyboard lists the category's prepared questions as numbered text
// with matching number buttons. Long questions don't fit on buttons, so the
// question text lives above the keyboard and the buttons carry only numbers.
func categoryKeyboard(entries []models.PreparedEntry) (string, tgbotapi.InlineKeyboardMarkup) {
	var lines []string
	var row []tgbotapi.InlineKeyboardButton
	var rows [][]tgbotapi.InlineKeyboardButton

	for i, entry := range entries {
		label := numberLabel(i + 1)
		lines = append(lines, label+" "+entry.Text)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, entry.MatchKey))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✍️ Ask your own question", callbackAskQuestion),
	))

	return strings.Join(lines, "\n"), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func rateKeyboard(ticketID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍", fmt.Sprintf("like_%d", ticketID)),
			tgbotapi.NewInlineKeyboardButtonData("👎", fmt.Sprintf("dislike_%d", ticketID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Ask another question 🗣", callbackAskAgain),
		),
	)
}

func mailingKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", callbackMailingCancel),
			tgbotapi.NewInlineKeyboardButtonData("✅ Send", callbackMailingSend),
		),
	)
}
