package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

const (
	btnStatus     = "📊 Статус"
	btnPay        = "💰 Оплатить"
	btnAdminPanel = "👨‍💼 Админ-панель"
	btnUserPanel  = "👤 Пользовательская панель"

	btnUsers     = "👥 Список пользователей"
	btnStats     = "📈 Статистика оплат"
	btnByMonth   = "📅 Оплаты по месяцам"
	btnBroadcast = "📢 Отправить уведомление"
	btnReview    = "✅ Подтвердить оплаты"
	btnDeletion  = "❌ Удалить оплаты"
	btnUnpaid    = "🔍 Неоплатившие пользователи"
)

func userKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStatus),
			tgbotapi.NewKeyboardButton(btnPay),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAdminPanel),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func adminKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnUsers),
			tgbotapi.NewKeyboardButton(btnStats),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnByMonth),
			tgbotapi.NewKeyboardButton(btnBroadcast),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnReview),
			tgbotapi.NewKeyboardButton(btnDeletion),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnUnpaid),
			tgbotapi.NewKeyboardButton(btnUserPanel),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
