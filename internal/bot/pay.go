package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/period"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/service"
)

const maxPurchaseMonths = 12

// handlePayMenu offers 1..12 months starting from the user's next payable
// month, each with its calendar span.
func (h *Handler) handlePayMenu(ctx context.Context, chatID, userID int64) {
	start, err := h.svc.NextPayable(ctx, userID, time.Now().In(h.loc))
	if err != nil {
		log.Printf("next payable for %d: %v", userID, err)
		h.reply(chatID, "❌ Не удалось подготовить оплату (БД)")
		return
	}

	spans := period.Enumerate(start, maxPurchaseMonths)
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 1; i <= maxPurchaseMonths; i++ {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d месяц(ев) (%s-%s)",
					i,
					spans[0].From.Format("02.01.2006"),
					spans[i-1].To.Format("02.01.2006")),
				fmt.Sprintf("pay:%d:%s", i, start),
			),
		})
	}

	text := "Выберите количество месяцев для оплаты:"
	if covered, err := h.claims.LastConfirmedMonth(ctx, userID); err == nil && covered != "" {
		if m, e := period.Parse(covered); e == nil {
			text = fmt.Sprintf("Ваша текущая подписка оплачена до %s. Выберите период для продления:",
				m.LastDay().Format("02.01.2006"))
		}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.send(msg)
}

// handlePaySelection validates the chosen period and asks the user to press
// the button once the money is sent. Nothing is written yet: abandoning the
// flow here leaves no trace.
func (h *Handler) handlePaySelection(ctx context.Context, q *tgbotapi.CallbackQuery, arg string) bool {
	n, start, ok := parsePeriodArg(arg)
	if !ok {
		return false
	}

	months := period.Labels(start, n)
	err := h.svc.Propose(ctx, q.From.ID, months)

	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		_, _ = h.api.Request(tgbotapi.NewCallbackWithAlert(q.ID, fmt.Sprintf(
			"У вас уже есть оплата за следующие месяцы: %s. Выберите другой период.",
			strings.Join(conflict.Months, ", "))))
		return true
	}
	if err != nil {
		log.Printf("propose for %d: %v", q.From.ID, err)
		_, _ = h.api.Request(tgbotapi.NewCallbackWithAlert(q.ID, "Ошибка, попробуйте позже."))
		return true
	}

	amount := h.svc.Quote(n)
	spans := period.Enumerate(start, n)
	displays := make([]string, 0, n)
	for _, s := range spans {
		displays = append(displays, s.Display())
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Оплатил",
				fmt.Sprintf("paid:%d:%d:%s", amount, n, start)),
		),
	)
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID,
		fmt.Sprintf("Сумма к оплате: %s за периоды: %s\nНажмите кнопку после оплаты:",
			formatMoney(amount), strings.Join(displays, ", ")))
	edit.ReplyMarkup = &kb
	h.send(edit)
	return false
}

// handlePaidConfirmation is the durable step: the months are re-validated
// and the pending claims written atomically.
func (h *Handler) handlePaidConfirmation(ctx context.Context, q *tgbotapi.CallbackQuery, arg string) bool {
	parts := strings.Split(arg, ":")
	if len(parts) != 3 {
		return false
	}
	amount, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || amount <= 0 {
		return false
	}
	n, start, ok := parsePeriodArg(parts[1] + ":" + parts[2])
	if !ok {
		return false
	}
	// The callback carries start+count, not the month list: Telegram caps
	// callback data at 64 bytes.
	months := period.Labels(start, n)

	ids, err := h.svc.Commit(ctx, q.From.ID, amount, months)

	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		_, _ = h.api.Request(tgbotapi.NewCallbackWithAlert(q.ID, fmt.Sprintf(
			"Оплата за месяцы %s уже существует. Платеж не создан.",
			strings.Join(conflict.Months, ", "))))
		h.clearMarkup(q)
		return true
	}
	if err != nil {
		log.Printf("commit for %d: %v", q.From.ID, err)
		_, _ = h.api.Request(tgbotapi.NewCallbackWithAlert(q.ID, "Ошибка, попробуйте позже."))
		return true
	}

	log.Printf("неподтвержденная оплата от %s (ID: %d) за месяцы: %s, claims=%v",
		q.From.UserName, q.From.ID, strings.Join(months, ", "), ids)

	_, _ = h.api.Request(tgbotapi.NewCallback(q.ID,
		"Спасибо за оплату! Администратор проверит и подтвердит её."))
	h.clearMarkup(q)

	h.reply(h.cfg.AdminID, fmt.Sprintf(
		"Новая оплата от пользователя %s (ID: %d) за месяцы: %s. Используйте «%s» для подтверждения.",
		displayName(q.From.UserName), q.From.ID, strings.Join(months, ", "), btnReview))
	return true
}

// parsePeriodArg parses "<n>:<YYYY-MM>" from callback data.
func parsePeriodArg(arg string) (int, period.Month, bool) {
	parts := strings.Split(arg, ":")
	if len(parts) != 2 {
		return 0, period.Month{}, false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n < 1 || n > maxPurchaseMonths {
		return 0, period.Month{}, false
	}
	start, err := period.Parse(parts[1])
	if err != nil {
		return 0, period.Month{}, false
	}
	return n, start, true
}

func (h *Handler) clearMarkup(q *tgbotapi.CallbackQuery) {
	h.send(tgbotapi.NewEditMessageReplyMarkup(
		q.Message.Chat.ID, q.Message.MessageID, tgbotapi.NewInlineKeyboardMarkup()))
}
