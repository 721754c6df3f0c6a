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

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/domain"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/period"
)

func (h *Handler) handleAdminAction(ctx context.Context, chatID int64, action string) {
	switch action {
	case btnUsers:
		h.adminListUsers(ctx, chatID)
	case btnStats:
		h.adminStats(ctx, chatID)
	case btnByMonth:
		h.adminByMonth(ctx, chatID)
	case btnBroadcast:
		h.setPending(chatID, pendingInput{kind: "broadcast"})
		h.reply(chatID, "Введите текст уведомления для отправки всем пользователям:")
	case btnReview:
		h.adminReviewPending(ctx, chatID)
	case btnDeletion:
		h.adminDeletionMenu(ctx, chatID)
	case btnUnpaid:
		h.adminUnpaid(ctx, chatID)
	}
}

func (h *Handler) handleAdminCallback(ctx context.Context, q *tgbotapi.CallbackQuery, verb, arg string) bool {
	switch verb {
	case "cfm":
		ids, ok := parseIDs(arg)
		if !ok {
			return false
		}
		if err := h.svc.Confirm(ctx, ids); err != nil {
			log.Printf("confirm %v: %v", ids, err)
			_, _ = h.api.Request(tgbotapi.NewCallbackWithAlert(q.ID, "Не все оплаты удалось подтвердить."))
			return true
		}
		h.clearMarkup(q)
		h.reply(q.Message.Chat.ID, "Оплата успешно подтверждена.")
		_, _ = h.api.Request(tgbotapi.NewCallback(q.ID, "Оплата подтверждена."))
		return true

	case "rej":
		ids, ok := parseIDs(arg)
		if !ok {
			return false
		}
		h.setPending(q.Message.Chat.ID, pendingInput{kind: "reject", claimIDs: ids})
		h.clearMarkup(q)
		h.reply(q.Message.Chat.ID, "Введите комментарий для отклонения платежа:")
		return false

	case "del":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return false
		}
		if err := h.claims.Delete(ctx, id); err != nil {
			if errors.Is(err, domain.ErrClaimNotFound) {
				_, _ = h.api.Request(tgbotapi.NewCallbackWithAlert(q.ID, "Оплата уже удалена."))
			} else {
				log.Printf("delete claim %d: %v", id, err)
				_, _ = h.api.Request(tgbotapi.NewCallbackWithAlert(q.ID, "Не удалось удалить оплату (БД)."))
			}
			return true
		}
		h.clearMarkup(q)
		h.reply(q.Message.Chat.ID, "Оплата успешно удалена.")
		_, _ = h.api.Request(tgbotapi.NewCallback(q.ID, "Оплата удалена."))
		return true
	}
	return false
}

func (h *Handler) adminListUsers(ctx context.Context, chatID int64) {
	users, err := h.users.List(ctx)
	if err != nil {
		log.Printf("list users: %v", err)
		h.reply(chatID, "❌ Не удалось получить список пользователей (БД)")
		return
	}
	if len(users) == 0 {
		h.reply(chatID, "Пользователей пока нет.")
		return
	}

	var b strings.Builder
	b.WriteString("Список пользователей:\n\n")
	for _, u := range users {
		fmt.Fprintf(&b, "%s (ID: %d)\n", displayName(u.Username), u.ID)
	}
	h.reply(chatID, b.String())
}

func (h *Handler) adminStats(ctx context.Context, chatID int64) {
	rows, err := h.claims.ConfirmedStats(ctx)
	if err != nil {
		log.Printf("confirmed stats: %v", err)
		h.reply(chatID, "❌ Не удалось получить статистику (БД)")
		return
	}
	if len(rows) == 0 {
		h.reply(chatID, "Подтвержденных оплат пока нет.")
		return
	}

	var b strings.Builder
	b.WriteString("Статистика подтвержденных оплат:\n\n")
	var prev int64
	for _, r := range rows {
		if r.UserID != prev {
			if prev != 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s:\n", displayName(r.Username))
			prev = r.UserID
		}
		fmt.Fprintf(&b, " - %s: %s (%s)\n",
			r.CreatedAt.In(h.loc).Format("02.01.2006"), r.Month, formatMoney(r.AmountCents))
	}
	h.reply(chatID, b.String())
}

func (h *Handler) adminByMonth(ctx context.Context, chatID int64) {
	rows, err := h.claims.MonthlyConfirmedCounts(ctx)
	if err != nil {
		log.Printf("monthly counts: %v", err)
		h.reply(chatID, "❌ Не удалось получить оплаты по месяцам (БД)")
		return
	}
	if len(rows) == 0 {
		h.reply(chatID, "Подтвержденных оплат пока нет.")
		return
	}

	var b strings.Builder
	b.WriteString("Подтвержденные оплаты по месяцам:\n\n")
	prev := ""
	for _, r := range rows {
		if r.Month != prev {
			if prev != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s:\n", r.Month)
			prev = r.Month
		}
		fmt.Fprintf(&b, " - %s: %d\n", displayName(r.Username), r.Count)
	}
	h.reply(chatID, b.String())
}

// adminReviewPending sends one message per submitted purchase (user +
// submission time) with confirm/reject buttons covering the whole group.
func (h *Handler) adminReviewPending(ctx context.Context, chatID int64) {
	groups, err := h.claims.ListPendingGrouped(ctx)
	if err != nil {
		log.Printf("pending grouped: %v", err)
		h.reply(chatID, "❌ Не удалось получить оплаты (БД)")
		return
	}
	if len(groups) == 0 {
		h.reply(chatID, "Нет неподтвержденных оплат.")
		return
	}

	for _, g := range groups {
		ids := joinIDs(g.ClaimIDs)
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Подтвердить", "cfm:"+ids),
				tgbotapi.NewInlineKeyboardButtonData("Отклонить", "rej:"+ids),
			),
		)
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Оплата от %s (ID: %d)\nДата: %s\nМесяцы: %s\nОбщая сумма: %s",
			displayName(g.Username), g.UserID,
			g.CreatedAt.In(h.loc).Format("02.01.2006 15:04"),
			strings.Join(g.Months, ", "),
			formatMoney(g.TotalCents)))
		msg.ReplyMarkup = kb
		h.send(msg)
	}
}

func (h *Handler) adminDeletionMenu(ctx context.Context, chatID int64) {
	claims, err := h.claims.ListAll(ctx)
	if err != nil {
		log.Printf("list claims: %v", err)
		h.reply(chatID, "❌ Не удалось получить оплаты (БД)")
		return
	}
	if len(claims) == 0 {
		h.reply(chatID, "Нет оплат для удаления.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range claims {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s - %s (%s, %s)",
					displayName(c.Username), c.Month, formatMoney(c.AmountCents), c.Status),
				fmt.Sprintf("del:%d", c.ID)),
		})
	}

	msg := tgbotapi.NewMessage(chatID, "Выберите оплату для удаления:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.send(msg)
}

func (h *Handler) adminUnpaid(ctx context.Context, chatID int64) {
	month := period.Current(time.Now().In(h.loc)).String()
	users, err := h.svc.UsersNeedingReminder(ctx, month)
	if err != nil {
		log.Printf("unpaid users: %v", err)
		h.reply(chatID, "❌ Не удалось получить список (БД)")
		return
	}
	if len(users) == 0 {
		h.reply(chatID, "Все пользователи внесли оплату в текущем месяце.")
		return
	}

	var b strings.Builder
	b.WriteString("Пользователи, не внесшие оплату в текущем месяце:\n\n")
	for _, u := range users {
		fmt.Fprintf(&b, "- %s (ID: %d)\n", displayName(u.Username), u.ID)
	}
	h.reply(chatID, b.String())
}

func (h *Handler) broadcast(ctx context.Context, adminChatID int64, text string) {
	users, err := h.users.List(ctx)
	if err != nil {
		log.Printf("list users for broadcast: %v", err)
		h.reply(adminChatID, "❌ Не удалось получить пользователей (БД)")
		return
	}

	sent := 0
	for _, u := range users {
		if h.sendDM(ctx, u.ID, tgbotapi.NewMessage(u.ID, text)) {
			sent++
		}
	}
	h.reply(adminChatID, fmt.Sprintf("Уведомление отправлено пользователям: %d из %d.", sent, len(users)))
}

func (h *Handler) finishReject(ctx context.Context, adminChatID int64, ids []int64, comment string) {
	owner, err := h.svc.Reject(ctx, ids, comment)
	if err != nil {
		log.Printf("reject %v: %v", ids, err)
	}
	if owner == 0 {
		h.reply(adminChatID, "Ошибка при отклонении платежа.")
		return
	}
	h.reply(adminChatID, "Платеж отклонен.")

	retry := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Оплатить снова",
				fmt.Sprintf("pay:1:%s", period.Current(time.Now().In(h.loc)))),
		),
	)
	msg := tgbotapi.NewMessage(owner, fmt.Sprintf("Ваш платеж был отклонен. Комментарий: %s", comment))
	msg.ReplyMarkup = retry
	h.sendDM(ctx, owner, msg)
}

func parseIDs(arg string) ([]int64, bool) {
	parts := strings.Split(arg, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, len(ids) > 0
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
