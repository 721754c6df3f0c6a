package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/period"
)

// RunReminderWorker ticks until ctx is cancelled. On the first day of each
// month it reminds every user without a confirmed payment for the current
// month. One sweep per calendar day; extra ticks the same day are no-ops,
// and any failed tick is retried on the next one.
func (h *Handler) RunReminderWorker(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweepReminders(ctx, time.Now().In(h.loc))
		}
	}
}

func (h *Handler) sweepReminders(ctx context.Context, now time.Time) {
	if now.Day() != 1 {
		return
	}

	today := now.Format("2006-01-02")
	h.mu.Lock()
	done := h.lastSweep == today
	h.mu.Unlock()
	if done {
		return
	}

	month := period.Current(now).String()
	users, err := h.svc.UsersNeedingReminder(ctx, month)
	if err != nil {
		// Leave lastSweep unset: the next tick retries.
		log.Printf("reminder sweep: %v", err)
		return
	}

	for _, u := range users {
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Оплатить", fmt.Sprintf("pay:1:%s", month)),
			),
		)
		msg := tgbotapi.NewMessage(u.ID, fmt.Sprintf("Привет! Напоминаем об оплате за %s.", month))
		msg.ReplyMarkup = kb
		if h.sendDM(ctx, u.ID, msg) {
			log.Printf("отправлено напоминание пользователю %s (ID: %d)", u.Username, u.ID)
		}
	}

	h.mu.Lock()
	h.lastSweep = today
	h.mu.Unlock()
}
