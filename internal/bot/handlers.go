package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/config"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/repo"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/service"
)

// pendingInput is a two-step admin action awaiting its follow-up message
// (broadcast text or reject comment).
type pendingInput struct {
	kind     string // "broadcast" | "reject"
	claimIDs []int64
}

type Handler struct {
	api *tgbotapi.BotAPI
	cfg config.Config
	loc *time.Location

	svc    *service.Service
	users  *repo.Users
	claims *repo.Claims

	mu        sync.Mutex
	pending   map[int64]pendingInput // keyed by admin chat id
	lastSweep string                 // last reminder sweep date, "2006-01-02"
}

func NewHandler(api *tgbotapi.BotAPI, cfg config.Config, loc *time.Location, svc *service.Service, u *repo.Users, c *repo.Claims) *Handler {
	return &Handler{
		api:     api,
		cfg:     cfg,
		loc:     loc,
		svc:     svc,
		users:   u,
		claims:  c,
		pending: map[int64]pendingInput{},
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		h.HandleCallback(ctx, upd.CallbackQuery)
		return
	}

	if upd.Message == nil {
		return
	}

	msg := upd.Message
	// работаем только в личке
	if !msg.Chat.IsPrivate() {
		return
	}

	if err := h.users.Upsert(ctx, msg.From.ID, msg.From.UserName); err != nil {
		log.Printf("upsert user %d: %v", msg.From.ID, err)
		return
	}

	// Two-step admin inputs have priority over the menu.
	if h.takePendingInput(ctx, msg) {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/start") {
		h.replyKeyboard(msg.Chat.ID,
			"Привет! Я буду напоминать вам об оплате каждое первое число месяца.",
			userKeyboard())
		log.Printf("новый пользователь: %s (ID: %d)", msg.From.UserName, msg.From.ID)
		return
	}

	switch text {
	case btnStatus:
		h.handleStatus(ctx, msg.Chat.ID, msg.From.ID)
	case btnPay:
		h.handlePayMenu(ctx, msg.Chat.ID, msg.From.ID)
	case btnAdminPanel:
		if !h.isAdmin(msg.From.ID) {
			h.reply(msg.Chat.ID, "У вас нет доступа к админ-панели.")
			return
		}
		h.replyKeyboard(msg.Chat.ID, "Админ-панель:", adminKeyboard())
	case btnUserPanel:
		if !h.isAdmin(msg.From.ID) {
			h.reply(msg.Chat.ID, "У вас нет доступа к этой функции.")
			return
		}
		h.replyKeyboard(msg.Chat.ID, "Пользовательская панель:", userKeyboard())
	case btnUsers, btnStats, btnByMonth, btnBroadcast, btnReview, btnDeletion, btnUnpaid:
		if !h.isAdmin(msg.From.ID) {
			h.reply(msg.Chat.ID, "У вас нет доступа к этой функции.")
			return
		}
		h.handleAdminAction(ctx, msg.Chat.ID, text)
	}
}

func (h *Handler) HandleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// обязательно отвечаем Telegram
	answered := false
	defer func() {
		if !answered {
			_, _ = h.api.Request(tgbotapi.NewCallback(q.ID, ""))
		}
	}()

	parts := strings.SplitN(q.Data, ":", 2)
	if len(parts) < 2 {
		return
	}

	switch parts[0] {
	case "pay":
		answered = h.handlePaySelection(ctx, q, parts[1])
	case "paid":
		answered = h.handlePaidConfirmation(ctx, q, parts[1])
	case "cfm", "rej", "del":
		if !h.isAdmin(q.From.ID) {
			_, _ = h.api.Request(tgbotapi.NewCallback(q.ID, "У вас нет доступа к этой функции."))
			answered = true
			return
		}
		answered = h.handleAdminCallback(ctx, q, parts[0], parts[1])
	}
}

func (h *Handler) handleStatus(ctx context.Context, chatID, userID int64) {
	last, err := h.claims.LastConfirmed(ctx, userID)
	if err != nil {
		log.Printf("last confirmed for %d: %v", userID, err)
		h.reply(chatID, "❌ Не удалось получить статус (БД)")
		return
	}
	if last == nil {
		h.reply(chatID, "У вас еще нет подтвержденных оплат.")
		return
	}
	h.reply(chatID, fmt.Sprintf(
		"Ваша последняя подтвержденная оплата была %s за месяц %s.",
		last.CreatedAt.In(h.loc).Format("02.01.2006 15:04"), last.Month))
}

func (h *Handler) isAdmin(userID int64) bool { return userID == h.cfg.AdminID }

// takePendingInput consumes the follow-up message of a two-step admin
// action. Reports whether the message was consumed.
func (h *Handler) takePendingInput(ctx context.Context, msg *tgbotapi.Message) bool {
	if !h.isAdmin(msg.From.ID) {
		return false
	}

	h.mu.Lock()
	p, ok := h.pending[msg.Chat.ID]
	if ok {
		delete(h.pending, msg.Chat.ID)
	}
	h.mu.Unlock()
	if !ok {
		return false
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		h.reply(msg.Chat.ID, "Нужен текст. Действие отменено.")
		return true
	}

	switch p.kind {
	case "broadcast":
		h.broadcast(ctx, msg.Chat.ID, text)
	case "reject":
		h.finishReject(ctx, msg.Chat.ID, p.claimIDs, text)
	}
	return true
}

func (h *Handler) setPending(chatID int64, p pendingInput) {
	h.mu.Lock()
	h.pending[chatID] = p
	h.mu.Unlock()
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) replyKeyboard(chatID int64, text string, kb tgbotapi.ReplyKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	h.send(msg)
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		log.Printf("send: %v", err)
	}
}

// sendDM delivers a message to a user. A 403 means the user blocked the bot
// — permanently unreachable, so the user record (with its claims) is
// removed. Reports whether delivery succeeded.
func (h *Handler) sendDM(ctx context.Context, userID int64, c tgbotapi.Chattable) bool {
	_, err := h.api.Send(c)
	if err == nil {
		return true
	}

	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.Code == 403 {
		if e := h.users.Remove(ctx, userID); e != nil {
			log.Printf("remove blocked user %d: %v", userID, e)
		} else {
			log.Printf("пользователь %d удален из-за блокировки бота", userID)
		}
		return false
	}

	log.Printf("dm to %d: %v", userID, err)
	return false
}

func formatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d RUB", sign, cents/100, cents%100)
}

func displayName(u string) string {
	if u == "" {
		return "без имени"
	}
	return "@" + u
}
