package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/bot"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/config"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/db"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/repo"
	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/service"
)

func main() {
	cfg := config.MustLoad()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("timezone %q: %v", cfg.Timezone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := db.MustConnect(ctx, cfg.DatabaseURL)
	defer pool.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("bot init: %v", err)
	}
	botAPI.Debug = false

	rUsers := repo.NewUsers(pool)
	rClaims := repo.NewClaims(pool)
	svc := service.New(rClaims, rUsers, cfg.MonthlyPriceCents)

	h := bot.NewHandler(botAPI, cfg, loc, svc, rUsers, rClaims)

	// Graceful shutdown
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	// Run migrations automatically on start (simple approach)
	if err := db.ApplyMigrations(ctx, pool, "./migrations"); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// Monthly reminders worker
	go h.RunReminderWorker(ctx, time.Hour)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)

	log.Printf("payment reminder bot started as @%s", botAPI.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			log.Println("shutdown")
			return
		case upd := <-updates:
			h.HandleUpdate(ctx, upd)
		}
	}
}
