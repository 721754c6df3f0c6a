package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken          string
	DatabaseURL       string
	AdminID           int64
	Timezone          string
	MonthlyPriceCents int64
}

func MustLoad() Config {
	_ = godotenv.Load()

	bt := os.Getenv("BOT_TOKEN")
	if bt == "" {
		log.Fatal("BOT_TOKEN is required")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	adminRaw := os.Getenv("ADMIN_ID")
	if adminRaw == "" {
		log.Fatal("ADMIN_ID is required")
	}
	adminID, err := strconv.ParseInt(adminRaw, 10, 64)
	if err != nil {
		log.Fatalf("ADMIN_ID must be a telegram user id: %v", err)
	}

	tz := os.Getenv("TZ")
	if tz == "" {
		tz = "Europe/Moscow"
	}

	// 100 RUB per month by default.
	price := int64(10000)
	if raw := os.Getenv("MONTHLY_PRICE_CENTS"); raw != "" {
		price, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || price <= 0 {
			log.Fatalf("MONTHLY_PRICE_CENTS must be a positive integer, got %q", raw)
		}
	}

	return Config{
		BotToken:          bt,
		DatabaseURL:       dsn,
		AdminID:           adminID,
		Timezone:          tz,
		MonthlyPriceCents: price,
	}
}
