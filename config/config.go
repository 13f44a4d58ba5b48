package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	DB_URL     string
	JWT_SECRET string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string

	FRONTEND_URL string

	STRIPE_PRICE_BASIC_MONTHLY   string
	STRIPE_PRICE_PREMIUM_MONTHLY string
	STRIPE_PRICE_PREMIUM_ANNUAL  string
	STRIPE_PRICE_ELITE_MONTHLY   string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")

	STRIPE_SECRET_KEY = mustEnv("STRIPE_SECRET_KEY")
	STRIPE_WEBHOOK_SECRET = mustEnv("STRIPE_WEBHOOK_SECRET")

	FRONTEND_URL = getEnv("FRONTEND_URL", "http://localhost:5173")

	// Price ids assigned in the Stripe dashboard. Elite is optional because
	// not every environment sells it.
	STRIPE_PRICE_BASIC_MONTHLY = mustEnv("STRIPE_PRICE_BASIC_MONTHLY")
	STRIPE_PRICE_PREMIUM_MONTHLY = mustEnv("STRIPE_PRICE_PREMIUM_MONTHLY")
	STRIPE_PRICE_PREMIUM_ANNUAL = mustEnv("STRIPE_PRICE_PREMIUM_ANNUAL")
	STRIPE_PRICE_ELITE_MONTHLY = getEnv("STRIPE_PRICE_ELITE_MONTHLY", "")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
