package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rakhadenta/digistore-golang/internal/database"
	"github.com/rakhadenta/digistore-golang/internal/email"
	"github.com/rakhadenta/digistore-golang/internal/fulfillment"
	"github.com/rakhadenta/digistore-golang/internal/handlers"
	"github.com/rakhadenta/digistore-golang/internal/routes"
	"github.com/rakhadenta/digistore-golang/internal/telegram"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 2. --- Telegram Bot Client ---
	// An empty token just disables the alerts; the pipeline still works
	// through the admin console.
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	adminChatID := os.Getenv("TELEGRAM_ADMIN_CHAT_ID")
	if botToken == "" {
		log.Println("WARNING: TELEGRAM_BOT_TOKEN is not set. Telegram alerts are disabled.")
	}
	bot := telegram.NewClient(botToken, adminChatID)

	// --- Application Setup ---
	// We inject ALL dependencies into the Handlers struct.
	app := &handlers.Handlers{
		DB:       db,
		Telegram: bot,
		Mailer:   email.NewSender(),
		Resolver: fulfillment.NewResolver(db),
	}

	// --- 3. Background Worker ---
	// Nudges the admin chat about confirmations that have been waiting for
	// review for too long.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Println("🕒 Background Worker Started: Monitoring for stale pending confirmations...")

		for range ticker.C {
			app.RemindPendingConfirmations()
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting DigiStore API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
