package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rakhadenta/digistore-golang/internal/handlers"
	"github.com/rakhadenta/digistore-golang/internal/middleware"
)

// CORSMiddleware tells the browser that the storefront and admin-console
// frontends are allowed to send data to us.
func CORSMiddleware() gin.HandlerFunc {
	allowedOrigin := os.Getenv("CORS_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:5173"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Handle the "Preflight" OPTIONS request.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	// CORS must be the very first thing the router uses.
	router.Use(CORSMiddleware())

	// Uploaded proof images are served statically.
	router.Static("/uploads", "./uploads")

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/login", h.Login)

		// --- Payment Confirmation Routes (Public, customer-facing) ---
		v1.POST("/upload", h.UploadProofImage)
		v1.POST("/qris-confirmation", h.SubmitConfirmation)
		v1.GET("/qris-confirmation", h.GetConfirmationsByOrderNumber)

		// --- Telegram Webhook (Public; Telegram calls this) ---
		v1.POST("/telegram/webhook", h.HandleTelegramWebhook)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			// --- Notification Routes ---
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware())
		admin.Use(middleware.AdminMiddleware(h.DB))
		{
			admin.GET("/qris-confirmations", h.ListConfirmations)
			admin.PATCH("/qris-confirmations", h.ProcessConfirmation)
		}
	}

	return router
}
