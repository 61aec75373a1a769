package api

import "github.com/gin-gonic/gin"

// WebhookPath is where Telegram posts updates, relative to the public base URL.
const WebhookPath = "/api/v1/webhook"

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.POST("/card", h.cardHandler)
		api.GET("/qr", qrHandler)

		v1 := api.Group("/v1")
		v1.POST("/webhook", h.webhookHandler)
		v1.GET("/set-webhook", h.setWebhookHandler)
	}
}
