package routes

import (
	"github.com/gin-gonic/gin"

	"zubi/internal/controllers"
)

func RegisterWebhookRoutes(router *gin.Engine, webhookController *controllers.WebhookController) {
	webhookRoutes := router.Group("/webhook")
	{
		webhookRoutes.POST("/messages", webhookController.ReceiveMessage)
	}
	router.POST("/chat", webhookController.Chat)
}
