package routes

import (
	"github.com/gin-gonic/gin"

	"zubi/internal/controllers"
	"zubi/internal/middleware"
)

func RegisterConversationRoutes(router *gin.Engine, conversationController *controllers.ConversationController, jwtSecret string) {
	conversationRoutes := router.Group("/conversations")
	conversationRoutes.Use(middleware.AuthMiddleware(jwtSecret))
	{
		conversationRoutes.GET("/:phone", conversationController.GetConversation)
		conversationRoutes.DELETE("/:phone", conversationController.DeleteConversation)
	}
}
