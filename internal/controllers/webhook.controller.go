package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"zubi/internal/models"
	"zubi/internal/services"
)

// ReplyQueue accepts inbound messages for asynchronous answering.
type ReplyQueue interface {
	Enqueue(msg services.InboundMessage) error
}

// ChatResponder answers one message synchronously.
type ChatResponder interface {
	Reply(ctx context.Context, phone, text string) models.Reply
}

type WebhookController struct {
	queue ReplyQueue
	chat  ChatResponder
	log   zerolog.Logger
}

func NewWebhookController(queue ReplyQueue, chat ChatResponder, log zerolog.Logger) *WebhookController {
	return &WebhookController{queue: queue, chat: chat, log: log}
}

type MessageRequest struct {
	Phone   string `json:"phone" example:"5511999990000"`
	Message string `json:"message" example:"oi"`
}

func (r *MessageRequest) normalize() error {
	r.Phone = strings.TrimPrefix(strings.TrimSpace(r.Phone), "+")
	r.Message = strings.TrimSpace(r.Message)
	if r.Phone == "" {
		return errors.New("phone is required")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

// ReceiveMessage godoc
// @Summary Receive an inbound WhatsApp message
// @Description Queues the message; the reply is delivered through the configured sender
// @Tags webhook
// @Accept json
// @Produce json
// @Param request body MessageRequest true "Inbound message"
// @Success 202 {object} map[string]interface{} "Message accepted"
// @Failure 400 {object} map[string]interface{} "Invalid payload"
// @Failure 503 {object} map[string]interface{} "Queue full or worker stopped"
// @Router /webhook/messages [post]
func (wc *WebhookController) ReceiveMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}
	if err := req.normalize(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}

	err := wc.queue.Enqueue(services.InboundMessage{
		Phone:      req.Phone,
		Text:       req.Message,
		ReceivedAt: time.Now(),
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrQueueFull), errors.Is(err, services.ErrWorkerNotRunning):
		wc.log.Warn().Err(err).Str("phone", req.Phone).Msg("inbound message rejected")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "Server is busy, please retry",
			"error":   err.Error(),
		})
		return
	default:
		wc.log.Error().Err(err).Str("phone", req.Phone).Msg("failed to enqueue inbound message")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to accept message",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "success",
		"message": "Message received",
	})
}

// Chat godoc
// @Summary Answer a message synchronously
// @Description Routes the message through the assistant and returns the reply without delivering it
// @Tags webhook
// @Accept json
// @Produce json
// @Param request body MessageRequest true "Message"
// @Success 200 {object} map[string]interface{} "Reply"
// @Failure 400 {object} map[string]interface{} "Invalid payload"
// @Router /chat [post]
func (wc *WebhookController) Chat(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}
	if err := req.normalize(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}

	reply := wc.chat.Reply(c.Request.Context(), req.Phone, req.Message)

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Reply generated",
		"data": gin.H{
			"reply": reply.Text(),
			"parts": reply.Parts,
		},
	})
}
