package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ridhamxdev/Docent-sub000/message/dto"
	"github.com/ridhamxdev/Docent-sub000/message/reconcile"
	"github.com/ridhamxdev/Docent-sub000/message/repo/model"
	"github.com/ridhamxdev/Docent-sub000/message/service"
)

type MessageHandler struct {
	service *service.MessageService
	logger  *zap.Logger
}

func NewMessageHandler(s *service.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		service: s,
		logger:  logger,
	}
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	var input dto.SendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stored, err := h.service.Send(c.Request.Context(), input)
	if err != nil {
		if service.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("send message failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}
	c.JSON(http.StatusCreated, stored)
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID := c.Query("userId")
	msgs, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		if service.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("list messages failed", zap.String("user", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	counterpartyID := c.Param("counterpartyId")
	var input dto.MarkReadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, err := h.service.MarkRead(c.Request.Context(), input.UserID, counterpartyID)
	if err != nil {
		if service.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("mark read failed",
			zap.String("user", input.UserID), zap.String("counterparty", counterpartyID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}

func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID := c.Query("userId")
	convs, err := h.service.Conversations(c.Request.Context(), userID)
	if err != nil {
		if service.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("get conversations failed", zap.String("user", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	if convs == nil {
		convs = []*reconcile.Conversation{}
	}
	c.JSON(http.StatusOK, convs)
}

func (h *MessageHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
