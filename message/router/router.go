package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ridhamxdev/Docent-sub000/message/handler"
	"github.com/ridhamxdev/Docent-sub000/message/realtime"
)

func SetMessageRouter(r *gin.Engine, m *handler.MessageHandler, g *realtime.Gateway, jwtSecret string) {
	r.GET("/healthz", m.Healthz)
	r.GET("/ws", g.Handle)

	api := r.Group("/")
	if jwtSecret != "" {
		api.Use(handler.AuthMiddleware(jwtSecret))
	}
	api.POST("/message/send", m.SendMessage)
	api.GET("/message/list", m.ListMessages)
	api.PUT("/message/read/:counterpartyId", m.MarkRead)
	api.GET("/conversations", m.GetConversations)
}
