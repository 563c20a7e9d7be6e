package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminOnly gin.HandlerFunc) {
	group := g.Group("/payments")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.POST("", h.Open)
	}

	// === Gateway outcomes (admin) ===
	admin := group.Group("/:id", adminOnly)
	{
		admin.POST("/succeed", h.outcome(h.service.Succeed))
		admin.POST("/fail", h.outcome(h.service.Fail))
		admin.POST("/refund", h.outcome(h.service.Refund))
	}
}
