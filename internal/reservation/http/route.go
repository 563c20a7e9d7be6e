package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminOnly gin.HandlerFunc) {
	group := g.Group("/reservations")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Reschedule)
		group.POST("/:id/cancel", h.Cancel)
		group.POST("/:id/transition", adminOnly, h.Transition)
	}

	g.GET("/resources/:id/availability", authMiddleware, h.Availability)
}
