package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/reviews")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.POST("", h.Create)
		group.PATCH("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}

	g.GET("/resources/:id/reviews", authMiddleware, h.ListByResource)
	g.GET("/users/:id/reviews", authMiddleware, h.ListByHolder)
}
