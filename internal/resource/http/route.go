package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers resource-related routes.
// Availability and reviews live under /resources/:id but are registered by their own packages.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminOnly gin.HandlerFunc) {
	group := g.Group("/resources")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)    // List resources
		group.GET("/:id", h.Get) // Get resource details
	}

	// === Admin Routes ===
	admin := group.Group("", adminOnly)
	{
		admin.POST("", h.Create)       // Create resource
		admin.PATCH("/:id", h.Update)  // Update resource
		admin.DELETE("/:id", h.Delete) // Delete resource
	}
}
