package auth

import "github.com/gin-gonic/gin"

const (
	userIDKey = "userID"
	roleKey   = "userRole"
)

// GetUserID returns the authenticated holder's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// IsAdmin reports whether the authenticated caller carries the admin role.
func IsAdmin(c *gin.Context) bool {
	return c.GetString(roleKey) == RoleAdmin
}
