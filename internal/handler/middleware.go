package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatterbox-app/auth-service/internal/dto"
	"github.com/chatterbox-app/auth-service/internal/service"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

const accessCookieName = "access_token"

// AuthMiddleware resolves the bearer credential from the Authorization
// header or the access token cookie. Anything that does not resolve to an
// active user is rejected; the response does not say why.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			raw, _ = c.Cookie(accessCookieName)
		}

		user := authService.Resolve(c.Request.Context(), raw)
		if user == nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authentication required",
			})
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)

		c.Next()
	}
}
