package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"api-boilerplate/internal/domain"
	"api-boilerplate/internal/http/httperr"
	"api-boilerplate/internal/service"
)

const currentUserKey = "current_user"

var errMissingToken = errors.New("authorization bearer token required")

// RequireAuth resolves the bearer token to a user and stores it on the context.
func RequireAuth(users service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(httperr.Unauthenticated(errMissingToken))
			c.Abort()
			return
		}

		user, err := users.CurrentUser(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				_ = c.Error(httperr.Unauthenticated(err))
			} else {
				_ = c.Error(err)
			}
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
