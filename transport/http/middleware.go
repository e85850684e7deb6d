package http

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/service"
)

const (
	ctxKeyUser    = "authUser"
	ctxKeySession = "authSession"
)

// SessionMiddleware validates the session cookie on every request and, on
// success, attaches the user and session to the context. With required set,
// requests without a valid session are rejected; otherwise they continue
// unauthenticated. Store outages always fail closed.
func SessionMiddleware(sessions *service.SessionService, cookieName string, required bool, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			abortOrContinue(c, required)
			return
		}

		user, session, err := sessions.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, core.ErrStoreUnavailable) {
				log.Error("session verification failed on store access", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			abortOrContinue(c, required)
			return
		}

		c.Set(ctxKeyUser, user)
		c.Set(ctxKeySession, session)
		c.Next()
	}
}

func abortOrContinue(c *gin.Context, required bool) {
	if required {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.Next()
}

// AdminMiddleware gates routes on the authorization resolver: 401 when no
// identity is present at all, 403 when an identity resolved but none of the
// admin signals is true.
func AdminMiddleware(authz *service.AuthzService) gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := service.RequestCredentials{
			Bearer: service.BearerFromHeader(c.GetHeader("Authorization")),
		}

		isAdmin, identified := authz.IsAdmin(c.Request.Context(), creds)
		switch {
		case isAdmin:
			c.Next()
		case !identified:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		}
	}
}

// OperatorSecretMiddleware authenticates operational endpoints with a
// shared bearer secret rather than a user session.
func OperatorSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := service.BearerFromHeader(c.GetHeader("Authorization"))
		if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		c.Next()
	}
}

// currentUser returns the authenticated user attached by SessionMiddleware,
// or nil.
func currentUser(c *gin.Context) *core.User {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return nil
	}
	user, _ := v.(*core.User)
	return user
}
