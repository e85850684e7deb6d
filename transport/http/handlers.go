package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/ports"
	"github.com/muralhq/walletgate/service"
)

// AuthHandlers contains HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	auth     *service.AuthService
	sessions *service.SessionService
	janitor  *service.Janitor
	attempts ports.AttemptLog
	log      *slog.Logger

	cookieName   string
	cookieSecure bool
	sessionTTL   time.Duration
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(
	auth *service.AuthService,
	sessions *service.SessionService,
	janitor *service.Janitor,
	attempts ports.AttemptLog,
	log *slog.Logger,
	cookieName string,
	cookieSecure bool,
	sessionTTL time.Duration,
) *AuthHandlers {
	return &AuthHandlers{
		auth:         auth,
		sessions:     sessions,
		janitor:      janitor,
		attempts:     attempts,
		log:          log,
		cookieName:   cookieName,
		cookieSecure: cookieSecure,
		sessionTTL:   sessionTTL,
	}
}

// Challenge handles POST /auth/challenge.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	nonce, err := h.auth.CreateChallenge(c.Request.Context(), req.WalletAddress, c.ClientIP())
	if err != nil {
		h.writeChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":      nonce.Value,
		"expires_at": nonce.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Verify handles POST /auth/verify. On success the session credential is
// delivered as an HTTP-only cookie, never in the response body.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Nonce         string `json:"nonce" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		WalletAddress string `json:"wallet_address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.auth.CompleteLogin(c.Request.Context(), req.Nonce, req.Signature, req.WalletAddress, c.ClientIP())
	if err != nil {
		h.writeLoginError(c, err)
		return
	}

	token, _, err := h.sessions.Issue(user)
	if err != nil {
		h.log.Error("failed to issue session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.setSessionCookie(c, token, int(h.sessionTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
}

// Session handles GET /auth/session.
func (h *AuthHandlers) Session(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user": gin.H{
			"id":             user.ID,
			"wallet_address": user.WalletAddress,
			"is_admin":       user.IsAdmin,
		},
	})
}

// Logout handles POST /auth/logout: revokes the current jti and clears the
// cookie. Succeeds even when the presented credential is already invalid.
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, err := c.Cookie(h.cookieName)
	if err == nil && token != "" {
		if err := h.sessions.RevokeToken(c.Request.Context(), token, "logout"); err != nil {
			h.log.Error("failed to revoke session on logout", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Cleanup handles POST /internal/auth/cleanup.
func (h *AuthHandlers) Cleanup(c *gin.Context) {
	report := h.janitor.RunCleanup(c.Request.Context())
	h.writeCleanupReport(c, report)
}

// CleanupDryRun handles GET /internal/auth/cleanup.
func (h *AuthHandlers) CleanupDryRun(c *gin.Context) {
	report := h.janitor.DryRun(c.Request.Context())
	h.writeCleanupReport(c, report)
}

// ListAttempts handles GET /admin/attempts, the abuse-review view over
// recent login attempts.
func (h *AuthHandlers) ListAttempts(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	attempts, err := h.attempts.ListRecentAttempts(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("failed to list attempts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]gin.H, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, gin.H{
			"id":             a.ID,
			"wallet_address": a.WalletAddress,
			"client_ip":      a.ClientIP,
			"success":        a.Success,
			"reason":         a.Reason,
			"created_at":     a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"attempts": out})
}

func (h *AuthHandlers) writeChallengeError(c *gin.Context, err error) {
	var rateErr *core.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rateErr.RetryAfter)))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet address"})
	default:
		h.log.Error("failed to create challenge", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// writeLoginError maps login failures to responses. All authentication
// sub-reasons collapse into one generic 401 so the response cannot be used
// as an oracle distinguishing expired from reused from forged.
func (h *AuthHandlers) writeLoginError(c *gin.Context, err error) {
	var rateErr *core.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rateErr.RetryAfter)))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, core.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case core.AuthFailure(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
	default:
		h.log.Error("login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *AuthHandlers) writeCleanupReport(c *gin.Context, report *core.CleanupReport) {
	body := gin.H{
		"expired_nonces":    report.ExpiredNonces,
		"old_used_nonces":   report.OldUsedNonces,
		"old_auth_attempts": report.OldAuthAttempts,
		"dry_run":           report.DryRun,
	}

	if report.Err() != nil {
		body["error"] = "one or more cleanup categories failed"
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	c.JSON(http.StatusOK, body)
}

func (h *AuthHandlers) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, maxAge, "/", "", h.cookieSecure, true)
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
