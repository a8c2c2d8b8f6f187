// Package httpapi serves the session service over JSON/HTTP with gin. The
// refresh token is also delivered as an HttpOnly cookie.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/common"
	"github.com/dmitrijs2005/demoauth/internal/logging"
	"github.com/dmitrijs2005/demoauth/internal/server/auth"
	"github.com/dmitrijs2005/demoauth/internal/server/models"
	"github.com/gin-gonic/gin"
)

// Sessions is the session service as seen by the HTTP transport.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, raw string) (*models.TokenPair, error)
	Logout(ctx context.Context, raw, accessToken string)
	Introspect(ctx context.Context, accessToken string) (*auth.Claims, error)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type MeResponse struct {
	UserID         string    `json:"userId"`
	Email          string    `json:"email"`
	OrganizationID string    `json:"organizationId"`
	Role           string    `json:"role"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const claimsKey = "claims"

type AuthHandler struct {
	sessions      Sessions
	log           logging.Logger
	cookieMaxAge  int
	secureCookies bool
}

// NewAuthHandler returns handlers that set the refresh cookie for
// refreshLifetime.
func NewAuthHandler(sessions Sessions, log logging.Logger, refreshLifetime time.Duration, secureCookies bool) *AuthHandler {
	if log == nil {
		log = logging.Nop{}
	}
	return &AuthHandler{
		sessions:      sessions,
		log:           log.With("module", "http_api"),
		cookieMaxAge:  int(refreshLifetime / time.Second),
		secureCookies: secureCookies,
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	pair, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// RefreshToken handles POST /api/auth/refresh-token. The token is taken from
// the JSON body, falling back to the RefreshToken cookie.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
			return
		}
	}
	raw := req.RefreshToken
	if raw == "" {
		raw, _ = c.Cookie(common.RefreshTokenCookieName)
	}
	if raw == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "refresh token is required"})
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Logout handles POST /api/auth/logout. It always reports success.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw, _ := c.Cookie(common.RefreshTokenCookieName)
	if raw == "" {
		var req RefreshTokenRequest
		if c.Request.ContentLength != 0 {
			_ = c.ShouldBindJSON(&req)
		}
		raw = req.RefreshToken
	}

	h.sessions.Logout(c.Request.Context(), raw, bearerToken(c))

	if raw != "" {
		h.clearRefreshCookie(c)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me handles GET /api/auth/me; RequireAccessToken must run first.
func (h *AuthHandler) Me(c *gin.Context) {
	v, ok := c.Get(claimsKey)
	claims, _ := v.(*auth.Claims)
	if !ok || claims == nil {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: common.ErrInvalidCredential.Error()})
		return
	}
	resp := MeResponse{
		UserID:         claims.UserID,
		Email:          claims.Email,
		OrganizationID: claims.OrganizationID,
		Role:           claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	c.JSON(http.StatusOK, resp)
}

// RequireAccessToken verifies the bearer token and stores its claims.
func (h *AuthHandler) RequireAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing token"})
			return
		}
		claims, err := h.sessions.Introspect(c.Request.Context(), token)
		if err != nil {
			h.fail(c, err)
			c.Abort()
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, raw string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(common.RefreshTokenCookieName, raw, h.cookieMaxAge, "/", "", h.secureCookies, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(common.RefreshTokenCookieName, "", -1, "/", "", h.secureCookies, true)
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrAccessTokenExpired):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: common.ErrAccessTokenExpired.Error()})
	case errors.Is(err, common.ErrInvalidCredential), errors.Is(err, common.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: common.ErrInvalidCredential.Error()})
	case errors.Is(err, common.ErrEmailNotConfirmed):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "please confirm your email before logging in"})
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: common.ErrValidation.Error()})
	case errors.Is(err, common.ErrStorage):
		h.log.Error(c.Request.Context(), "storage failure", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
	default:
		h.log.Error(c.Request.Context(), "internal error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: common.ErrorInternal.Error()})
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
