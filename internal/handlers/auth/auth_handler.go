package auth

import (
	"net/http"

	"billhub-service/internal/domain/auth"
	"billhub-service/internal/middleware"
	"billhub-service/internal/pkg/response"
	authsvc "billhub-service/internal/service/auth"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc          *authsvc.AuthService
	cookieSecure bool
}

func NewAuthHandler(svc *authsvc.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{svc: svc, cookieSecure: cookieSecure}
}

// Login authenticates with email and password and issues a session. The
// token travels back both in the body and as an HTTP-only cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Email and password are required", err)
		return
	}
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err, "")
		return
	}

	h.setSessionCookie(c, res.SessionID, res.ExpiresIn)
	response.Success(c, http.StatusOK, "Login successful", gin.H{
		"token":       res.SessionID,
		"expires_in":  res.ExpiresIn,
		"user":        res.User,
		"permissions": res.Permissions,
	})
}

// Logout destroys the calling session. Destroying an already-dead session
// still succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	if err := h.svc.Logout(c.Request.Context(), middleware.ActorFrom(c), identity.Username); err != nil {
		response.FromError(c, err, "")
		return
	}

	h.clearSessionCookie(c)
	response.Success(c, http.StatusOK, "Logged out", nil)
}

// Me returns the caller's identity and effective permission matrix.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Unauthorized(c, "Authentication required")
		return
	}

	res, err := h.svc.Me(c.Request.Context(), identity)
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "OK", res)
}

// Sessions lists the caller's active sessions across devices.
func (h *AuthHandler) Sessions(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	sessions, err := h.svc.Sessions(c.Request.Context(), identity.UserID, middleware.CurrentSessionID(c))
	if err != nil {
		response.FromError(c, err, "")
		return
	}
	response.Success(c, http.StatusOK, "OK", gin.H{"sessions": sessions})
}

// RevokeSession destroys one of the caller's own sessions by token.
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)
	sessionID := c.Param("session_id")

	if err := h.svc.RevokeSession(c.Request.Context(), identity.UserID, sessionID); err != nil {
		response.FromError(c, err, "")
		return
	}

	if sessionID == middleware.CurrentSessionID(c) {
		h.clearSessionCookie(c)
	}
	response.Success(c, http.StatusOK, "Session revoked", nil)
}

// ChangePassword swaps the caller's credential and revokes every session,
// this one included, so all devices must log in again.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req auth.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Current and new password are required", err)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), middleware.ActorFrom(c), &req); err != nil {
		response.FromError(c, err, "")
		return
	}

	h.clearSessionCookie(c)
	response.Success(c, http.StatusOK, "Password changed, please log in again", nil)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.CookieName, token, maxAge, "/", "", h.cookieSecure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.CookieName, "", -1, "/", "", h.cookieSecure, true)
}
