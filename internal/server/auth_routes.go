package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"videosum/internal/auth"
)

const (
	sessionCookie    = "token"
	stateCookie      = "oauth_state"
	stateCookieTTL   = 10 * 60
	loginPath        = "/auth/google/login"
	claimsContextKey = "claims"
)

func (a *API) requireSession(api bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(sessionCookie)
		claims, err := a.tokens.Verify(token)
		if err != nil {
			if token != "" {
				slog.Debug("Rejected session token", "error", err, "path", c.Request.URL.Path)
			}
			if api {
				respondMessage(c, http.StatusUnauthorized, "authentication required")
				c.Abort()
				return
			}
			a.clearCookie(c, sessionCookie)
			c.Redirect(http.StatusTemporaryRedirect, loginPath)
			c.Abort()
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

func (a *API) handleLogin(c *gin.Context) {
	state, err := randomState()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	url, err := a.oauth.AuthCodeURL(state)
	if err != nil {
		slog.Error("Cannot start Google login", "error", err)
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	a.setCookie(c, stateCookie, state, stateCookieTTL)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (a *API) handleCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		respondMessage(c, http.StatusForbidden, "google login failed: "+reason)
		return
	}

	expected, _ := c.Cookie(stateCookie)
	a.clearCookie(c, stateCookie)
	if expected == "" || c.Query("state") != expected {
		respondMessage(c, http.StatusBadRequest, "invalid oauth state")
		return
	}

	code := c.Query("code")
	if code == "" {
		respondMessage(c, http.StatusBadRequest, "missing authorization code")
		return
	}

	user, err := a.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		slog.Error("Google code exchange failed", "error", err)
		respondMessage(c, http.StatusBadGateway, "could not complete google login")
		return
	}

	if err := auth.CheckEmailDomain(user.Email, a.cfg.Auth.AllowedDomains); err != nil {
		slog.Warn("Login rejected", "email", user.Email, "error", err)
		respondError(c, http.StatusForbidden, err)
		return
	}
	if !user.EmailVerified {
		slog.Warn("Login rejected", "email", user.Email, "error", "email not verified")
		respondError(c, http.StatusForbidden, fmt.Errorf("%w: email not verified", auth.ErrAuthRejected))
		return
	}

	ttl := a.cfg.Auth.TokenTTL()
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	token, err := a.tokens.Issue(user.Email, user.Name, ttl)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	slog.Info("User logged in", "email", user.Email)
	a.setCookie(c, sessionCookie, token, int(ttl.Seconds()))
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

func (a *API) handleLogout(c *gin.Context) {
	a.clearCookie(c, sessionCookie)
	c.Redirect(http.StatusTemporaryRedirect, loginPath)
}

func (a *API) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", a.cfg.Server.SecureCookie, true)
}

func (a *API) clearCookie(c *gin.Context, name string) {
	a.setCookie(c, name, "", -1)
}

func currentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.New("failed to generate oauth state")
	}
	return hex.EncodeToString(b), nil
}
