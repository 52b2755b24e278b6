package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-board/internal/apperr"
	"github.com/justsurfingit/job-board/internal/auth"
	"github.com/justsurfingit/job-board/internal/ratelimit"
)

const callerKey = "caller"

// Authenticate resolves the bearer token into an auth.Caller.
func Authenticate(tokens *auth.TokenIssuer, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, log, apperr.Authorization("Missing authorization header"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			respondError(c, log, apperr.Authorization("Invalid authorization header"))
			return
		}
		caller, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Debug("rejected token", "error", err)
			respondError(c, log, apperr.Authorization("Invalid token"))
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// callerFrom must only be used behind Authenticate.
func callerFrom(c *gin.Context) auth.Caller {
	caller, _ := c.MustGet(callerKey).(auth.Caller)
	return caller
}

// RequestTimeout bounds the request context handed to services.
func RequestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RateLimitByCaller limits an authenticated route per user.
func RateLimitByCaller(store *ratelimit.Store, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := callerFrom(c)
		if !store.Allow(caller.UserID) {
			retry := store.RetryAfter()
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds()+0.5)))
			log.Info("rate limited", "user_id", caller.UserID, "path", c.FullPath())
			respondError(c, log, apperr.RateLimited("Too many applications, try again later"))
			return
		}
		c.Next()
	}
}
