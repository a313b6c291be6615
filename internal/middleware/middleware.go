package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/dishrated/internal/helpers"
	"github.com/joshua-takyi/dishrated/internal/models"
)

const (
	userKey      = "user"
	requestIDKey = "request_id"
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(helpers.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get(requestIDKey)

		logger.Info("HTTP Request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// ErrorHandler logs errors attached with c.Error and answers with a
// generic 500 when the handler did not write a response itself.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		requestID, _ := c.Get(requestIDKey)

		logger.Error("Request error",
			"request_id", requestID,
			"error", err.Error(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse("Internal server error"))
		}
	}
}

type TokenVerifier interface {
	ValidateToken(token string) (*helpers.CustomClaims, error)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if token, err := c.Cookie("access_token"); err == nil {
		return token
	}
	return ""
}

func authenticate(c *gin.Context, verifier TokenVerifier) (*helpers.EnhancedClaims, error) {
	claims, err := verifier.ValidateToken(bearerToken(c))
	if err != nil {
		return nil, err
	}
	return helpers.NewEnhancedClaims(claims), nil
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearerToken(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("Authentication required"))
			return
		}
		claims, err := authenticate(c, verifier)
		if err != nil {
			requestID, _ := c.Get(requestIDKey)
			logger.Info("Token rejected", "request_id", requestID, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("Invalid or expired token"))
			return
		}
		c.Set(userKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearerToken(c) != "" {
			if claims, err := authenticate(c, verifier); err == nil {
				c.Set(userKey, claims)
			}
		}
		c.Next()
	}
}

// RequireRoles must run after AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return func(c *gin.Context) {
		claims, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("Authentication required"))
			return
		}
		if !claims.HasRole(allowed...) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse("You do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*helpers.EnhancedClaims, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*helpers.EnhancedClaims)
	return claims, ok
}

type Limiter interface {
	AllowRequest(ctx context.Context, principal string, limit int, window time.Duration) (bool, error)
}

// RateLimit applies a fixed window limit per user, or per client IP for
// anonymous callers. Limiter failures let the request through.
func RateLimit(limiter Limiter, limit int, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := "ip:" + c.ClientIP()
		if claims, ok := CurrentUser(c); ok {
			principal = "user:" + claims.UserID
		}

		allowed, err := limiter.AllowRequest(c.Request.Context(), principal, limit, window)
		if err != nil {
			logger.Warn("Rate limiter unavailable", "error", err)
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse("Too many requests, please slow down"))
			return
		}
		c.Next()
	}
}
