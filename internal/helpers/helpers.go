package helpers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joshua-takyi/dishrated/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// TokenValidator verifies bearer tokens either with a shared HMAC secret
// or with keys fetched from a JWKS endpoint.
type TokenValidator struct {
	secret  []byte
	jwks    *keyfunc.JWKS
	issuer  string
	methods []string
}

func NewTokenValidator(ctx context.Context, secret, jwksURL, issuer string) (*TokenValidator, error) {
	v := &TokenValidator{issuer: issuer}

	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			Ctx:               ctx,
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load JWKS: %w", err)
		}
		v.jwks = jwks
		v.methods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "EdDSA"}
		return v, nil
	}

	if secret == "" {
		return nil, errors.New("either a JWT secret or a JWKS URL is required")
	}
	v.secret = []byte(secret)
	v.methods = []string{"HS256", "HS384", "HS512"}
	return v, nil
}

func (v *TokenValidator) keyFunc(token *jwt.Token) (interface{}, error) {
	if v.jwks != nil {
		return v.jwks.Keyfunc(token)
	}
	return v.secret, nil
}

func (v *TokenValidator) ValidateToken(tokenStr string) (*CustomClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, v.keyFunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *TokenValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// ParseObjectID normalizes a path or body id. Clients sometimes send ids
// wrapped in quotes.
func ParseObjectID(raw, field string) (primitive.ObjectID, error) {
	raw = strings.Trim(strings.TrimSpace(raw), "\"'")
	if raw == "" {
		return primitive.NilObjectID, models.NewValidationError(field+" is required", map[string]string{field: "is required"})
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, models.NewValidationError("invalid "+field+" format", map[string]string{field: "must be a valid id"})
	}
	return id, nil
}

// ParsePagination reads page and limit query values. Empty values fall
// back to the defaults; limit is capped at MaxLimit.
func ParsePagination(pageStr, limitStr string) (page, limit int, err error) {
	page, limit = DefaultPage, DefaultLimit
	if pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return 0, 0, models.NewValidationError("invalid page parameter", map[string]string{"page": "must be a positive integer"})
		}
	}
	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return 0, 0, models.NewValidationError("invalid limit parameter", map[string]string{"limit": "must be a positive integer"})
		}
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit, nil
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
