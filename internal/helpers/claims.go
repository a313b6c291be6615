package helpers

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joshua-takyi/dishrated/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CustomClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type EnhancedClaims struct {
	*CustomClaims
	Role   string `json:"role"`
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

func NewEnhancedClaims(claims *CustomClaims) *EnhancedClaims {
	return &EnhancedClaims{
		CustomClaims: claims,
		Role:         normalizeRole(claims.Role),
		UserID:       claims.Subject,
		Email:        claims.Email,
		Name:         claims.Name,
	}
}

func normalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case string(models.RoleAdmin), string(models.RoleOwner):
		return r
	default:
		return string(models.RoleUser)
	}
}

func (ec *EnhancedClaims) HasRole(roles ...string) bool {
	for _, r := range roles {
		if ec.Role == r {
			return true
		}
	}
	return false
}

func (ec *EnhancedClaims) GetSafeRole() string {
	if ec.Role == "" {
		return string(models.RoleUser)
	}
	return ec.Role
}

// Actor converts the claims into the service-level identity.
func (ec *EnhancedClaims) Actor() (models.Actor, error) {
	id, err := primitive.ObjectIDFromHex(ec.UserID)
	if err != nil {
		return models.Actor{}, models.NewUnauthorized("invalid subject in token")
	}
	return models.Actor{ID: id, Role: models.Role(ec.GetSafeRole())}, nil
}
