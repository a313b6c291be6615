package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/dishrated/internal/helpers"
	"github.com/joshua-takyi/dishrated/internal/middleware"
	"github.com/joshua-takyi/dishrated/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondError writes AppErrors with their own status and message. Anything
// else is handed to the ErrorHandler middleware, which logs it and answers 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := models.AsAppError(err); ok {
		if appErr.Code == models.ErrCodeValidation && len(appErr.Fields) > 0 {
			c.JSON(appErr.Status(), models.ValidationErrorResponse(appErr.Message, appErr.Fields))
			return
		}
		c.JSON(appErr.Status(), models.ErrorResponse(appErr.Message))
		return
	}
	_ = c.Error(err)
}

func requireActor(c *gin.Context) (models.Actor, bool) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("Authentication required"))
		return models.Actor{}, false
	}
	actor, err := claims.Actor()
	if err != nil {
		respondError(c, err)
		return models.Actor{}, false
	}
	return actor, true
}

// optionalActor returns nil for anonymous callers.
func optionalActor(c *gin.Context) *models.Actor {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	actor, err := claims.Actor()
	if err != nil {
		return nil
	}
	return &actor
}

func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := helpers.ParseObjectID(c.Param(name), name)
	if err != nil {
		respondError(c, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func pagination(c *gin.Context) (int, int, bool) {
	page, limit, err := helpers.ParsePagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		respondError(c, err)
		return 0, 0, false
	}
	return page, limit, true
}

// bindJSON decodes the body. An empty body is allowed when optional is set.
func bindJSON(c *gin.Context, dst interface{}, optional bool) bool {
	if optional && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request body: "+err.Error()))
		return false
	}
	return true
}
