package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/dishrated/internal/models"
	"github.com/joshua-takyi/dishrated/internal/services"
)

func ListPendingEvents(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		page, limit, ok := pagination(c)
		if !ok {
			return
		}

		events, total, err := s.ListPendingEvents(c.Request.Context(), actor, page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(events, "Pending events retrieved", page, limit, total))
	}
}

func ApproveEvent(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var in models.ApproveEventInput
		if !bindJSON(c, &in, true) {
			return
		}

		event, err := s.ApproveEvent(c.Request.Context(), actor, id, in.Notes)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, "Event approved"))
	}
}

func RejectEvent(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var in models.RejectEventInput
		if !bindJSON(c, &in, true) {
			return
		}

		event, err := s.RejectEvent(c.Request.Context(), actor, id, in.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, "Event rejected"))
	}
}
