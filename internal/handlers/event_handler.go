package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/dishrated/internal/models"
	"github.com/joshua-takyi/dishrated/internal/services"
)

func CreateEvent(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}

		var in models.CreateEventInput
		if !bindJSON(c, &in, false) {
			return
		}

		event, err := s.CreateEvent(c.Request.Context(), actor, in)
		if err != nil {
			respondError(c, err)
			return
		}

		message := "Event created successfully"
		if event.ApprovalStatus == models.ApprovalPending {
			message = "Event submitted for approval"
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(event, message))
	}
}

func ListEvents(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, ok := pagination(c)
		if !ok {
			return
		}

		q := services.PublicEventQuery{
			EventType: models.EventType(c.Query("eventType")),
			Search:    c.Query("search"),
			Upcoming:  c.Query("upcoming") == "true",
		}
		if raw := c.Query("featured"); raw != "" {
			featured, err := strconv.ParseBool(raw)
			if err != nil {
				respondError(c, models.NewValidationError("invalid featured parameter", map[string]string{"featured": "must be true or false"}))
				return
			}
			q.Featured = &featured
		}

		events, total, err := s.ListPublicEvents(c.Request.Context(), q, page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(events, "Events retrieved", page, limit, total))
	}
}

func ListNearbyEvents(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, ok := pagination(c)
		if !ok {
			return
		}

		fields := map[string]string{}
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			fields["lat"] = "is required and must be a number"
		}
		lng, err := strconv.ParseFloat(c.Query("lng"), 64)
		if err != nil {
			fields["lng"] = "is required and must be a number"
		}
		var radius float64
		if raw := c.Query("radius"); raw != "" {
			if radius, err = strconv.ParseFloat(raw, 64); err != nil {
				fields["radius"] = "must be a number"
			}
		}
		if len(fields) > 0 {
			respondError(c, models.NewValidationError("invalid location query", fields))
			return
		}

		events, total, err := s.ListNearbyEvents(c.Request.Context(), lat, lng, radius, page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(events, "Events retrieved", page, limit, total))
	}
}

func ListMyEvents(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		page, limit, ok := pagination(c)
		if !ok {
			return
		}

		events, total, err := s.ListMyEvents(c.Request.Context(), actor, page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(events, "Events retrieved", page, limit, total))
	}
}

func GetEvent(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		event, err := s.GetEvent(c.Request.Context(), optionalActor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, "Event retrieved"))
	}
}

func UpdateEvent(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var in models.UpdateEventInput
		if !bindJSON(c, &in, false) {
			return
		}

		event, err := s.UpdateEvent(c.Request.Context(), actor, id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, "Event updated successfully"))
	}
}

func DeleteEvent(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		if err := s.DeleteEvent(c.Request.Context(), actor, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Event deleted successfully"))
	}
}

func CheckEligibility(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		check, err := s.CheckTruckEligibility(c.Request.Context(), actor, id, c.Query("truckId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(check, "Eligibility checked"))
	}
}

func RegisterTruck(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var in models.ParticipationInput
		if !bindJSON(c, &in, true) {
			return
		}

		event, err := s.RegisterTruck(c.Request.Context(), actor, id, in.TruckID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, "Registration submitted"))
	}
}

func UnregisterTruck(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}

		var in models.ParticipationInput
		if !bindJSON(c, &in, true) {
			return
		}
		if in.TruckID == "" {
			in.TruckID = c.Query("truckId")
		}

		event, err := s.UnregisterTruck(c.Request.Context(), actor, id, in.TruckID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, "Truck removed from event"))
	}
}

func SetParticipantStatus(s *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		truckID, ok := pathID(c, "truckId")
		if !ok {
			return
		}

		var in models.ParticipantStatusInput
		if !bindJSON(c, &in, false) {
			return
		}

		event, err := s.SetParticipantStatus(c.Request.Context(), actor, id, truckID, in.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(event, "Participant status updated"))
	}
}
