package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/dishrated/internal/container"
	"github.com/joshua-takyi/dishrated/internal/handlers"
	"github.com/joshua-takyi/dishrated/internal/middleware"
	"github.com/joshua-takyi/dishrated/internal/models"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	}))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	svc := container.EventService
	verifier := container.TokenVerifier

	api := r.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
				"status":  "OK",
				"service": "dishrated-events",
			}, "Service healthy"))
		})
	}

	public := api.Group("/events")
	public.Use(middleware.OptionalAuth(verifier))
	{
		public.GET("", handlers.ListEvents(svc))
		public.GET("/nearby", handlers.ListNearbyEvents(svc))
		public.GET("/:id", handlers.GetEvent(svc))
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(verifier, container.Logger))

	// Limits apply to writes only; reads are served from cache when possible.
	limited := protected.Group("/")
	if container.Limiter != nil {
		limited.Use(middleware.RateLimit(container.Limiter, cfg.RateLimit, cfg.RateLimitWindow, container.Logger))
	}

	organizers := middleware.RequireRoles(models.RoleAdmin, models.RoleOwner)
	owners := middleware.RequireRoles(models.RoleOwner)

	protected.GET("/events/mine", organizers, handlers.ListMyEvents(svc))
	protected.GET("/events/:id/eligibility", owners, handlers.CheckEligibility(svc))

	eventRoutes := limited.Group("/events")
	{
		eventRoutes.POST("", organizers, handlers.CreateEvent(svc))
		eventRoutes.PUT("/:id", organizers, handlers.UpdateEvent(svc))
		eventRoutes.DELETE("/:id", organizers, handlers.DeleteEvent(svc))

		eventRoutes.POST("/:id/register", owners, handlers.RegisterTruck(svc))
		eventRoutes.DELETE("/:id/unregister", owners, handlers.UnregisterTruck(svc))
		eventRoutes.PUT("/:id/participants/:truckId", organizers, handlers.SetParticipantStatus(svc))
	}

	adminRoutes := protected.Group("/admin/events")
	adminRoutes.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		adminRoutes.GET("/pending", handlers.ListPendingEvents(svc))
		adminRoutes.PUT("/:id/approve", handlers.ApproveEvent(svc))
		adminRoutes.PUT("/:id/reject", handlers.RejectEvent(svc))
	}

	return r
}
