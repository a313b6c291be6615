package container

import (
	"log/slog"

	"github.com/joshua-takyi/dishrated/internal/audit"
	"github.com/joshua-takyi/dishrated/internal/cache"
	"github.com/joshua-takyi/dishrated/internal/config"
	"github.com/joshua-takyi/dishrated/internal/middleware"
	"github.com/joshua-takyi/dishrated/internal/models"
	"github.com/joshua-takyi/dishrated/internal/services"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database clients
	MongoDBClient *mongo.Client
	Repo          *models.MongodbRepo

	TokenVerifier middleware.TokenVerifier
	// Limiter is nil when Redis is unavailable or rate limiting is off.
	Limiter middleware.Limiter

	EventService *services.EventService
}

// Deps are the optional infrastructure pieces. Nil fields disable the
// matching feature.
type Deps struct {
	Cache     *cache.Client
	Publisher services.Publisher
	Audit     *audit.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(
	cfg *config.Config,
	logger *slog.Logger,
	mongoDBClient *mongo.Client,
	verifier middleware.TokenVerifier,
	deps Deps,
) *Container {
	// Initialize repositories
	repo := models.MongodbNewRepo(mongoDBClient, cfg.MongoDBDatabase)

	opts := []services.Option{services.WithMaxWriteRetries(cfg.MaxWriteRetries)}
	if deps.Cache != nil {
		opts = append(opts, services.WithCache(deps.Cache, cfg.CacheTTLDetails, cfg.CacheTTLList))
	}
	if deps.Publisher != nil {
		opts = append(opts, services.WithPublisher(deps.Publisher))
	}
	if deps.Audit != nil {
		opts = append(opts, services.WithAudit(deps.Audit))
	}

	c := &Container{
		Config:        cfg,
		Logger:        logger,
		MongoDBClient: mongoDBClient,
		Repo:          repo,
		TokenVerifier: verifier,
		EventService:  services.NewEventService(repo, repo, logger, opts...),
	}
	if deps.Cache != nil && cfg.RateLimitEnabled {
		c.Limiter = deps.Cache
	}
	return c
}
