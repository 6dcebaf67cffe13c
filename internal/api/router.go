package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/admiralorbiter/okqueue/internal/api/handlers"
	"github.com/admiralorbiter/okqueue/internal/api/middleware"
	"github.com/admiralorbiter/okqueue/internal/cache"
	"github.com/admiralorbiter/okqueue/internal/ingest"
	"github.com/admiralorbiter/okqueue/internal/simulation"
	"github.com/admiralorbiter/okqueue/internal/ws"
	pkgconfig "github.com/admiralorbiter/okqueue/pkg/config"
)

// SetupRoutes wires the matchmaking control surface (spec §6) onto group:
// read-only health/snapshot endpoints are public; mutating control
// endpoints (ingest, register, tick, run, config, arrival rate) require a
// bearer token and share a single rate-limit bucket. ingestClient may be
// nil when no population-generator collaborator is configured, in which
// case POST /players/fetch reports 503 rather than being unregistered.
func SetupRoutes(group *gin.RouterGroup, sim *simulation.Simulation, c *cache.Cache, wsHub *ws.Hub, ingestClient *ingest.Client, ingestLimiter *ingest.Limiter, cfg *pkgconfig.Config, logger *logrus.Logger) {
	simHandler := handlers.NewSimulationHandler(sim, c, wsHub, ingestClient, logger)
	healthHandler := handlers.NewHealthHandler(sim)

	group.GET("/healthz", healthHandler.GetHealth)
	group.GET("/readyz", healthHandler.GetReady)

	group.GET("/snapshot", middleware.OptionalAuth(cfg.JWTSecret), simHandler.GetSnapshot)

	control := group.Group("")
	control.Use(middleware.AuthRequired(cfg.JWTSecret))
	control.Use(middleware.RateLimit(cfg.ControlRateLimitPerSec, cfg.ControlRateLimitBurst))
	{
		control.POST("/players", middleware.IngestGuard(ingestLimiter), simHandler.IngestPlayers)
		control.POST("/players/fetch", middleware.IngestGuard(ingestLimiter), simHandler.FetchAndIngestPopulation)
		control.POST("/datacenters", simHandler.RegisterDataCenter)
		control.POST("/tick", simHandler.Tick)
		control.POST("/run", simHandler.Run)
		control.PUT("/arrival-rate", simHandler.SetArrivalRate)
		control.PUT("/config", simHandler.UpdateConfig)
	}

	group.GET("/ws", wsHub.HandleWebSocket)
}
