package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/admiralorbiter/okqueue/internal/api"
	"github.com/admiralorbiter/okqueue/internal/api/middleware"
	"github.com/admiralorbiter/okqueue/internal/archive"
	"github.com/admiralorbiter/okqueue/internal/cache"
	domainconfig "github.com/admiralorbiter/okqueue/internal/config"
	"github.com/admiralorbiter/okqueue/internal/ingest"
	"github.com/admiralorbiter/okqueue/internal/notify"
	"github.com/admiralorbiter/okqueue/internal/simulation"
	"github.com/admiralorbiter/okqueue/internal/ws"
	"github.com/admiralorbiter/okqueue/pkg/config"
	"github.com/admiralorbiter/okqueue/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log := logger.InitLogger()
	log.WithFields(logrus.Fields{
		"environment": cfg.Env,
		"database_url": cfg.DatabaseURL,
		"redis_url":    cfg.RedisURL,
	}).Info("starting okqueue matchmaking simulator")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	archiveStore, err := archive.Connect(cfg.DatabaseURL, cfg.IsDevelopment(), log)
	if err != nil {
		log.Fatalf("failed to connect to archive database: %v", err)
	}
	defer archiveStore.Close()

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to parse redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	snapshotCache := cache.New(redisClient, log)
	wsHub := ws.NewHub(log)
	go wsHub.Run()

	sim, err := simulation.New(uint64(time.Now().UnixNano()), domainconfig.Default())
	if err != nil {
		log.Fatalf("failed to construct simulation: %v", err)
	}

	scheduler := simulation.NewScheduler(sim, log)
	notifier := notify.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.OpsAlertToNumber, cfg.BlowoutAlertThreshold, cfg.AlertConsecutiveTicks, log)
	scheduler.SetAfterTick(func(s *simulation.Simulation) {
		snap := s.Snapshot()

		wsHub.Broadcast(snap)

		if err := snapshotCache.Set(context.Background(), cache.SnapshotLatestKey(), snap, cfg.SnapshotCacheTTL); err != nil {
			log.WithError(err).Warn("failed to cache snapshot")
		}

		if err := archiveStore.RecordTick(snap.CurrentTime, snap.TotalPlayers, snap.Stats.ActiveMatches, snap.Stats.BlowoutRate, snap.Stats.StateCounts, s.LastTickTeamSkills()); err != nil {
			log.WithError(err).Warn("failed to archive tick")
		}

		notifier.ObserveTick(snap.Stats.BlowoutRate, s.AnyDataCenterFull())
	})

	ingestLimiter := ingest.NewLimiter(cfg.IngestRateLimitMax, cfg.IngestRateLimitWindow)

	var ingestClient *ingest.Client
	if cfg.PopulationGeneratorURL != "" {
		ingestClient = ingest.NewClient(cfg.PopulationGeneratorURL, cfg.PopulationFetchTimeout, cfg.CircuitBreakerThreshold, log)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	v1 := router.Group("/v1")
	api.SetupRoutes(v1, sim, snapshotCache, wsHub, ingestClient, ingestLimiter, cfg, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := scheduler.Start(); err != nil {
		log.WithError(err).Warn("scheduler did not start; tick must be driven manually via POST /v1/tick")
	}
	defer scheduler.Stop()

	go func() {
		log.Infof("listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	log.Info("server exited")
}
