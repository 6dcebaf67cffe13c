// Package handlers implements the matchmaking control surface spec §6
// names: ingest_players, register_data_center, tick/run/set_arrival_rate/
// update_config, and the outbound snapshot projection.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/admiralorbiter/okqueue/internal/cache"
	"github.com/admiralorbiter/okqueue/internal/config"
	"github.com/admiralorbiter/okqueue/internal/datacenter"
	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/ingest"
	"github.com/admiralorbiter/okqueue/internal/player"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/admiralorbiter/okqueue/internal/simulation"
	"github.com/admiralorbiter/okqueue/internal/ws"
	"github.com/admiralorbiter/okqueue/pkg/utils"
)

type SimulationHandler struct {
	sim          *simulation.Simulation
	cache        *cache.Cache
	wsHub        *ws.Hub
	ingestClient *ingest.Client
	logger       *logrus.Logger
}

func NewSimulationHandler(sim *simulation.Simulation, c *cache.Cache, wsHub *ws.Hub, ingestClient *ingest.Client, logger *logrus.Logger) *SimulationHandler {
	return &SimulationHandler{sim: sim, cache: c, wsHub: wsHub, ingestClient: ingestClient, logger: logger}
}

type playerRequest struct {
	ID                 uint64             `json:"id" binding:"required"`
	Lat                float64            `json:"lat"`
	Lon                float64            `json:"lon"`
	Platform           string             `json:"platform" binding:"required"`
	InputDevice        string             `json:"input_device" binding:"required"`
	Skill              float64            `json:"skill"`
	DCPings            map[string]float64 `json:"dc_pings" binding:"required"`
	PreferredPlaylists []string           `json:"preferred_playlists" binding:"required"`
}

type ingestPlayersRequest struct {
	Players []playerRequest `json:"players" binding:"required,min=1"`
}

// IngestPlayers implements POST /v1/players (ingest_players).
func (h *SimulationHandler) IngestPlayers(c *gin.Context) {
	var req ingestPlayersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	inputs, err := toPlayerInputs(req.Players)
	if err != nil {
		utils.SendValidationError(c, "invalid player data", err.Error())
		return
	}

	if err := h.sim.IngestPlayers(inputs); err != nil {
		if err == simulation.ErrEmptyDataCenterSet {
			utils.SendConflict(c, err.Error())
			return
		}
		utils.SendInternalError(c, "failed to ingest players: "+err.Error())
		return
	}

	utils.SendSuccess(c, gin.H{"ingested": len(inputs)})
}

type fetchPopulationRequest struct {
	Count int `json:"count" binding:"required,min=1,max=100000"`
}

// FetchAndIngestPopulation implements POST /v1/players/fetch: it pulls a
// generated population from the population-generator collaborator over the
// circuit-breaker-guarded client and ingests it directly, so an operator
// doesn't have to round-trip the population through their own client.
func (h *SimulationHandler) FetchAndIngestPopulation(c *gin.Context) {
	if h.ingestClient == nil {
		utils.SendError(c, http.StatusServiceUnavailable, utils.NewAppError(utils.ErrCodeInternal, "no population generator configured"))
		return
	}

	var req fetchPopulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	inputs, err := h.ingestClient.FetchPopulation(c.Request.Context(), req.Count)
	if err != nil {
		utils.SendError(c, http.StatusBadGateway, utils.NewAppError(utils.ErrCodeInternal, "population fetch failed", err.Error()))
		return
	}

	if err := h.sim.IngestPlayers(inputs); err != nil {
		if err == simulation.ErrEmptyDataCenterSet {
			utils.SendConflict(c, err.Error())
			return
		}
		utils.SendInternalError(c, "failed to ingest fetched players: "+err.Error())
		return
	}

	utils.SendSuccess(c, gin.H{"ingested": len(inputs)})
}

type registerDataCenterRequest struct {
	ID         uint64         `json:"id" binding:"required"`
	Name       string         `json:"name" binding:"required"`
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	Region     string         `json:"region"`
	Capacities map[string]int `json:"capacities"`
}

// RegisterDataCenter implements POST /v1/datacenters (register_data_center).
func (h *SimulationHandler) RegisterDataCenter(c *gin.Context) {
	var req registerDataCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}

	capacities := make(map[playlist.Playlist]int, len(req.Capacities))
	for name, capValue := range req.Capacities {
		pl, ok := parsePlaylist(name)
		if !ok {
			utils.SendValidationError(c, "unknown playlist", name)
			return
		}
		capacities[pl] = capValue
	}

	h.sim.RegisterDataCenter(simulation.DataCenterInput{
		ID:         datacenter.ID(req.ID),
		Name:       req.Name,
		Location:   geo.Location{Lat: req.Lat, Lon: req.Lon},
		Region:     req.Region,
		Capacities: capacities,
	})

	utils.SendSuccess(c, gin.H{"registered": req.ID})
}

// Tick implements POST /v1/tick.
func (h *SimulationHandler) Tick(c *gin.Context) {
	h.sim.Tick()
	h.afterTick()
	utils.SendSuccess(c, h.sim.Snapshot())
}

type runRequest struct {
	Ticks int `json:"ticks" binding:"required,min=1,max=100000"`
}

// Run implements POST /v1/run.
func (h *SimulationHandler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}
	h.sim.Run(req.Ticks)
	h.afterTick()
	utils.SendSuccess(c, h.sim.Snapshot())
}

type arrivalRateRequest struct {
	Lambda float64 `json:"lambda" binding:"required,min=0"`
}

// SetArrivalRate implements PUT /v1/arrival-rate (set_arrival_rate).
func (h *SimulationHandler) SetArrivalRate(c *gin.Context) {
	var req arrivalRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}
	if err := h.sim.SetArrivalRate(req.Lambda); err != nil {
		utils.SendValidationError(c, "invalid arrival rate", err.Error())
		return
	}
	utils.SendSuccess(c, gin.H{"arrival_rate_lambda": req.Lambda})
}

// UpdateConfig implements PUT /v1/config (update_config).
func (h *SimulationHandler) UpdateConfig(c *gin.Context) {
	var cfg config.MatchmakingConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		utils.SendValidationError(c, "invalid request body", err.Error())
		return
	}
	if err := h.sim.UpdateConfig(cfg); err != nil {
		utils.SendError(c, http.StatusBadRequest, utils.NewAppError(utils.ErrCodeInvalidConfig, "invalid config", err.Error()))
		return
	}
	utils.SendSuccess(c, gin.H{"applied_at_next_tick": true})
}

// GetSnapshot implements GET /v1/snapshot, reading through a short-lived
// redis cache entry so bursts of dashboard polling don't each recompute
// percentiles/histograms.
func (h *SimulationHandler) GetSnapshot(c *gin.Context) {
	ctx := c.Request.Context()

	var cached simulation.Snapshot
	if h.cache != nil {
		if err := h.cache.Get(ctx, cache.SnapshotLatestKey(), &cached); err == nil {
			utils.SendSuccess(c, cached)
			return
		}
	}

	snap := h.sim.Snapshot()
	if h.cache != nil {
		if err := h.cache.Set(ctx, cache.SnapshotLatestKey(), snap, 2*time.Second); err != nil {
			h.logger.WithError(err).Warn("failed to cache snapshot")
		}
	}
	utils.SendSuccess(c, snap)
}

func (h *SimulationHandler) afterTick() {
	snap := h.sim.Snapshot()
	if h.cache != nil {
		if err := h.cache.Set(context.Background(), cache.SnapshotLatestKey(), snap, 2*time.Second); err != nil {
			h.logger.WithError(err).Warn("failed to cache snapshot after tick")
		}
	}
	if h.wsHub != nil {
		h.wsHub.Broadcast(snap)
	}
}

func toPlayerInputs(reqs []playerRequest) ([]simulation.PlayerInput, error) {
	out := make([]simulation.PlayerInput, 0, len(reqs))
	for _, r := range reqs {
		dcPings := make(map[uint64]float64, len(r.DCPings))
		for k, v := range r.DCPings {
			id, err := strconv.ParseUint(k, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid data center id %q: %w", k, err)
			}
			dcPings[id] = v
		}

		playlists := make([]playlist.Playlist, 0, len(r.PreferredPlaylists))
		for _, name := range r.PreferredPlaylists {
			pl, ok := parsePlaylist(name)
			if !ok {
				return nil, fmt.Errorf("unknown playlist %q", name)
			}
			playlists = append(playlists, pl)
		}

		out = append(out, simulation.PlayerInput{
			ID:                 player.ID(r.ID),
			Location:           geo.Location{Lat: r.Lat, Lon: r.Lon},
			Platform:           parsePlatformName(r.Platform),
			InputDevice:        parseInputDeviceName(r.InputDevice),
			Skill:              r.Skill,
			DCPings:            dcPings,
			PreferredPlaylists: playlists,
		})
	}
	return out, nil
}

func parsePlaylist(name string) (playlist.Playlist, bool) {
	for _, pl := range playlist.All() {
		if pl.String() == name {
			return pl, true
		}
	}
	return 0, false
}

func parsePlatformName(s string) player.Platform {
	switch s {
	case "playstation":
		return player.PlatformPlayStation
	case "xbox":
		return player.PlatformXbox
	default:
		return player.PlatformPC
	}
}

func parseInputDeviceName(s string) player.InputDevice {
	if s == "controller" {
		return player.InputController
	}
	return player.InputMouseKeyboard
}
