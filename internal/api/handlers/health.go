package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/admiralorbiter/okqueue/internal/simulation"
)

type HealthHandler struct {
	sim *simulation.Simulation
}

func NewHealthHandler(sim *simulation.Simulation) *HealthHandler {
	return &HealthHandler{sim: sim}
}

// GetHealth is a basic liveness probe.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "okqueue",
	})
}

// GetReady is a readiness probe: ready once the simulation has been
// constructed successfully, which the health handler's mere existence
// already guarantees.
func (h *HealthHandler) GetReady(c *gin.Context) {
	snap := h.sim.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"current_time": snap.CurrentTime,
	})
}
