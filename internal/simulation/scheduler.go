package simulation

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler is the collaborator-level driver that calls Simulation.Tick
// every tick_interval seconds when the simulation runs as a long-lived
// service. The core tick loop itself stays synchronous and driver-agnostic
// per spec §5; this is purely the ambient "who calls tick() and when" layer.
//
// Grounded on the teacher's internal/services/data_fetcher.go
// (cron.New(), Start/Stop, isRunning guarded by a mutex).
type Scheduler struct {
	sim    *Simulation
	logger *logrus.Logger
	cron   *cron.Cron

	mu        sync.Mutex
	isRunning bool
	afterTick func(*Simulation)
}

// NewScheduler returns a Scheduler bound to sim.
func NewScheduler(sim *Simulation, logger *logrus.Logger) *Scheduler {
	return &Scheduler{sim: sim, logger: logger, cron: cron.New()}
}

// SetAfterTick installs a hook invoked after every scheduled tick (used to
// broadcast the snapshot over the websocket hub and refresh the cache).
func (s *Scheduler) SetAfterTick(fn func(*Simulation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterTick = fn
}

// Start begins scheduled ticking at the simulation's current tick_interval.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	interval := time.Duration(s.sim.TickIntervalSeconds() * float64(time.Second))
	if interval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}

	schedule := fmt.Sprintf("@every %s", interval.String())
	_, err := s.cron.AddFunc(schedule, s.runTick)
	if err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Info("simulation scheduler started")
	return nil
}

// Stop halts scheduled ticking, waiting for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	s.logger.Info("simulation scheduler stopped")
}

func (s *Scheduler) runTick() {
	s.sim.Tick()

	s.mu.Lock()
	hook := s.afterTick
	s.mu.Unlock()

	if hook != nil {
		hook(s.sim)
	}
}

// IsRunning reports whether the scheduler is currently ticking.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
