package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/player"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/admiralorbiter/okqueue/internal/simulation"
)

// populationPlayer is the wire shape the population-generator collaborator
// returns; it mirrors simulation.PlayerInput with JSON tags.
type populationPlayer struct {
	ID                 uint64             `json:"id"`
	Lat                float64            `json:"lat"`
	Lon                float64            `json:"lon"`
	Platform           string             `json:"platform"`
	InputDevice        string             `json:"input_device"`
	Skill              float64            `json:"skill"`
	DCPings            map[string]float64 `json:"dc_pings"`
	PreferredPlaylists []string           `json:"preferred_playlists"`
}

// Client pulls a generated player population over HTTP, guarded by a
// circuit breaker so a flaky population generator can't stall ticks.
//
// Grounded on the pack's sports-data-service/internal/services/circuit_breaker.go
// (gobreaker.Settings with a failure-ratio ReadyToTrip and OnStateChange
// logging) and data_fetcher.go's http.Client usage.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string
	logger     *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, breakerThreshold uint32, logger *logrus.Logger) *Client {
	settings := gobreaker.Settings{
		Name:        "population-generator",
		MaxRequests: breakerThreshold,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "ingest_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("circuit breaker state changed")
		},
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		baseURL:    baseURL,
		logger:     logger,
	}
}

// FetchPopulation pulls n generated players from the population-generator
// collaborator and converts them to simulation.PlayerInput.
func (c *Client) FetchPopulation(ctx context.Context, n int) ([]simulation.PlayerInput, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		url := fmt.Sprintf("%s/population?n=%d", c.baseURL, n)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("population generator returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		var players []populationPlayer
		if err := json.Unmarshal(body, &players); err != nil {
			return nil, fmt.Errorf("failed to decode population response: %w", err)
		}
		return players, nil
	})
	if err != nil {
		c.logger.WithError(err).Warn("population fetch failed")
		return nil, err
	}

	return toPlayerInputs(result.([]populationPlayer)), nil
}

func toPlayerInputs(players []populationPlayer) []simulation.PlayerInput {
	out := make([]simulation.PlayerInput, 0, len(players))
	for _, pp := range players {
		dcPings := make(map[uint64]float64, len(pp.DCPings))
		for k, v := range pp.DCPings {
			var id uint64
			fmt.Sscanf(k, "%d", &id)
			dcPings[id] = v
		}

		playlists := make([]playlist.Playlist, 0, len(pp.PreferredPlaylists))
		for _, name := range pp.PreferredPlaylists {
			for _, pl := range playlist.All() {
				if pl.String() == name {
					playlists = append(playlists, pl)
					break
				}
			}
		}

		out = append(out, simulation.PlayerInput{
			ID:                 player.ID(pp.ID),
			Location:           geo.Location{Lat: pp.Lat, Lon: pp.Lon},
			Platform:           parsePlatform(pp.Platform),
			InputDevice:        parseInputDevice(pp.InputDevice),
			Skill:              pp.Skill,
			DCPings:            dcPings,
			PreferredPlaylists: playlists,
		})
	}
	return out
}

func parsePlatform(s string) player.Platform {
	switch s {
	case "playstation":
		return player.PlatformPlayStation
	case "xbox":
		return player.PlatformXbox
	default:
		return player.PlatformPC
	}
}

func parseInputDevice(s string) player.InputDevice {
	switch s {
	case "controller":
		return player.InputController
	default:
		return player.InputMouseKeyboard
	}
}
