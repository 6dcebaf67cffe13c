package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredPlayers(t *testing.T) {
	assert.Equal(t, 12, TeamDeathmatch.RequiredPlayers())
	assert.Equal(t, 12, SearchAndDestroy.RequiredPlayers())
	assert.Equal(t, 12, Domination.RequiredPlayers())
	assert.Equal(t, 12, FreeForAll.RequiredPlayers())
	assert.Equal(t, 64, GroundWar.RequiredPlayers())
}

func TestTeamCount(t *testing.T) {
	assert.Equal(t, 2, TeamDeathmatch.TeamCount())
	assert.Equal(t, 2, GroundWar.TeamCount())
	assert.Equal(t, 12, FreeForAll.TeamCount())
}

func TestAvgMatchDuration(t *testing.T) {
	assert.Equal(t, 600.0, TeamDeathmatch.AvgMatchDurationSeconds())
	assert.Equal(t, 900.0, SearchAndDestroy.AvgMatchDurationSeconds())
	assert.Equal(t, 1200.0, GroundWar.AvgMatchDurationSeconds())
}

func TestDefaultServerCapacity(t *testing.T) {
	assert.Equal(t, 50, GroundWar.DefaultServerCapacity())
	assert.Equal(t, 200, TeamDeathmatch.DefaultServerCapacity())
}

func TestValidateTopology(t *testing.T) {
	for _, p := range All() {
		assert.NoError(t, p.ValidateTopology())
	}
}

func TestAllOrdinalOrderIsStableTieBreak(t *testing.T) {
	all := All()
	assert.Equal(t, TeamDeathmatch, all[0])
	assert.Equal(t, GroundWar, all[len(all)-1])
}
