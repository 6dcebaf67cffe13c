package datacenter

import (
	"testing"

	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaultCapacities(t *testing.T) {
	dc := New(1, "NA-East", geo.Location{}, "NA", nil)
	assert.Equal(t, 50, dc.Capacity(playlist.GroundWar))
	assert.Equal(t, 200, dc.Capacity(playlist.TeamDeathmatch))
}

func TestNewCapacityOverride(t *testing.T) {
	dc := New(1, "NA-East", geo.Location{}, "NA", map[playlist.Playlist]int{playlist.GroundWar: 1})
	assert.Equal(t, 1, dc.Capacity(playlist.GroundWar))
}

func TestDebitCreditInvariant(t *testing.T) {
	dc := New(1, "NA-East", geo.Location{}, "NA", map[playlist.Playlist]int{playlist.GroundWar: 1})
	assert.True(t, dc.HasCapacity(playlist.GroundWar))
	assert.NoError(t, dc.Debit(playlist.GroundWar))
	assert.False(t, dc.HasCapacity(playlist.GroundWar))
	assert.Error(t, dc.Debit(playlist.GroundWar))

	dc.Credit(playlist.GroundWar)
	assert.True(t, dc.HasCapacity(playlist.GroundWar))
}

func TestCreditNeverGoesNegative(t *testing.T) {
	dc := New(1, "NA-East", geo.Location{}, "NA", nil)
	dc.Credit(playlist.TeamDeathmatch)
	assert.Equal(t, 0, dc.Busy(playlist.TeamDeathmatch))
}

func TestRegistryDebitUnknownDC(t *testing.T) {
	r := NewRegistry()
	err := r.Debit(999, playlist.TeamDeathmatch)
	assert.Error(t, err)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	dc := New(1, "NA-East", geo.Location{}, "NA", nil)
	r.Register(dc)
	assert.Same(t, dc, r.Get(1))
	assert.Equal(t, 1, r.Len())
}
