// Package cache keeps the in-process mirror of island and membership records
// together with the derived player -> island index.
//
// The persistent store is the system of record; the cache is advisory. Every
// map is safe for concurrent use per key, but there are no multi-key
// transactions: a reader may briefly see an island whose members are not yet
// indexed. Stored records are never mutated; writers publish new values.
package cache

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mroshb/islands/internal/models"
)

// Rough per-entry footprints used for the memory estimate.
const (
	islandBaseBytes   = 512
	memberBytes       = 96
	contributionBytes = 48
	visitBytes        = 80
	inviteBytes       = 96
	membershipBytes   = 160
	indexEntryBytes   = 64
)

type Cache struct {
	islands     sync.Map // islandID -> *models.Island
	memberships sync.Map // playerID -> *models.PlayerMembership
	playerIndex sync.Map // playerID -> islandID

	metrics *Metrics
}

func New() *Cache {
	return &Cache{metrics: &Metrics{}}
}

// Metrics exposes the hit/miss counters for registration.
func (c *Cache) Metrics() *Metrics {
	return c.metrics
}

func (c *Cache) PutIsland(island *models.Island) {
	if island == nil {
		return
	}
	c.islands.Store(island.ID, island)
}

// GetIsland returns the cached record and counts a hit or miss.
func (c *Cache) GetIsland(islandID string) (*models.Island, bool) {
	v, ok := c.islands.Load(islandID)
	if !ok {
		c.metrics.incMiss()
		return nil, false
	}
	c.metrics.incHit()
	return v.(*models.Island), true
}

func (c *Cache) RemoveIsland(islandID string) {
	c.islands.Delete(islandID)
}

func (c *Cache) PutPlayerMembership(membership *models.PlayerMembership) {
	if membership == nil {
		return
	}
	c.memberships.Store(membership.PlayerID, membership)
}

func (c *Cache) GetPlayerMembership(playerID string) (*models.PlayerMembership, bool) {
	v, ok := c.memberships.Load(playerID)
	if !ok {
		return nil, false
	}
	return v.(*models.PlayerMembership), true
}

func (c *Cache) RemovePlayerMembership(playerID string) {
	c.memberships.Delete(playerID)
}

// GetPlayerIslandID looks the player up in the derived index.
func (c *Cache) GetPlayerIslandID(playerID string) (string, bool) {
	v, ok := c.playerIndex.Load(playerID)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// IndexMembers points the owner, every member and every worker at the island.
func (c *Cache) IndexMembers(island *models.Island) {
	if island == nil {
		return
	}
	for _, playerID := range island.PlayerIDs() {
		c.playerIndex.Store(playerID, island.ID)
	}
}

// DeindexMembers clears index entries that still point at the island. Players
// already indexed to a different island are left alone.
func (c *Cache) DeindexMembers(island *models.Island) {
	if island == nil {
		return
	}
	for _, playerID := range island.PlayerIDs() {
		c.playerIndex.CompareAndDelete(playerID, island.ID)
	}
}

// UnindexPlayer drops a single player's index entry if it points at islandID.
func (c *Cache) UnindexPlayer(playerID, islandID string) {
	c.playerIndex.CompareAndDelete(playerID, islandID)
}

// AllIslands returns a snapshot of every cached island record.
func (c *Cache) AllIslands() []*models.Island {
	var out []*models.Island
	c.islands.Range(func(_, v any) bool {
		out = append(out, v.(*models.Island))
		return true
	})
	return out
}

// Stats is a point-in-time summary of the cache.
type Stats struct {
	Islands        int
	Memberships    int
	IndexedPlayers int
	Hits           uint64
	Misses         uint64
	EstimatedBytes uint64
}

func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"islands=%d memberships=%d indexed=%d hits=%d misses=%d hit_rate=%.1f%% memory~%s",
		s.Islands, s.Memberships, s.IndexedPlayers, s.Hits, s.Misses, s.HitRate()*100,
		humanize.Bytes(s.EstimatedBytes),
	)
}

func (c *Cache) Stats() Stats {
	var s Stats
	c.islands.Range(func(_, v any) bool {
		s.Islands++
		s.EstimatedBytes += estimateIslandBytes(v.(*models.Island))
		return true
	})
	c.memberships.Range(func(_, _ any) bool {
		s.Memberships++
		return true
	})
	c.playerIndex.Range(func(_, _ any) bool {
		s.IndexedPlayers++
		return true
	})
	s.EstimatedBytes += uint64(s.Memberships)*membershipBytes + uint64(s.IndexedPlayers)*indexEntryBytes
	s.Hits = c.metrics.Hits.Load()
	s.Misses = c.metrics.Misses.Load()
	return s
}

func estimateIslandBytes(island *models.Island) uint64 {
	n := uint64(islandBaseBytes)
	n += uint64(len(island.Members)+len(island.Workers)) * memberBytes
	n += uint64(len(island.Contributions)) * contributionBytes
	n += uint64(len(island.RecentVisits)) * visitBytes
	n += uint64(len(island.PendingInvites)) * inviteBytes
	n += uint64(len(island.Spawn.Personal)) * contributionBytes
	return n
}

// Clear drops every entry but keeps the counters.
func (c *Cache) Clear() {
	c.islands.Clear()
	c.memberships.Clear()
	c.playerIndex.Clear()
}

func (c *Cache) ResetStats() {
	c.metrics.reset()
}
