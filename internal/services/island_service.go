package services

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mroshb/islands/internal/cache"
	"github.com/mroshb/islands/internal/dispatch"
	"github.com/mroshb/islands/internal/island"
	"github.com/mroshb/islands/internal/middleware"
	"github.com/mroshb/islands/internal/models"
	"github.com/mroshb/islands/internal/world"
	"github.com/mroshb/islands/pkg/errors"
	"github.com/mroshb/islands/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Store is the persistence adapter the service writes through. Writes report
// success, reads report whether anything was found.
type Store interface {
	SaveIsland(ctx context.Context, island *models.Island) bool
	LoadIsland(ctx context.Context, islandID string) (*models.Island, bool)
	DeleteIsland(ctx context.Context, islandID string) bool
	SavePlayerMembership(ctx context.Context, membership *models.PlayerMembership) bool
	LoadPlayerMembership(ctx context.Context, playerID string) (*models.PlayerMembership, bool)
	LoadPublicIslands(ctx context.Context, limit int) ([]*models.Island, bool)
	LoadAllIslands(ctx context.Context) ([]*models.Island, bool)
	LoadAllPlayerMemberships(ctx context.Context) ([]*models.PlayerMembership, bool)
	LoadIslandMemberships(ctx context.Context, islandID string) ([]*models.PlayerMembership, bool)
	CountOwnedIslands(ctx context.Context, playerID string) (int64, bool)
}

type Options struct {
	Rules        island.Rules
	InviteTTL    time.Duration
	InviteSecret string

	// Limiter throttles mutating workflows per player. Nil disables it.
	Limiter *middleware.RateLimiter
	// Pool runs the Async variants. Nil makes them run inline.
	Pool *dispatch.Pool
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// IslandService coordinates the cache, the store and the world manager.
// Mutations of one island are serialised by an island lock; workflows that
// change a player's affiliation also take the player lock first.
type IslandService struct {
	cache *cache.Cache
	store Store
	world world.Manager

	rules        island.Rules
	inviteTTL    time.Duration
	inviteSecret string
	limiter      *middleware.RateLimiter
	pool         *dispatch.Pool
	now          func() time.Time

	playerLocks *dispatch.KeyedMutex
	islandLocks *dispatch.KeyedMutex

	workflows   atomic.Pointer[prometheus.CounterVec]
	metricsOnce sync.Once
}

func NewIslandService(c *cache.Cache, store Store, wm world.Manager, opts Options) *IslandService {
	if opts.Rules.StarterSize <= 0 {
		opts.Rules.StarterSize = island.DefaultRules().StarterSize
	}
	if opts.Rules.DeleteCooldown <= 0 {
		opts.Rules.DeleteCooldown = island.DefaultRules().DeleteCooldown
	}
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &IslandService{
		cache:        c,
		store:        store,
		world:        wm,
		rules:        opts.Rules,
		inviteTTL:    opts.InviteTTL,
		inviteSecret: opts.InviteSecret,
		limiter:      opts.Limiter,
		pool:         opts.Pool,
		now:          opts.Now,
		playerLocks:  dispatch.NewKeyedMutex(),
		islandLocks:  dispatch.NewKeyedMutex(),
	}
}

func (s *IslandService) allow(playerID string) error {
	if s.limiter != nil && !s.limiter.Allow(playerID) {
		return errors.New(errors.ErrCodeRateLimitExceeded, "too many island actions, try again later")
	}
	return nil
}

// LoadIsland returns the island from the cache, falling back to the store and
// filling the cache on a store hit.
func (s *IslandService) LoadIsland(ctx context.Context, islandID string) (*island.Island, error) {
	if rec, ok := s.cache.GetIsland(islandID); ok {
		return island.FromRecord(rec), nil
	}
	rec, ok := s.store.LoadIsland(ctx, islandID)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "island not found")
	}
	s.cache.PutIsland(rec)
	s.cache.IndexMembers(rec)
	return island.FromRecord(rec), nil
}

// GetPlayerMembership returns the player's membership, or a fresh one with no
// island when the player is unknown.
func (s *IslandService) GetPlayerMembership(ctx context.Context, playerID string) *island.Membership {
	return s.membershipFor(ctx, playerID)
}

func (s *IslandService) membershipFor(ctx context.Context, playerID string) *island.Membership {
	if rec, ok := s.cache.GetPlayerMembership(playerID); ok {
		return island.MembershipFromRecord(rec)
	}
	if rec, ok := s.store.LoadPlayerMembership(ctx, playerID); ok {
		s.cache.PutPlayerMembership(rec)
		return island.MembershipFromRecord(rec)
	}
	return island.NewMembership(playerID)
}

// saveMembership persists m and mirrors it into the cache on success.
func (s *IslandService) saveMembership(ctx context.Context, m *island.Membership) bool {
	rec := m.Record()
	if !s.store.SavePlayerMembership(ctx, rec) {
		return false
	}
	s.cache.PutPlayerMembership(rec)
	return true
}

// GetPlayerIsland returns the island the player owns, belongs to or works on.
func (s *IslandService) GetPlayerIsland(ctx context.Context, playerID string) (*island.Island, error) {
	islandID, ok := s.cache.GetPlayerIslandID(playerID)
	if !ok {
		m := s.membershipFor(ctx, playerID)
		if !m.HasIsland() {
			return nil, errors.New(errors.ErrCodeNotFound, "player has no island")
		}
		islandID = m.IslandID()
	}

	isl, err := s.LoadIsland(ctx, islandID)
	if err != nil {
		return nil, err
	}
	if isl.RoleOf(playerID) == models.RoleNone {
		s.cache.UnindexPlayer(playerID, islandID)
		logger.Warn("Player points at an island that does not list them",
			"player_id", playerID, "island_id", islandID)
		return nil, errors.New(errors.ErrCodeNotFound, "player has no island")
	}
	return isl, nil
}

// IslandAt returns the cached island containing loc. It scans every cached
// island, so it suits a few thousand islands at most.
func (s *IslandService) IslandAt(loc models.Location) (*island.Island, bool) {
	if !s.world.IsIslandSpace(loc.World) {
		return nil, false
	}
	for _, rec := range s.cache.AllIslands() {
		isl := island.FromRecord(rec)
		if !isl.RegionCleared() && isl.Contains(loc) {
			return isl, true
		}
	}
	return nil, false
}

// PublicIslands lists up to limit public islands, most recently active first.
// Offline it answers from the cache.
func (s *IslandService) PublicIslands(ctx context.Context, limit int) []*island.Island {
	var records []*models.Island
	if recs, ok := s.store.LoadPublicIslands(ctx, limit); ok {
		records = recs
	} else {
		for _, rec := range s.cache.AllIslands() {
			if rec.IsPublic {
				records = append(records, rec)
			}
		}
		slices.SortFunc(records, func(a, b *models.Island) int {
			return b.LastActivity.Compare(a.LastActivity)
		})
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
	}

	out := make([]*island.Island, len(records))
	for i, rec := range records {
		out[i] = island.FromRecord(rec)
	}
	return out
}

// CacheStats summarises the cache for logs and admin output.
func (s *IslandService) CacheStats() string {
	return s.cache.Stats().String()
}

// LoadAll warms the cache from the store and rebuilds the player index.
// Memberships that point at islands which no longer list the player are
// cleared; these are left behind when a delete could not save every member.
func (s *IslandService) LoadAll(ctx context.Context) error {
	var (
		islands     []*models.Island
		memberships []*models.PlayerMembership
		islandsOK   bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		islands, islandsOK = s.store.LoadAllIslands(gctx)
		return nil
	})
	g.Go(func() error {
		memberships, _ = s.store.LoadAllPlayerMemberships(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if !islandsOK {
		logger.Info("No islands loaded from store, starting with an empty cache")
		return nil
	}

	byID := make(map[string]*models.Island, len(islands))
	for _, rec := range islands {
		byID[rec.ID] = rec
		s.cache.PutIsland(rec)
		s.cache.IndexMembers(rec)
	}

	now := s.now()
	healed := 0
	for _, rec := range memberships {
		m := island.MembershipFromRecord(rec)
		if m.HasIsland() {
			owner, ok := byID[m.IslandID()]
			if !ok || owner.RoleOf(m.PlayerID()) == models.RoleNone {
				m = m.Leave(now)
				healed++
				if !s.store.SavePlayerMembership(ctx, m.Record()) {
					logger.Warn("Failed to persist healed membership", "player_id", m.PlayerID())
				}
			}
		}
		s.cache.PutPlayerMembership(m.Record())
	}

	logger.Info("Island cache warmed",
		"islands", len(islands),
		"memberships", len(memberships),
		"healed_memberships", healed,
	)
	return nil
}
