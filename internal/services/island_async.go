package services

import (
	"context"

	"github.com/mroshb/islands/internal/dispatch"
	"github.com/mroshb/islands/internal/island"
)

// The Async variants run a workflow on the pool and return at once. Jobs are
// keyed by player or island id, so calls for the same key complete in the
// order they were made. Without a pool they run inline.

func run[T any](s *IslandService, key string, fn func() (T, error)) *dispatch.Future[T] {
	if s.pool == nil {
		v, err := fn()
		return dispatch.Resolved(v, err)
	}
	return dispatch.Go(s.pool, key, fn)
}

func (s *IslandService) CreateIslandAsync(ctx context.Context, ownerID, ownerName, name string) *dispatch.Future[*island.Island] {
	return run(s, "player:"+ownerID, func() (*island.Island, error) {
		return s.CreateIsland(ctx, ownerID, ownerName, name)
	})
}

func (s *IslandService) DeleteIslandAsync(ctx context.Context, islandID string) *dispatch.Future[bool] {
	return run(s, "island:"+islandID, func() (bool, error) {
		err := s.DeleteIsland(ctx, islandID)
		return err == nil, err
	})
}

func (s *IslandService) ResetIslandAsync(ctx context.Context, islandID string) *dispatch.Future[*island.Island] {
	return run(s, "island:"+islandID, func() (*island.Island, error) {
		return s.ResetIsland(ctx, islandID)
	})
}

func (s *IslandService) LoadIslandAsync(ctx context.Context, islandID string) *dispatch.Future[*island.Island] {
	return run(s, "island:"+islandID, func() (*island.Island, error) {
		return s.LoadIsland(ctx, islandID)
	})
}

func (s *IslandService) GetPlayerIslandAsync(ctx context.Context, playerID string) *dispatch.Future[*island.Island] {
	return run(s, "player:"+playerID, func() (*island.Island, error) {
		return s.GetPlayerIsland(ctx, playerID)
	})
}
