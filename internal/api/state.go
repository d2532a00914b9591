package api

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	runTTL          = time.Hour
	cleanupInterval = 10 * time.Minute
)

// runsCache maps run ids to their actors. Entries expire after runTTL.
type runsCache struct {
	ids *cache.Cache
}

func newRunsCache() *runsCache {
	return &runsCache{
		ids: cache.New(runTTL, cleanupInterval),
	}
}

func (s *runsCache) remove(id uuid.UUID) {
	s.ids.Delete(id.String())
}

func (s *runsCache) add(id uuid.UUID, pid *actor.PID) {
	s.ids.SetDefault(id.String(), pid)
}

func (s *runsCache) get(id uuid.UUID) (*actor.PID, bool) {
	v, ok := s.ids.Get(id.String())
	if !ok {
		return nil, false
	}
	pid, ok := v.(*actor.PID)
	return pid, ok
}
