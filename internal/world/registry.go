package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/erinngo/server/internal/data"
	"github.com/erinngo/server/internal/metrics"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

var ErrRegionNotFound = errors.New("region not found")

// Registry owns every region of the world. One lock guards the region map
// for add/remove, for lookups and for full iteration, so no query ever
// observes a region half-added or half-removed.
//
// Lock order: the registry lock is taken before any region lock. Callbacks
// passed to ForEach must not call back into the registry.
type Registry struct {
	mu      deadlock.Mutex
	regions map[int32]*Region

	IDs          *EntityIDs
	visibleRange int32
	metrics      *metrics.Metrics
	log          *zap.Logger
}

func NewRegistry(visibleRange int32, m *metrics.Metrics, log *zap.Logger) *Registry {
	return &Registry{
		regions:      make(map[int32]*Region),
		IDs:          NewEntityIDs(),
		visibleRange: visibleRange,
		metrics:      m,
		log:          log,
	}
}

// AddRegion registers an empty region. A duplicate id is logged and ignored;
// the result reports whether the region was added.
func (r *Registry) AddRegion(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(id, "")
}

func (r *Registry) addLocked(id int32, name string) bool {
	if _, ok := r.regions[id]; ok {
		r.log.Warn("區域已存在", zap.Int32("region", id))
		return false
	}
	r.regions[id] = NewRegion(id, name, r.visibleRange, r.log)
	r.metrics.Regions.Set(float64(len(r.regions)))
	return true
}

// AddRegionsFromData registers every region of the table and returns how
// many were added.
func (r *Registry) AddRegionsFromData(table *data.RegionTable) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, info := range table.All() {
		if r.addLocked(info.ID, info.Name) {
			n++
		}
	}
	return n
}

// RemoveRegion drops the region; it reports whether it existed.
func (r *Registry) RemoveRegion(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.regions[id]; !ok {
		return false
	}
	delete(r.regions, id)
	r.metrics.Regions.Set(float64(len(r.regions)))
	return true
}

func (r *Registry) GetRegion(id int32) *Region {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.regions[id]
}

func (r *Registry) HasRegion(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.regions[id]
	return ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regions)
}

// ForEach calls fn for every region while holding the registry lock.
func (r *Registry) ForEach(fn func(*Region)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rg := range r.regions {
		fn(rg)
	}
}

// find returns the first non-nil result of fn over the regions.
func find[T any](r *Registry, fn func(*Region) *T) *T {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rg := range r.regions {
		if v := fn(rg); v != nil {
			return v
		}
	}
	return nil
}

// GetPlayer finds an online player by name in any region.
func (r *Registry) GetPlayer(name string) *Creature {
	return find(r, func(rg *Region) *Creature { return rg.GetPlayer(name) })
}

func (r *Registry) GetCreature(id int64) *Creature {
	return find(r, func(rg *Region) *Creature { return rg.GetCreature(id) })
}

func (r *Registry) GetCreatureByName(name string) *Creature {
	return find(r, func(rg *Region) *Creature { return rg.GetCreatureByName(name) })
}

func (r *Registry) GetNpc(id int64) *Creature {
	return find(r, func(rg *Region) *Creature { return rg.GetNpc(id) })
}

func (r *Registry) GetProp(id int64) *Prop {
	return find(r, func(rg *Region) *Prop { return rg.GetProp(id) })
}

func (r *Registry) GetAllPlayers() []*Creature {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*Creature
	for _, rg := range r.regions {
		result = rg.GetAllPlayers(result)
	}
	return result
}

func (r *Registry) GetAllGoodNpcs() []*Creature {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*Creature
	for _, rg := range r.regions {
		result = rg.GetAllGoodNpcs(result)
	}
	return result
}

// Broadcast sends p to every player in the world.
func (r *Registry) Broadcast(p *packet.Packet) {
	r.ForEach(func(rg *Region) { rg.Broadcast(p) })
}

// UpdateEntities runs the per-entity update of every region.
func (r *Registry) UpdateEntities(now time.Time) {
	r.ForEach(func(rg *Region) { rg.UpdateEntities(now) })
}

// RemoveScriptedEntities clears NPCs and props spawned by script load gen
// in every region.
func (r *Registry) RemoveScriptedEntities(gen int) int {
	n := 0
	r.ForEach(func(rg *Region) { n += rg.RemoveScriptedEntities(gen) })
	return n
}

// Warp moves c into another region. The two region locks are never held
// at the same time.
func (r *Registry) Warp(c *Creature, regionID int32, pos Position) error {
	r.mu.Lock()
	from := r.regions[c.RegionID()]
	to := r.regions[regionID]
	r.mu.Unlock()

	if to == nil {
		return fmt.Errorf("warp %d: %w", regionID, ErrRegionNotFound)
	}
	if from == to {
		from.MoveCreature(c, pos)
		return nil
	}
	if from != nil && from.RemoveCreature(c) {
		from.BroadcastFrom(EntityDisappearsPacket(c.EntityID), c)
	}
	to.AddCreature(c, pos)
	return nil
}
