package world

import (
	"math/rand"
	"strings"
	"time"

	"github.com/erinngo/server/internal/net/packet"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// Region is one map of the world and everything currently in it. All
// methods are safe for concurrent use. Lock order is registry before region;
// nothing in here calls back into the registry.
type Region struct {
	ID   int32
	Name string

	mu           deadlock.RWMutex
	creatures    map[int64]*Creature
	items        map[int64]*GroundItem
	props        map[int64]*Prop
	grid         *aoiGrid
	visibleRange int32

	log *zap.Logger
}

func NewRegion(id int32, name string, visibleRange int32, log *zap.Logger) *Region {
	return &Region{
		ID:           id,
		Name:         name,
		creatures:    make(map[int64]*Creature),
		items:        make(map[int64]*GroundItem),
		props:        make(map[int64]*Prop),
		grid:         newAOIGrid(visibleRange),
		visibleRange: visibleRange,
		log:          log.With(zap.Int32("region", id)),
	}
}

// AddCreature places c at pos in this region.
func (r *Region) AddCreature(c *Creature, pos Position) {
	c.setLocation(r.ID, pos)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creatures[c.EntityID] = c
	r.grid.add(c.EntityID, pos)
}

// RemoveCreature removes c; it reports whether c was in the region.
func (r *Region) RemoveCreature(c *Creature) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creatures[c.EntityID]; !ok {
		return false
	}
	delete(r.creatures, c.EntityID)
	r.grid.remove(c.EntityID, c.Position())
	return true
}

// MoveCreature changes c's position inside the region.
func (r *Region) MoveCreature(c *Creature, pos Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creatures[c.EntityID]; !ok {
		return
	}
	r.grid.move(c.EntityID, c.Position(), pos)
	c.setPosition(pos)
}

func (r *Region) GetCreature(id int64) *Creature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.creatures[id]
}

// GetNpc returns the NPC with the given id, or nil.
func (r *Region) GetNpc(id int64) *Creature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c := r.creatures[id]; c != nil && c.Kind == KindNPC {
		return c
	}
	return nil
}

// GetPlayer finds a player by name, case-insensitively.
func (r *Region) GetPlayer(name string) *Creature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.creatures {
		if c.Kind == KindPlayer && strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// GetCreatureByName finds any creature by name, case-insensitively.
func (r *Region) GetCreatureByName(name string) *Creature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.creatures {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// GetAllPlayers appends the region's players to dst.
func (r *Region) GetAllPlayers(dst []*Creature) []*Creature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.creatures {
		if c.Kind == KindPlayer {
			dst = append(dst, c)
		}
	}
	return dst
}

// GetAllGoodNpcs appends the region's friendly NPCs to dst.
func (r *Region) GetAllGoodNpcs(dst []*Creature) []*Creature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.creatures {
		if c.Kind == KindNPC && c.Good {
			dst = append(dst, c)
		}
	}
	return dst
}

func (r *Region) CountPlayers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, c := range r.creatures {
		if c.Kind == KindPlayer {
			n++
		}
	}
	return n
}

func (r *Region) AddItem(it *GroundItem) {
	r.mu.Lock()
	r.items[it.EntityID] = it
	r.mu.Unlock()
}

func (r *Region) RemoveItem(id int64) *GroundItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.items[id]
	delete(r.items, id)
	return it
}

func (r *Region) GetItem(id int64) *GroundItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items[id]
}

func (r *Region) AddProp(p *Prop) {
	r.mu.Lock()
	r.props[p.EntityID] = p
	r.mu.Unlock()
}

func (r *Region) RemoveProp(id int64) *Prop {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.props[id]
	delete(r.props, id)
	return p
}

func (r *Region) GetProp(id int64) *Prop {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.props[id]
}

// Broadcast sends p to every player in the region.
func (r *Region) Broadcast(p *packet.Packet) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.broadcastLocked(p)
}

func (r *Region) broadcastLocked(p *packet.Packet) {
	for _, c := range r.creatures {
		if c.Session != nil {
			c.Session.Send(p)
		}
	}
}

// BroadcastFrom sends p to the players within visible range of source.
func (r *Region) BroadcastFrom(p *packet.Packet, source *Creature) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.broadcastRangeLocked(p, source.Position())
}

func (r *Region) broadcastRangeLocked(p *packet.Packet, origin Position) {
	for _, id := range r.grid.nearby(origin) {
		c := r.creatures[id]
		if c == nil || c.Session == nil {
			continue
		}
		if c.Position().InRange(origin, r.visibleRange) {
			c.Session.Send(p)
		}
	}
}

// UpdateEntities advances per-entity timers: creature conditions expire and
// ground items past their lifetime are removed.
func (r *Region) UpdateEntities(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.creatures {
		for _, name := range c.update(now) {
			r.log.Debug("狀態結束", zap.Int64("entity", c.EntityID), zap.String("condition", name))
		}
	}

	for id, it := range r.items {
		if !it.expired(now) {
			continue
		}
		delete(r.items, id)
		r.broadcastRangeLocked(EntityDisappearsPacket(id), it.Pos)
	}
}

// RemoveScriptedEntities removes NPCs and props spawned by script load gen
// and returns how many were removed.
func (r *Region) RemoveScriptedEntities(gen int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, c := range r.creatures {
		if c.Kind == KindNPC && c.Scripted && c.ScriptGen == gen {
			delete(r.creatures, id)
			r.grid.remove(id, c.Position())
			n++
		}
	}
	for id, p := range r.props {
		if p.Scripted && p.ScriptGen == gen {
			delete(r.props, id)
			n++
		}
	}
	return n
}

// DropFromProp spawns a ground item next to prop and shows it to nearby
// players.
func (r *Region) DropFromProp(prop *Prop, itemID, amount int32, entityID int64, lifetime time.Duration, now time.Time, rng *rand.Rand) *GroundItem {
	const spread = 50
	it := &GroundItem{
		EntityID: entityID,
		ItemID:   itemID,
		Amount:   amount,
		Pos: Position{
			X: prop.Pos.X + int32(rng.Intn(2*spread+1)) - spread,
			Y: prop.Pos.Y + int32(rng.Intn(2*spread+1)) - spread,
		},
	}
	if lifetime > 0 {
		it.DisappearAt = now.Add(lifetime)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.EntityID] = it
	r.broadcastRangeLocked(ItemAppearsPacket(r.ID, it), it.Pos)
	return it
}
