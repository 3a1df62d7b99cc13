package world

import (
	"sync"
	"time"

	"github.com/erinngo/server/internal/net"
)

// Position is a point inside a region.
type Position struct {
	X int32
	Y int32
}

// InRange reports whether o is within r of p (Euclidean).
func (p Position) InRange(o Position, r int32) bool {
	dx := int64(p.X - o.X)
	dy := int64(p.Y - o.Y)
	return dx*dx+dy*dy <= int64(r)*int64(r)
}

// ConditionDead marks a knocked out creature until it is revived.
const ConditionDead = "dead"

type CreatureKind uint8

const (
	KindPlayer CreatureKind = iota
	KindNPC
)

// Creature is a player character or an NPC. Location and condition state
// are guarded by the creature's own mutex; identity fields are fixed at
// creation.
type Creature struct {
	EntityID  int64
	Name      string
	Kind      CreatureKind
	Session   *net.Session // players only
	Authority int          // players only
	Good      bool         // NPC is friendly
	Scripted  bool         // spawned by scripts, removed on script reload
	ScriptGen int          // script load that spawned it
	Script    string       // NPC dialog script; empty when the NPC cannot be talked to
	Race      int32

	mu         sync.Mutex
	regionID   int32
	pos        Position
	invisible  bool
	conditions map[string]time.Time // name → expiry
}

func NewPlayer(id int64, name string, sess *net.Session, authority int) *Creature {
	return &Creature{EntityID: id, Name: name, Kind: KindPlayer, Session: sess, Authority: authority}
}

func NewNPC(id int64, name string, race int32, script string) *Creature {
	return &Creature{EntityID: id, Name: name, Kind: KindNPC, Race: race, Script: script, Good: true}
}

func (c *Creature) IsPlayer() bool { return c.Kind == KindPlayer }

func (c *Creature) RegionID() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regionID
}

func (c *Creature) Position() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *Creature) setLocation(regionID int32, pos Position) {
	c.mu.Lock()
	c.regionID = regionID
	c.pos = pos
	c.mu.Unlock()
}

func (c *Creature) setPosition(pos Position) {
	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
}

func (c *Creature) Invisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invisible
}

func (c *Creature) SetInvisible(v bool) {
	c.mu.Lock()
	c.invisible = v
	c.mu.Unlock()
}

// AddCondition applies a timed condition that expires at until.
func (c *Creature) AddCondition(name string, until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conditions == nil {
		c.conditions = make(map[string]time.Time)
	}
	c.conditions[name] = until
}

// RemoveCondition clears a condition before it expires.
func (c *Creature) RemoveCondition(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.conditions[name]; !ok {
		return false
	}
	delete(c.conditions, name)
	return true
}

func (c *Creature) HasCondition(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.conditions[name]
	return ok
}

// update expires timed conditions and returns their names.
func (c *Creature) update(now time.Time) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expired []string
	for name, until := range c.conditions {
		if !now.Before(until) {
			delete(c.conditions, name)
			expired = append(expired, name)
		}
	}
	return expired
}

// Prop is a static or interactive object placed in a region.
type Prop struct {
	EntityID int64
	PropID   int32
	Pos      Position
	DropType  int32 // 0 = drops nothing when hit
	Scripted  bool
	ScriptGen int
}
