package world

// Time events raised by the heartbeat, in this order within one pulse.

type SecondsTick struct{ Now ErinnTime }

type MinutesTick struct{ Now ErinnTime }

// MabiTick fires on every 5th minute tick.
type MabiTick struct{ Now ErinnTime }

type HoursTick struct{ Now ErinnTime }

// ErinnTimeTick fires once per Erinn minute (1.5 s).
type ErinnTimeTick struct{ Now ErinnTime }

// ErinnDaytimeTick fires once when the Erinn clock passes dawn or dusk.
type ErinnDaytimeTick struct {
	Now  ErinnTime
	Dusk bool
}

// ErinnMidnightTick fires once when the Erinn clock passes midnight.
type ErinnMidnightTick struct{ Now ErinnTime }
