package world

import (
	"fmt"
	"time"
)

// Erinn time runs 40 times faster than real time: one Erinn minute lasts
// 1.5 real seconds and an Erinn day 36 real minutes. The Unix epoch and
// 0001-01-01 both fall on an Erinn midnight.
const (
	ErinnMinute = 1500 * time.Millisecond
	ErinnHour   = 60 * ErinnMinute
	ErinnDay    = 24 * ErinnHour

	erinnMinutesPerDay = 24 * 60
	dawnMinute         = 6 * 60
	duskMinute         = 18 * 60
)

// ErinnTime is a real instant together with its Erinn clock reading.
type ErinnTime struct {
	Time   time.Time
	Hour   int
	Minute int
	abs    int64 // Erinn minutes since the Unix epoch
}

// NewErinnTime reads the Erinn clock at t. The clock follows the wall time
// of t's location.
func NewErinnTime(t time.Time) ErinnTime {
	_, offset := t.Zone()
	ms := t.UnixMilli() + int64(offset)*1000
	abs := floorDiv(ms, ErinnMinute.Milliseconds())
	mod := floorMod(abs, erinnMinutesPerDay)
	return ErinnTime{
		Time:   t,
		Hour:   int(mod / 60),
		Minute: int(mod % 60),
		abs:    abs,
	}
}

// AbsMinute returns the number of Erinn minutes since the Unix epoch.
func (e ErinnTime) AbsMinute() int64 { return e.abs }

// Day returns the number of Erinn days since the Unix epoch.
func (e ErinnTime) Day() int64 { return floorDiv(e.abs, erinnMinutesPerDay) }

func (e ErinnTime) IsDawn() bool     { return e.Hour == 6 && e.Minute == 0 }
func (e ErinnTime) IsDusk() bool     { return e.Hour == 18 && e.Minute == 0 }
func (e ErinnTime) IsMidnight() bool { return e.Hour == 0 && e.Minute == 0 }

// IsNight reports whether it is between dusk and dawn.
func (e ErinnTime) IsNight() bool { return e.Hour >= 18 || e.Hour < 6 }

func (e ErinnTime) IsDay() bool { return !e.IsNight() }

func (e ErinnTime) String() string {
	return fmt.Sprintf("%02d:%02d", e.Hour, e.Minute)
}

// lastBoundary returns the latest absolute Erinn minute <= cur whose
// minute-of-day is one of offsets.
func lastBoundary(cur int64, offsets ...int64) int64 {
	day := floorDiv(cur, erinnMinutesPerDay)
	best := int64(-1 << 62)
	for d := day - 1; d <= day; d++ {
		for _, off := range offsets {
			if b := d*erinnMinutesPerDay + off; b <= cur && b > best {
				best = b
			}
		}
	}
	return best
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
