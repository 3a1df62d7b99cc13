package world

import (
	"testing"
	"time"
)

func TestErinnClock(t *testing.T) {
	epoch := time.UnixMilli(0).UTC()
	tests := []struct {
		name         string
		at           time.Time
		hour, minute int
		night        bool
	}{
		{"unix epoch is midnight", epoch, 0, 0, true},
		{"year one is midnight", time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), 0, 0, true},
		{"one erinn minute", epoch.Add(ErinnMinute), 0, 1, true},
		{"just before a minute", epoch.Add(ErinnMinute - time.Millisecond), 0, 0, true},
		{"dawn", epoch.Add(6 * ErinnHour), 6, 0, false},
		{"noon", epoch.Add(12 * ErinnHour), 12, 0, false},
		{"dusk", epoch.Add(18 * ErinnHour), 18, 0, true},
		{"late night", epoch.Add(23*ErinnHour + 59*ErinnMinute), 23, 59, true},
		{"next day wraps", epoch.Add(ErinnDay + 90*time.Second), 1, 0, true},
		{"before epoch", epoch.Add(-ErinnMinute), 23, 59, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewErinnTime(tt.at)
			if e.Hour != tt.hour || e.Minute != tt.minute {
				t.Fatalf("got %s, want %02d:%02d", e, tt.hour, tt.minute)
			}
			if e.IsNight() != tt.night {
				t.Errorf("IsNight = %v, want %v", e.IsNight(), tt.night)
			}
		})
	}
}

func TestErinnBoundaryPredicates(t *testing.T) {
	epoch := time.UnixMilli(0).UTC()
	if !NewErinnTime(epoch).IsMidnight() {
		t.Error("epoch not midnight")
	}
	if !NewErinnTime(epoch.Add(6 * ErinnHour)).IsDawn() {
		t.Error("06:00 not dawn")
	}
	if !NewErinnTime(epoch.Add(18 * ErinnHour)).IsDusk() {
		t.Error("18:00 not dusk")
	}
	if NewErinnTime(epoch.Add(18*ErinnHour + ErinnMinute)).IsDusk() {
		t.Error("18:01 reported as dusk")
	}
	if d := NewErinnTime(epoch.Add(3 * ErinnDay)).Day(); d != 3 {
		t.Errorf("Day = %d, want 3", d)
	}
}

func TestErinnFollowsLocalWallClock(t *testing.T) {
	// same instant, wall clock one real hour ahead = 40 Erinn hours ahead
	utc := time.UnixMilli(0).UTC()
	plusOne := utc.In(time.FixedZone("X", 3600))
	e := NewErinnTime(plusOne)
	if e.Hour != 16 || e.Minute != 0 {
		t.Fatalf("got %s, want 16:00", e)
	}
}

func TestLastBoundary(t *testing.T) {
	day := int64(erinnMinutesPerDay)
	tests := []struct {
		cur  int64
		want int64
	}{
		{5*day + 360, 5*day + 360},
		{5*day + 361, 5*day + 360},
		{5*day + 1079, 5*day + 360},
		{5*day + 1080, 5*day + 1080},
		{5*day + 100, 4*day + 1080},
	}
	for _, tt := range tests {
		if got := lastBoundary(tt.cur, dawnMinute, duskMinute); got != tt.want {
			t.Errorf("lastBoundary(%d) = %d, want %d", tt.cur, got, tt.want)
		}
	}
}
