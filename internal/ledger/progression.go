package ledger

import (
	"math"
	"time"
)

// Level describes where an xp total sits in the level table.
type Level struct {
	Index    int
	Name     string
	Progress int64
	Goal     int64
}

type levelStep struct {
	threshold int64 // cumulative xp needed to leave this level
	name      string
}

var levels = []levelStep{
	{threshold: 10_000, name: "Lurker"},
	{threshold: 50_000, name: "Newcomer"},
	{threshold: 150_000, name: "Regular"},
	{threshold: 400_000, name: "Contributor"},
	{threshold: 1_000_000, name: "Maker"},
	{threshold: 2_500_000, name: "Shipper"},
	{threshold: 6_000_000, name: "Hacker"},
	{threshold: 15_000_000, name: "Wizard"},
	{threshold: 40_000_000, name: "Legend"},
}

// XPLevel finds the smallest level whose threshold exceeds xp. Totals past
// the table stay on the last level.
func XPLevel(xp int64) Level {
	idx := len(levels) - 1
	for i, l := range levels {
		if l.threshold > xp {
			idx = i
			break
		}
	}

	var floor int64
	if idx > 0 {
		floor = levels[idx-1].threshold
	}

	return Level{
		Index:    idx,
		Name:     levels[idx].name,
		Progress: xp - floor,
		Goal:     levels[idx].threshold - floor,
	}
}

// AddXP decays heat by one unit per elapsed second, adds earned to heat and
// grants xp damped by the cumulative xp needed to finish the current level.
// Heat may go negative and is not read by the damping.
func (a *Account) AddXP(now time.Time, earned int64) {
	if !a.LastXPAt.IsZero() {
		a.Heat -= now.Sub(a.LastXPAt).Seconds()
	}

	a.LastXPAt = now
	a.Heat += float64(earned)

	total := float64(levels[XPLevel(a.XP).Index].threshold)
	factor := math.Max(0.1, 1-float64(earned)/(total/100))
	boost := float64(earned) * factor

	a.XP += int64(math.Floor(boost))
}
