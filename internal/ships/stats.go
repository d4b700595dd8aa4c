package ships

import (
	"cmp"
	"slices"
)

// Variant aggregates ships whose top reaction was the same emoji.
type Variant struct {
	Name       string
	Ships      int
	Sum        int
	MessageIDs []string
}

// Fan is a user who reacted with the top reaction on some ships.
type Fan struct {
	User  string
	Ships int
	// Percent of the summarised ships, rounded to one decimal.
	Percent float64
}

type Summary struct {
	Ships    int
	Total    int
	Variants []Variant
	Fans     []Fan
}

const maxFans = 5

// Summarize ranks reaction variants by ship count then reaction sum, and
// lists the top fans.
func Summarize(obs []Observation) Summary {
	s := Summary{Ships: len(obs)}

	byName := make(map[string]*Variant)
	var names []string

	fanShips := make(map[string]int)
	var fanOrder []string

	for _, o := range obs {
		s.Total += o.TopReactionCount

		v, ok := byName[o.TopReactionName]
		if !ok {
			v = &Variant{Name: o.TopReactionName}
			byName[o.TopReactionName] = v
			names = append(names, o.TopReactionName)
		}

		v.Ships++
		v.Sum += o.TopReactionCount
		v.MessageIDs = append(v.MessageIDs, o.MessageID)

		for _, u := range o.ReactingUserIDs {
			if _, seen := fanShips[u]; !seen {
				fanOrder = append(fanOrder, u)
			}

			fanShips[u]++
		}
	}

	for _, n := range names {
		s.Variants = append(s.Variants, *byName[n])
	}

	slices.SortStableFunc(s.Variants, func(a, b Variant) int {
		return cmp.Or(cmp.Compare(b.Ships, a.Ships), cmp.Compare(b.Sum, a.Sum))
	})

	for _, u := range fanOrder {
		s.Fans = append(s.Fans, Fan{User: u, Ships: fanShips[u]})
	}

	slices.SortStableFunc(s.Fans, func(a, b Fan) int { return cmp.Compare(b.Ships, a.Ships) })

	if len(s.Fans) > maxFans {
		s.Fans = s.Fans[:maxFans]
	}

	for i := range s.Fans {
		pct := float64(s.Fans[i].Ships) / float64(s.Ships) * 1000
		s.Fans[i].Percent = float64(int64(pct+0.5)) / 10
	}

	return s
}
