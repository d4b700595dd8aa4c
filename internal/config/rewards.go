package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rewards tunes passgo and transfer progression.
type Rewards struct {
	CentsPerUnit int64 `yaml:"cents_per_unit"`

	BaseFigChance    float64 `yaml:"base_fig_chance"`
	BoostedFigChance float64 `yaml:"boosted_fig_chance"`
	// BoostBelowCents is the running total under which BoostedFigChance applies.
	BoostBelowCents int64 `yaml:"boost_below_cents"`

	HackerFigBonus   int64 `yaml:"hacker_fig_bonus"`
	EmojiFigBonusMin int64 `yaml:"emoji_fig_bonus_min"`
	EmojiFigBonusMax int64 `yaml:"emoji_fig_bonus_max"`

	FirstContactXP int64 `yaml:"first_contact_xp"`
	TransactionXP  int64 `yaml:"transaction_xp"`
	MaxSizeXP      int64 `yaml:"max_size_xp"`
	CentsPerSizeXP int64 `yaml:"cents_per_size_xp"`
}

func DefaultRewards() Rewards {
	return Rewards{
		CentsPerUnit:     100,
		BaseFigChance:    0.018 / 5,
		BoostedFigChance: 0.018,
		BoostBelowCents:  100 * 100,
		HackerFigBonus:   500,
		EmojiFigBonusMin: 35,
		EmojiFigBonusMax: 45,
		FirstContactXP:   1000,
		TransactionXP:    100,
		MaxSizeXP:        100,
		CentsPerSizeXP:   1000,
	}
}

// LoadRewards reads a YAML tuning file over the defaults. An empty path or a
// missing file yields the defaults.
func LoadRewards(path string) (Rewards, error) {
	r := DefaultRewards()
	if path == "" {
		return r, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, nil
		}

		return r, fmt.Errorf("read rewards file: %w", err)
	}

	err = yaml.Unmarshal(raw, &r)
	if err != nil {
		return r, fmt.Errorf("rewards yaml: %w", err)
	}

	err = r.Validate()
	if err != nil {
		return r, fmt.Errorf("rewards yaml: %w", err)
	}

	return r, nil
}

func (r Rewards) Validate() error {
	switch {
	case r.CentsPerUnit <= 0:
		return errors.New("cents_per_unit must be positive")
	case r.BaseFigChance < 0 || r.BaseFigChance > 1, r.BoostedFigChance < 0 || r.BoostedFigChance > 1:
		return errors.New("figurine chances must be within [0, 1]")
	case r.EmojiFigBonusMin > r.EmojiFigBonusMax:
		return errors.New("emoji_fig_bonus_min exceeds emoji_fig_bonus_max")
	case r.CentsPerSizeXP <= 0:
		return errors.New("cents_per_size_xp must be positive")
	}

	return nil
}
