package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRewards_Defaults(t *testing.T) {
	t.Parallel()

	r, err := LoadRewards("")
	require.NoError(t, err)
	require.Equal(t, DefaultRewards(), r)

	r, err = LoadRewards(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultRewards(), r)
}

func TestLoadRewards_OverridesSomeFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rewards.yaml")
	err := os.WriteFile(path, []byte("hacker_fig_bonus: 700\nbase_fig_chance: 0.5\n"), 0o600)
	require.NoError(t, err)

	r, err := LoadRewards(path)
	require.NoError(t, err)
	require.EqualValues(t, 700, r.HackerFigBonus)
	require.InDelta(t, 0.5, r.BaseFigChance, 1e-9)
	require.EqualValues(t, 100, r.CentsPerUnit)
}

func TestLoadRewards_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rewards.yaml")
	err := os.WriteFile(path, []byte("emoji_fig_bonus_min: 50\nemoji_fig_bonus_max: 10\n"), 0o600)
	require.NoError(t, err)

	_, err = LoadRewards(path)
	require.Error(t, err)
}
