package petsim

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGainXPSingleLevelUp(t *testing.T) {
	pet := NewPet("Boo", "ghost")
	require.Equal(t, 1, pet.Level)
	require.Equal(t, float64(BaseXPThreshold), pet.XPToNextLevel)

	levels := pet.GainXP(100)

	assert.Equal(t, 1, levels)
	assert.Equal(t, 2, pet.Level)
	assert.Equal(t, 0, pet.XP)
	assert.Equal(t, 150.0, pet.XPToNextLevel)
}

func TestGainXPCarriesOverSurplus(t *testing.T) {
	pet := NewPet("Boo", "ghost")

	levels := pet.GainXP(120)

	assert.Equal(t, 1, levels)
	assert.Equal(t, 2, pet.Level)
	assert.Equal(t, 20, pet.XP)
	assert.Equal(t, 150.0, pet.XPToNextLevel)
}

func TestGainXPMultipleLevels(t *testing.T) {
	pet := NewPet("Boo", "ghost")

	levels := pet.GainXP(250)

	assert.Equal(t, 2, levels)
	assert.Equal(t, 3, pet.Level)
	assert.Equal(t, 0, pet.XP)
	assert.Equal(t, 225.0, pet.XPToNextLevel)
}

func TestStatsStayWithinBounds(t *testing.T) {
	pet := NewPet("Boo", "ghost")

	for i := 0; i < 20; i++ {
		pet.Feed()
	}
	assert.GreaterOrEqual(t, pet.Hunger, StatMin)
	assert.LessOrEqual(t, pet.Health, StatMax)

	pet.Energy = 10
	assert.Error(t, pet.Play())
	assert.Error(t, pet.Train())
}

func TestAdoptPetCap(t *testing.T) {
	player := NewPlayer(rand.New(rand.NewSource(1)))

	for i := 0; i < MaxPets; i++ {
		_, err := player.AdoptPet("pet", "ghost")
		require.NoError(t, err)
	}
	_, err := player.AdoptPet("one-too-many", "ghost")
	assert.Error(t, err)
	assert.Len(t, player.GhostPetz, MaxPets)
}

func TestRunMissionPaysRewards(t *testing.T) {
	player := NewPlayer(rand.New(rand.NewSource(42)))
	adopted, err := player.AdoptPet("Boo", "ghost")
	require.NoError(t, err)

	mission := Missions[0]
	_, err = player.RunMission(mission)
	require.NoError(t, err)

	pet := player.GhostPetz[0]
	assert.Equal(t, adopted.Energy-mission.EnergyCost, pet.Energy)
	assert.Equal(t, mission.XPReward, pet.XP)
	assert.Equal(t, mission.CoinReward, player.Coins)
	require.Len(t, player.MissionHistory, 1)
	assert.Equal(t, mission.Name, player.MissionHistory[0].MissionName)
}

func TestRunMissionRequiresEnergy(t *testing.T) {
	player := NewPlayer(rand.New(rand.NewSource(1)))
	_, err := player.AdoptPet("Boo", "ghost")
	require.NoError(t, err)
	player.GhostPetz[0].Energy = 5

	_, err = player.RunMission(Missions[0])
	assert.Error(t, err)
	assert.Empty(t, player.MissionHistory)
	assert.Zero(t, player.Coins)
}

func TestEventRollsAreFlatProbability(t *testing.T) {
	player := NewPlayer(rand.New(rand.NewSource(7)))
	_, err := player.AdoptPet("Boo", "ghost")
	require.NoError(t, err)
	pet := player.GhostPetz[0]

	counts := map[Event]int{}
	for i := 0; i < 1000; i++ {
		counts[player.rollEvent(pet)]++
		pet.Sick = false
		pet.Health = StatMax
	}

	assert.InDelta(t, 100, counts[EventIllness], 40)
	assert.InDelta(t, 100, counts[EventItemFind], 40)
	assert.Greater(t, counts[EventNone], 600)
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "save.json"), zap.NewNop())

	player := NewPlayer(rand.New(rand.NewSource(1)))
	_, err := player.AdoptPet("Boo", "ghost")
	require.NoError(t, err)
	player.GhostPetz[0].GainXP(120)
	player.Coins = 55
	player.Inventory = append(player.Inventory, "ghost treat")

	require.NoError(t, store.Save(player))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.GhostPetz, 1)
	assert.Equal(t, 2, loaded.GhostPetz[0].Level)
	assert.Equal(t, 20, loaded.GhostPetz[0].XP)
	assert.Equal(t, 55, loaded.Coins)
	assert.Equal(t, []string{"ghost treat"}, loaded.Inventory)
}

func TestLoadMissingSnapshotReturnsFreshPlayer(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())

	player, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, player.GhostPetz)
	assert.Zero(t, player.Coins)
}

func TestAgingStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "save.json"), zap.NewNop())
	player := NewPlayer(rand.New(rand.NewSource(1)))
	_, err := player.AdoptPet("Boo", "ghost")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	store.StartAging(ctx, player, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
	aged := player.Summary().Pets[0].Age
	assert.Greater(t, aged, 0)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, aged, player.Summary().Pets[0].Age)
}

func TestActivitiesSafeDuringAging(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "save.json"), zap.NewNop())
	player := NewPlayer(rand.New(rand.NewSource(1)))
	_, err := player.AdoptPet("Boo", "ghost")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartAging(ctx, player, time.Millisecond)

	for i := 0; i < 200; i++ {
		_, _ = player.Feed()
		_, _ = player.Sleep()
		if i%20 == 0 {
			require.NoError(t, store.Save(player))
		}
	}
	cancel()

	summary := player.Summary()
	require.Len(t, summary.Pets, 1)
	assert.GreaterOrEqual(t, summary.Pets[0].Energy, StatMin)
	assert.LessOrEqual(t, summary.Pets[0].Energy, StatMax)
}
