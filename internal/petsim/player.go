package petsim

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// MaxPets caps the number of pets a player can hold.
const MaxPets = 6

// Mission is a fixed-effect task a pet can run for rewards.
type Mission struct {
	Name       string `json:"name"`
	EnergyCost int    `json:"energyCost"`
	XPReward   int    `json:"xpReward"`
	CoinReward int    `json:"coinReward"`
}

// Missions available to every player.
var Missions = []Mission{
	{Name: "haunt the attic", EnergyCost: 20, XPReward: 30, CoinReward: 10},
	{Name: "scare the mailman", EnergyCost: 30, XPReward: 45, CoinReward: 20},
	{Name: "guard the graveyard", EnergyCost: 50, XPReward: 80, CoinReward: 40},
}

// MissionRecord is one completed mission kept in the player history.
type MissionRecord struct {
	PetName     string    `json:"petName"`
	MissionName string    `json:"missionName"`
	CompletedAt time.Time `json:"completedAt"`
}

// Event is the outcome of the post-action random roll.
type Event string

const (
	EventNone     Event = ""
	EventIllness  Event = "illness"
	EventItemFind Event = "item-find"
)

// Items a pet can find after an action.
var findableItems = []string{"ghost treat", "ectoplasm vial", "tiny lantern", "bone charm"}

// Player owns the pets, inventory and currency of one save file. All
// mutations go through its methods, which serialize against the aging
// tick via the internal mutex.
type Player struct {
	GhostPetz       []*Pet          `json:"ghostPetz"`
	CurrentPetIndex int             `json:"currentPetIndex"`
	Inventory       []string        `json:"inventory"`
	Coins           int             `json:"coins"`
	MissionHistory  []MissionRecord `json:"missionHistory"`

	mu  sync.Mutex
	rng *rand.Rand
}

// Summary is a point-in-time copy of the player state for display.
type Summary struct {
	Pets            []Pet
	CurrentPetIndex int
	Inventory       []string
	Coins           int
	Missions        int
}

// NewPlayer creates an empty player with the given RNG. A nil rng falls
// back to a time-seeded source.
func NewPlayer(rng *rand.Rand) *Player {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Player{
		GhostPetz:      []*Pet{},
		Inventory:      []string{},
		MissionHistory: []MissionRecord{},
		rng:            rng,
	}
}

// AdoptPet adds a new pet up to the cap and returns a copy of it.
func (pl *Player) AdoptPet(name, species string) (Pet, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if len(pl.GhostPetz) >= MaxPets {
		return Pet{}, fmt.Errorf("cannot adopt more than %d pets", MaxPets)
	}
	pet := NewPet(name, species)
	pl.GhostPetz = append(pl.GhostPetz, pet)
	return *pet, nil
}

// SelectPet switches the active pet and returns a copy of it.
func (pl *Player) SelectPet(index int) (Pet, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if index < 0 || index >= len(pl.GhostPetz) {
		return Pet{}, fmt.Errorf("no pet at index %d", index)
	}
	pl.CurrentPetIndex = index
	return *pl.GhostPetz[index], nil
}

// currentPet returns the selected pet. The caller must hold mu.
func (pl *Player) currentPet() *Pet {
	if len(pl.GhostPetz) == 0 {
		return nil
	}
	if pl.CurrentPetIndex < 0 || pl.CurrentPetIndex >= len(pl.GhostPetz) {
		pl.CurrentPetIndex = 0
	}
	return pl.GhostPetz[pl.CurrentPetIndex]
}

// Feed feeds the current pet.
func (pl *Player) Feed() (Event, error) {
	return pl.activity(func(p *Pet) error {
		p.Feed()
		return nil
	})
}

// Play plays with the current pet.
func (pl *Player) Play() (Event, error) {
	return pl.activity((*Pet).Play)
}

// Sleep puts the current pet to sleep.
func (pl *Player) Sleep() (Event, error) {
	return pl.activity(func(p *Pet) error {
		p.Sleep()
		return nil
	})
}

// Train trains the current pet.
func (pl *Player) Train() (Event, error) {
	return pl.activity((*Pet).Train)
}

// Heal cures the current pet. Healing rolls no random event.
func (pl *Player) Heal() error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pet := pl.currentPet()
	if pet == nil {
		return fmt.Errorf("no pet selected")
	}
	pet.Heal()
	return nil
}

// activity applies an action to the current pet and rolls the
// post-action random event.
func (pl *Player) activity(action func(*Pet) error) (Event, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pet := pl.currentPet()
	if pet == nil {
		return EventNone, fmt.Errorf("no pet selected")
	}
	if err := action(pet); err != nil {
		return EventNone, err
	}
	return pl.rollEvent(pet), nil
}

// RunMission sends the current pet on a mission, paying energy for XP
// and coins, and records it in the history.
func (pl *Player) RunMission(mission Mission) (Event, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pet := pl.currentPet()
	if pet == nil {
		return EventNone, fmt.Errorf("no pet selected")
	}
	if pet.Energy < mission.EnergyCost {
		return EventNone, fmt.Errorf("%s lacks energy for mission %q", pet.Name, mission.Name)
	}

	adjust(&pet.Energy, -mission.EnergyCost)
	pet.GainXP(mission.XPReward)
	pl.Coins += mission.CoinReward
	pl.MissionHistory = append(pl.MissionHistory, MissionRecord{
		PetName:     pet.Name,
		MissionName: mission.Name,
		CompletedAt: time.Now().UTC(),
	})

	return pl.rollEvent(pet), nil
}

// rollEvent triggers illness or an item find, each with a flat 10%
// chance. The caller must hold mu.
func (pl *Player) rollEvent(pet *Pet) Event {
	roll := pl.rng.Float64()
	switch {
	case roll < 0.10:
		pet.Sick = true
		adjust(&pet.Health, -15)
		return EventIllness
	case roll < 0.20:
		item := findableItems[pl.rng.Intn(len(findableItems))]
		pl.Inventory = append(pl.Inventory, item)
		return EventItemFind
	}
	return EventNone
}

// UseItem consumes the first matching inventory item on the current pet.
func (pl *Player) UseItem(name string) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pet := pl.currentPet()
	if pet == nil {
		return fmt.Errorf("no pet selected")
	}
	for i, item := range pl.Inventory {
		if item == name {
			pl.Inventory = append(pl.Inventory[:i], pl.Inventory[i+1:]...)
			adjust(&pet.Happiness, 10)
			adjust(&pet.Health, 10)
			return nil
		}
	}
	return fmt.Errorf("no %q in inventory", name)
}

// AgeTick ages every pet by one tick.
func (pl *Player) AgeTick() {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for _, pet := range pl.GhostPetz {
		pet.AgeUp()
	}
}

// Summary returns a consistent copy of the player state.
func (pl *Player) Summary() Summary {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pets := make([]Pet, len(pl.GhostPetz))
	for i, pet := range pl.GhostPetz {
		pets[i] = *pet
	}
	index := pl.CurrentPetIndex
	if index < 0 || index >= len(pets) {
		index = 0
	}
	return Summary{
		Pets:            pets,
		CurrentPetIndex: index,
		Inventory:       append([]string(nil), pl.Inventory...),
		Coins:           pl.Coins,
		Missions:        len(pl.MissionHistory),
	}
}
