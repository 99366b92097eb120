package petsim

import "fmt"

// Pet stat bounds and leveling constants.
const (
	StatMax           = 100
	StatMin           = 0
	BaseXPThreshold   = 100
	LevelGrowthFactor = 1.5
)

// Pet is a single creature with stats mutated by activities and missions.
type Pet struct {
	Name          string  `json:"name"`
	Species       string  `json:"species"`
	Health        int     `json:"health"`
	Energy        int     `json:"energy"`
	Happiness     int     `json:"happiness"`
	Hunger        int     `json:"hunger"`
	XP            int     `json:"xp"`
	Level         int     `json:"level"`
	XPToNextLevel float64 `json:"xpToNextLevel"`
	Age           int     `json:"age"`
	Sick          bool    `json:"sick"`
}

// NewPet creates a level-1 pet with full stats.
func NewPet(name, species string) *Pet {
	return &Pet{
		Name:          name,
		Species:       species,
		Health:        StatMax,
		Energy:        StatMax,
		Happiness:     StatMax,
		Hunger:        StatMin,
		XP:            0,
		Level:         1,
		XPToNextLevel: BaseXPThreshold,
	}
}

// GainXP adds experience and applies level-ups. Experience past a
// threshold carries over into the next level.
func (p *Pet) GainXP(amount int) int {
	if amount <= 0 {
		return 0
	}
	p.XP += amount
	levelsGained := 0
	for float64(p.XP) >= p.XPToNextLevel {
		p.XP -= int(p.XPToNextLevel)
		p.Level++
		p.XPToNextLevel *= LevelGrowthFactor
		levelsGained++
	}
	return levelsGained
}

// adjust clamps a stat mutation into [StatMin, StatMax].
func adjust(stat *int, delta int) {
	*stat += delta
	if *stat > StatMax {
		*stat = StatMax
	}
	if *stat < StatMin {
		*stat = StatMin
	}
}

// Feed reduces hunger and restores a little health.
func (p *Pet) Feed() {
	adjust(&p.Hunger, -30)
	adjust(&p.Health, 5)
	p.GainXP(5)
}

// Play raises happiness at the cost of energy and hunger.
func (p *Pet) Play() error {
	if p.Energy < 20 {
		return fmt.Errorf("%s is too tired to play", p.Name)
	}
	adjust(&p.Happiness, 20)
	adjust(&p.Energy, -20)
	adjust(&p.Hunger, 10)
	p.GainXP(10)
	return nil
}

// Sleep restores energy and advances hunger.
func (p *Pet) Sleep() {
	adjust(&p.Energy, 50)
	adjust(&p.Hunger, 15)
	p.GainXP(5)
}

// Train converts energy into experience.
func (p *Pet) Train() error {
	if p.Energy < 30 {
		return fmt.Errorf("%s is too tired to train", p.Name)
	}
	adjust(&p.Energy, -30)
	adjust(&p.Hunger, 15)
	adjust(&p.Happiness, -5)
	p.GainXP(25)
	return nil
}

// Heal cures sickness and restores health.
func (p *Pet) Heal() {
	p.Sick = false
	adjust(&p.Health, 40)
}

// AgeUp advances the pet's age by one tick and drains stats slightly.
func (p *Pet) AgeUp() {
	p.Age++
	adjust(&p.Hunger, 5)
	adjust(&p.Energy, -5)
	if p.Hunger >= StatMax {
		adjust(&p.Health, -10)
	}
}
