package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/academia-sur/academy-api/internal/petsim"
	"github.com/academia-sur/academy-api/pkg/config"
	"github.com/academia-sur/academy-api/pkg/logger"
)

const agingInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	store := petsim.NewStore(filepath.Join(home, ".ghostpetz", "save.json"), logr)

	player, err := store.Load()
	if err != nil {
		log.Fatalf("failed to load save: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartAging(ctx, player, agingInterval)

	fmt.Println("GhostPetz! Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		command, args := fields[0], fields[1:]

		if command == "quit" || command == "exit" {
			break
		}
		runCommand(player, store, command, args)
	}

	if err := store.Save(player); err != nil {
		log.Fatalf("failed to save on exit: %v", err)
	}
	fmt.Println("saved, bye!")
}

func runCommand(player *petsim.Player, store *petsim.Store, command string, args []string) {
	mutated := true
	switch command {
	case "help":
		printHelp()
		mutated = false
	case "adopt":
		if len(args) < 1 {
			fmt.Println("usage: adopt <name> [species]")
			return
		}
		species := "ghost"
		if len(args) > 1 {
			species = args[1]
		}
		pet, err := player.AdoptPet(args[0], species)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("adopted %s the %s\n", pet.Name, pet.Species)
	case "select":
		if len(args) < 1 {
			fmt.Println("usage: select <index>")
			return
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("index must be a number")
			return
		}
		pet, err := player.SelectPet(index)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("selected %s\n", pet.Name)
	case "feed":
		reportActivity(player.Feed())
	case "play":
		reportActivity(player.Play())
	case "sleep":
		reportActivity(player.Sleep())
	case "train":
		reportActivity(player.Train())
	case "heal":
		if err := player.Heal(); err != nil {
			fmt.Println(err)
			return
		}
	case "mission":
		if len(args) < 1 {
			for i, mission := range petsim.Missions {
				fmt.Printf("  %d: %s (energy %d, xp %d, coins %d)\n",
					i, mission.Name, mission.EnergyCost, mission.XPReward, mission.CoinReward)
			}
			mutated = false
			break
		}
		index, err := strconv.Atoi(args[0])
		if err != nil || index < 0 || index >= len(petsim.Missions) {
			fmt.Println("usage: mission <index>")
			return
		}
		event, err := player.RunMission(petsim.Missions[index])
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("mission complete! coins: %d\n", player.Summary().Coins)
		reportEvent(event)
	case "use":
		if len(args) < 1 {
			fmt.Println("usage: use <item name>")
			return
		}
		if err := player.UseItem(strings.Join(args, " ")); err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println("item used")
	case "items":
		inventory := player.Summary().Inventory
		if len(inventory) == 0 {
			fmt.Println("inventory is empty")
		}
		for _, item := range inventory {
			fmt.Printf("  %s\n", item)
		}
		mutated = false
	case "status":
		printStatus(player.Summary())
		mutated = false
	default:
		fmt.Printf("unknown command %q, try 'help'\n", command)
		mutated = false
	}

	if mutated {
		if err := store.Save(player); err != nil {
			fmt.Printf("warning: save failed: %v\n", err)
		}
	}
}

func reportActivity(event petsim.Event, err error) {
	if err != nil {
		fmt.Println(err)
		return
	}
	reportEvent(event)
}

func reportEvent(event petsim.Event) {
	switch event {
	case petsim.EventIllness:
		fmt.Println("oh no, your pet got sick! try 'heal'")
	case petsim.EventItemFind:
		fmt.Println("your pet found an item! see 'items'")
	}
}

func printStatus(summary petsim.Summary) {
	if len(summary.Pets) == 0 {
		fmt.Println("no pets yet, try 'adopt <name>'")
		return
	}
	fmt.Printf("coins: %d, missions completed: %d\n", summary.Coins, summary.Missions)
	for i, pet := range summary.Pets {
		marker := " "
		if i == summary.CurrentPetIndex {
			marker = "*"
		}
		sick := ""
		if pet.Sick {
			sick = " (sick)"
		}
		fmt.Printf("%s %d: %s the %s, lvl %d (%d/%.0f xp), hp %d, energy %d, happy %d, hunger %d, age %d%s\n",
			marker, i, pet.Name, pet.Species, pet.Level, pet.XP, pet.XPToNextLevel,
			pet.Health, pet.Energy, pet.Happiness, pet.Hunger, pet.Age, sick)
	}
}

func printHelp() {
	fmt.Println(`commands:
  adopt <name> [species]  adopt a new pet (max 6)
  select <index>          switch the active pet
  feed | play | sleep | train | heal
  mission [index]         list or run missions
  items                   show inventory
  use <item name>         use an inventory item
  status                  show all pets
  quit`)
}
