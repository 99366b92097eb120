package petsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Store persists a player as a single JSON snapshot on disk, written
// after every mutating action and read once at startup.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore builds a snapshot store at the given file path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Load reads the snapshot. A missing file yields a fresh player.
func (s *Store) Load() (*Player, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewPlayer(nil), nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	player := NewPlayer(nil)
	if err := json.Unmarshal(raw, player); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if player.GhostPetz == nil {
		player.GhostPetz = []*Pet{}
	}
	if player.Inventory == nil {
		player.Inventory = []string{}
	}
	if player.MissionHistory == nil {
		player.MissionHistory = []MissionRecord{}
	}
	if player.CurrentPetIndex < 0 || player.CurrentPetIndex >= len(player.GhostPetz) {
		player.CurrentPetIndex = 0
	}
	return player, nil
}

// Save writes the snapshot atomically via a temp file rename. The
// player is marshalled under its lock so a concurrent aging tick never
// tears the snapshot.
func (s *Store) Save(player *Player) error {
	player.mu.Lock()
	payload, err := json.MarshalIndent(player, "", "  ")
	player.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ghostpetz-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// StartAging ages every pet on each tick until the context is
// cancelled. The snapshot is saved after each tick.
func (s *Store) StartAging(ctx context.Context, player *Player, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				player.AgeTick()
				if err := s.Save(player); err != nil {
					s.logger.Warn("failed to save snapshot after aging tick", zap.Error(err))
				}
			}
		}
	}()
}
