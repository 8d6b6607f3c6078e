package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// State is machine-written data that survives restarts
type State struct {
	InstallID string `json:"install_id"`
}

// LoadState reads state.json from dir, creating it with a fresh install ID
// when it is missing or unreadable.
func LoadState(dir string) (*State, error) {
	path := filepath.Join(dir, "state.json")

	var state State
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &state); err == nil && state.InstallID != "" {
			return &state, nil
		}
	}

	state.InstallID = uuid.NewString()

	data, err := json.MarshalIndent(&state, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write state: %w", err)
	}
	return &state, nil
}
