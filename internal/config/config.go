// Package config loads the world server configuration from YAML, with
// sensible defaults when the file is absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WorldServer holds all configuration for the world server.
type WorldServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Database
	Database        DatabaseConfig `yaml:"database"`
	DatabaseEnabled bool           `yaml:"database_enabled"`

	// Movement
	TurnDurationSec uint8  `yaml:"turn_duration_sec"`
	StartTile       uint16 `yaml:"start_tile"`
	StartBudget     uint32 `yaml:"start_budget"`

	// Snapshots
	SnapshotPath     string `yaml:"snapshot_path"`
	SnapshotEverySec int    `yaml:"snapshot_every_sec"`

	// Capability tokens (bcrypt hashes, see cmd/worldserver -hash-token)
	AdminTokenHash  string `yaml:"admin_token_hash"`
	SystemTokenHash string `yaml:"system_token_hash"`

	// Registered players allowed to enter the world. Stands in for the
	// external identity collaborator in single-binary deployments.
	RegisteredPlayers []string `yaml:"registered_players"`
	AllowAllPlayers   bool     `yaml:"allow_all_players"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultWorldServer returns WorldServer config with sensible defaults.
func DefaultWorldServer() WorldServer {
	return WorldServer{
		BindAddress:      "0.0.0.0",
		Port:             8420,
		LogLevel:         "info",
		TurnDurationSec:  180,
		StartTile:        0,
		StartBudget:      25,
		SnapshotPath:     "data/world.snap.zst",
		SnapshotEverySec: 300,
		AllowAllPlayers:  false,
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "gridworld",
			Password: "gridworld",
			DBName:   "gridworld",
			SSLMode:  "disable",
		},
	}
}

// LoadWorldServer loads world server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadWorldServer(path string) (WorldServer, error) {
	cfg := DefaultWorldServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
