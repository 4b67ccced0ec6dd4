// Package config loads engine settings from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the root of regioncore.yaml.
type Settings struct {
	Version   int       `yaml:"version"`
	Engine    Engine    `yaml:"engine"`
	World     World     `yaml:"world"`
	Transport Transport `yaml:"transport"`
	Store     Store     `yaml:"store"`
}

// Engine tunes the scheduler and walker.
type Engine struct {
	TicksPerMinute  int   `yaml:"ticks_per_minute"`
	MaxWalkDepth    int   `yaml:"max_walk_depth"`
	TransitionTicks int   `yaml:"transition_ticks"`
	Seed            int64 `yaml:"seed"`
	Debug           bool  `yaml:"debug"`
	OutboxSize      int   `yaml:"outbox_size"`
}

// World names the attributes and limits host verbs rely on.
type World struct {
	HealthAttr     string   `yaml:"health_attr"`
	InventorySlots int      `yaml:"inventory_slots"`
	ScreenSize     [2]int   `yaml:"screen_size"`
	TileSize       int      `yaml:"tile_size"`
	PlayerGraph    string   `yaml:"player_graph"`
	GearSlots      []string `yaml:"gear_slots"`
}

// Transport configures the outbound message and snapshot streams.
type Transport struct {
	WSAddr       string `yaml:"ws_addr"`
	Compress     bool   `yaml:"compress"`
	MQTTURL      string `yaml:"mqtt_url"`
	MQTTTopic    string `yaml:"mqtt_topic"`
	MQTTClientID string `yaml:"mqtt_client_id"`
}

// Store configures the optional trace sinks.
type Store struct {
	SQLitePath  string `yaml:"sqlite_path"`
	Postgres    bool   `yaml:"postgres"`
	TraceLogDir string `yaml:"tracelog_dir"`
}

// Default returns the built-in settings.
func Default() Settings {
	s := Settings{Version: 1}
	s.applyDefaults()
	return s
}

// Load reads a settings file. Missing fields keep their defaults.
func Load(path string) (Settings, error) {
	s := Settings{}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	if s.Version != 1 {
		return s, fmt.Errorf("unsupported config version: %d", s.Version)
	}
	if err := s.validate(); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	s.applyDefaults()
	return s, nil
}

func (s *Settings) validate() error {
	switch {
	case s.Engine.TicksPerMinute < 0:
		return fmt.Errorf("engine.ticks_per_minute must not be negative")
	case s.Engine.MaxWalkDepth < 0:
		return fmt.Errorf("engine.max_walk_depth must not be negative")
	case s.World.InventorySlots < 0:
		return fmt.Errorf("world.inventory_slots must not be negative")
	}
	return nil
}

func (s *Settings) applyDefaults() {
	if s.Engine.TicksPerMinute == 0 {
		s.Engine.TicksPerMinute = 4
	}
	if s.Engine.MaxWalkDepth == 0 {
		s.Engine.MaxWalkDepth = 256
	}
	if s.Engine.TransitionTicks == 0 {
		s.Engine.TransitionTicks = 4
	}
	if s.Engine.OutboxSize == 0 {
		s.Engine.OutboxSize = 1024
	}
	if s.World.HealthAttr == "" {
		s.World.HealthAttr = "HP"
	}
	if s.World.InventorySlots == 0 {
		s.World.InventorySlots = 16
	}
	if s.World.ScreenSize == [2]int{} {
		s.World.ScreenSize = [2]int{1024, 608}
	}
	if s.World.TileSize == 0 {
		s.World.TileSize = 32
	}
	if s.World.PlayerGraph == "" {
		s.World.PlayerGraph = "Player"
	}
	if s.Transport.MQTTTopic == "" {
		s.Transport.MQTTTopic = "regioncore/messages"
	}
	if s.Transport.MQTTClientID == "" {
		s.Transport.MQTTClientID = "regioncore"
	}
}
