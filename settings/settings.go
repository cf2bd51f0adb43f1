package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/oomph-ac/locomotion/mantle"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/network"
	"github.com/oomph-ac/locomotion/ragdoll"
	"gopkg.in/yaml.v3"
)

// Settings contains everything that can be tuned for an agent.
type Settings struct {
	Log struct {
		// Level is one of debug, info, warn or error.
		Level string `yaml:"level"`
		// DebugModes names the per-tick trace categories to log, such as floor or network.
		DebugModes []string `yaml:"debug_modes"`
	} `yaml:"log"`

	Movement   movement.Config `yaml:"movement"`
	Locomotion Locomotion      `yaml:"locomotion"`
	Mantle     mantle.Config   `yaml:"mantle"`
	Ragdoll    ragdoll.Config  `yaml:"ragdoll"`
	Network    network.Config  `yaml:"network"`
}

// DefaultSettings returns the default settings for every part of an agent.
func DefaultSettings() Settings {
	s := Settings{
		Movement:   movement.DefaultConfig(),
		Locomotion: DefaultLocomotion(),
		Mantle:     mantle.DefaultConfig(),
		Ragdoll:    ragdoll.DefaultConfig(),
		Network:    network.DefaultConfig(),
	}
	s.Log.Level = "info"
	return s
}

// Validate checks every section of the settings.
func (s Settings) Validate() error {
	if _, err := s.LogLevel(); err != nil {
		return err
	}
	if _, err := s.DebugModes(); err != nil {
		return err
	}
	if err := s.Movement.Validate(); err != nil {
		return fmt.Errorf("movement: %w", err)
	}
	if err := s.Locomotion.Validate(); err != nil {
		return fmt.Errorf("locomotion: %w", err)
	}
	if err := s.Mantle.Validate(); err != nil {
		return fmt.Errorf("mantle: %w", err)
	}
	if err := s.Ragdoll.Validate(); err != nil {
		return fmt.Errorf("ragdoll: %w", err)
	}
	if err := s.Network.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	return nil
}

// LogLevel parses Log.Level.
func (s Settings) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// DebugModes parses Log.DebugModes.
func (s Settings) DebugModes() (movement.DebugMode, error) {
	var modes movement.DebugMode
	for _, name := range s.Log.DebugModes {
		mode, ok := movement.ParseDebugMode(name)
		if !ok {
			return 0, fmt.Errorf("unknown debug mode %q", name)
		}
		modes |= mode
	}
	return modes, nil
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return errors.New("settings file already exists")
	}
	data, err := yaml.Marshal(DefaultSettings())
	if err != nil {
		return fmt.Errorf("failed encoding default settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed creating settings file: %w", err)
	}
	return nil
}

// Load reads the settings file at path on top of the default settings and validates the result.
// Values missing from the file keep their default.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading settings: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML settings on top of the default settings and validates the result.
func Parse(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("error decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
