package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment variables that override settings.
const (
	EnvDevice      = "SCANPIPE_DEVICE"
	EnvOCRLanguage = "SCANPIPE_OCR_LANGUAGE"
	EnvJournal     = "SCANPIPE_JOURNAL"
)

// Programs names the external executables.
type Programs struct {
	Scanner   string `yaml:"scanner"`
	Compactor string `yaml:"compactor"`
	OCR       string `yaml:"ocr"`
	Tagger    string `yaml:"tagger"`
}

// Settings is loaded once at process start and passed by value to every stage.
type Settings struct {
	Device      string   `yaml:"device"`
	OCRLanguage string   `yaml:"ocr_language"`
	Programs    Programs `yaml:"programs"`
	// FeederEmptyCode is the scanner exit status for an empty document feeder.
	FeederEmptyCode int `yaml:"feeder_empty_code"`
	// NoDatabaseCode is the tagger exit status when no database exists.
	NoDatabaseCode int      `yaml:"no_database_code"`
	CompactArgs    []string `yaml:"compact_args"`
	TextPresetArgs []string `yaml:"text_preset_args"`
	// Journal is the capture journal path; empty disables journaling.
	Journal string `yaml:"journal"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		Device:      "fujitsu",
		OCRLanguage: "deu+eng",
		Programs: Programs{
			Scanner:   "scanimage",
			Compactor: "noteshrink",
			OCR:       "ocrmypdf",
			Tagger:    "tmsu",
		},
		FeederEmptyCode: 7,
		NoDatabaseCode:  1,
		CompactArgs:     []string{"-w"},
		TextPresetArgs:  []string{"-w", "-g", "-n", "2", "-s", "20"},
	}
}

// DefaultSettingsPath returns $XDG_CONFIG_HOME/scanpipe/config.yaml or its platform equivalent.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scanpipe", "config.yaml"), nil
}

// LoadSettings reads a YAML settings file over the defaults. An empty path
// falls back to DefaultSettingsPath, which may be absent.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	explicit := path != ""
	if !explicit {
		p, err := DefaultSettingsPath()
		if err != nil {
			slog.Debug("No user config directory", "err", err)
			return settings, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("settings file %s: %w", path, err)
	}

	slog.Debug("Loaded settings", "path", path)
	return settings, nil
}

// WithEnv returns s with environment overrides applied.
func (s Settings) WithEnv(lookup func(string) (string, bool)) Settings {
	if v, ok := lookup(EnvDevice); ok && v != "" {
		s.Device = v
	}
	if v, ok := lookup(EnvOCRLanguage); ok && v != "" {
		s.OCRLanguage = v
	}
	if v, ok := lookup(EnvJournal); ok {
		s.Journal = v
	}
	return s
}

// Validate checks that every program name is set.
func (s Settings) Validate() error {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"programs.scanner", s.Programs.Scanner},
		{"programs.compactor", s.Programs.Compactor},
		{"programs.ocr", s.Programs.OCR},
		{"programs.tagger", s.Programs.Tagger},
		{"device", s.Device},
		{"ocr_language", s.OCRLanguage},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidOption, f.name)
		}
	}
	for _, f := range []struct {
		name string
		code int
	}{
		{"feeder_empty_code", s.FeederEmptyCode},
		{"no_database_code", s.NoDatabaseCode},
	} {
		if f.code < 1 || f.code > 255 {
			return fmt.Errorf("%w: %s %d is not a non-zero exit status", ErrInvalidOption, f.name, f.code)
		}
	}
	return nil
}
