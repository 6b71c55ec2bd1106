package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Database DatabaseSettings `json:"database"`
	Gemini   GeminiSettings   `json:"gemini"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DatabaseSettings defines the sqlite database location.
type DatabaseSettings struct {
	Path string `json:"path"`
}

// GeminiSettings configures the external generative model client.
// An empty APIKey disables generation; the engine then serves empty batches.
type GeminiSettings struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

// LogConfig represents file logging and rotation configuration.
type LogConfig struct {
	File       string `json:"file"`
	Level      string `json:"level"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first start.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseSettings{
			Path: filepath.Join("cache", "myvod.db"),
		},
		Gemini: GeminiSettings{
			Model: "gemini-1.5-flash",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSize:    25,
			MaxAge:     14,
			MaxBackups: 3,
		},
	}
}

// Manager loads and persists Settings from a JSON file on disk.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// Load reads settings from disk, creating the file with defaults when missing.
// The GEMINI_API_KEY environment variable overrides the stored key so secrets
// can stay out of the config file.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}

	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return applyEnv(defaults), nil
	}

	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for configs that predate a setting
	if strings.TrimSpace(s.Database.Path) == "" {
		s.Database.Path = DefaultSettings().Database.Path
	}
	if strings.TrimSpace(s.Gemini.Model) == "" {
		s.Gemini.Model = DefaultSettings().Gemini.Model
	}
	if s.Server.Port == 0 {
		s.Server.Port = DefaultSettings().Server.Port
	}

	return applyEnv(s), nil
}

// Save writes settings atomically via a temp file and rename.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}

	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, m.path)
}

func applyEnv(s Settings) Settings {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		s.Gemini.APIKey = key
	}
	return s
}
