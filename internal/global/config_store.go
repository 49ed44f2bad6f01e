package global

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const configTOMLFileName = "config.toml"

type WatchConfig struct {
	TranscriptLimit int `json:"transcript_limit" toml:"transcript_limit"`
	ReconnectMax    int `json:"reconnect_max" toml:"reconnect_max"`
	FilePollSeconds int `json:"file_poll_seconds" toml:"file_poll_seconds"`
}

type GlobalConfig struct {
	OrchestratorBaseURL string      `json:"orchestrator_base_url" toml:"orchestrator_base_url"`
	LocalPort           int         `json:"local_port" toml:"local_port"`
	Watch               WatchConfig `json:"watch" toml:"watch"`
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

func (s *ConfigStore) LoadOrInit() (GlobalConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return GlobalConfig{}, err
	}

	path := filepath.Join(s.dir, configTOMLFileName)
	if b, err := os.ReadFile(path); err == nil {
		var cfg GlobalConfig
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return GlobalConfig{}, err
		}
		return normalizeConfig(cfg), nil
	} else if !os.IsNotExist(err) {
		return GlobalConfig{}, err
	}

	cfg := normalizeConfig(GlobalConfig{})
	if err := writeTOMLAtomically(path, cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg GlobalConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, configTOMLFileName), normalizeConfig(cfg))
}

func normalizeConfig(cfg GlobalConfig) GlobalConfig {
	cfg.OrchestratorBaseURL = strings.TrimRight(strings.TrimSpace(cfg.OrchestratorBaseURL), "/")
	if cfg.OrchestratorBaseURL == "" {
		cfg.OrchestratorBaseURL = "http://127.0.0.1:8000"
	}
	if cfg.LocalPort <= 0 {
		cfg.LocalPort = 4780
	}
	if cfg.Watch.TranscriptLimit <= 0 {
		cfg.Watch.TranscriptLimit = 5000
	}
	if cfg.Watch.ReconnectMax <= 0 {
		cfg.Watch.ReconnectMax = 10
	}
	if cfg.Watch.FilePollSeconds <= 0 {
		cfg.Watch.FilePollSeconds = 5
	}
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
