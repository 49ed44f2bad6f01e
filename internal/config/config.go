package config

import (
	"os"
	"sync"
	"time"
)

type Config struct {
	OrchestratorBaseURL string
	LogLevel            string
	LocalHost           string
	LocalPort           int
	TranscriptLimit     int
	ReconnectMax        int
	DialTimeoutSeconds  int
	FilePollSeconds     int
}

// DefaultConfig is the lowest layer of resolution, below the global config
// file and the TASKDECK_* environment.
func DefaultConfig() Config {
	return Config{
		OrchestratorBaseURL: "http://127.0.0.1:8000",
		LogLevel:            "info",
		LocalHost:           "127.0.0.1",
		LocalPort:           4780,
		TranscriptLimit:     5000,
		ReconnectMax:        10,
		DialTimeoutSeconds:  10,
		FilePollSeconds:     5,
	}
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedBase = DefaultConfig()
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	return LoadConfigFrom(DefaultConfig())
}

// LoadConfigFrom layers the environment over base. The base is remembered
// so cache refreshes resolve against the same layer.
func LoadConfigFrom(base Config) Config {
	cfg := loadFromEnv(base)
	cacheMu.Lock()
	cachedBase = base
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	base := cachedBase
	cacheMu.RUnlock()

	cfg := loadFromEnv(base)
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadFromEnv(base Config) Config {
	cfg := base

	if v := os.Getenv("TASKDECK_ORCHESTRATOR_URL"); v != "" {
		cfg.OrchestratorBaseURL = v
	}
	if v := os.Getenv("TASKDECK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKDECK_LOCAL_HOST"); v != "" {
		cfg.LocalHost = v
	}

	cfg.LocalPort = atoiOrDefault(os.Getenv("TASKDECK_LOCAL_PORT"), base.LocalPort)
	cfg.TranscriptLimit = atoiOrDefault(os.Getenv("TASKDECK_TRANSCRIPT_LIMIT"), base.TranscriptLimit)
	cfg.ReconnectMax = atoiOrDefault(os.Getenv("TASKDECK_RECONNECT_MAX"), base.ReconnectMax)
	cfg.DialTimeoutSeconds = atoiOrDefault(os.Getenv("TASKDECK_DIAL_TIMEOUT_SECONDS"), base.DialTimeoutSeconds)
	cfg.FilePollSeconds = atoiOrDefault(os.Getenv("TASKDECK_FILE_POLL_SECONDS"), base.FilePollSeconds)
	return cfg
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
