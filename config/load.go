package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// LoadFile reads a JSON config file and overlays it onto the defaults.
// A missing file is not an error: the caller gets DefaultServerConfig().
func LoadFile(path string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg fields with HOST / PORT / TICK_RATE / PLAYER_SPEED /
// MAPS_DIR environment variables when present, taking precedence over
// whatever LoadFile already produced.
func ApplyEnv(cfg *ServerConfig) {
	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if rate := os.Getenv("TICK_RATE"); rate != "" {
		if r, err := strconv.Atoi(rate); err == nil && r > 0 {
			cfg.TickRate = r
		}
	}
	if speed := os.Getenv("PLAYER_SPEED"); speed != "" {
		if s, err := strconv.ParseFloat(speed, 64); err == nil && s > 0 {
			cfg.PlayerSpeed = s
		}
	}
	if dir := os.Getenv("MAPS_DIR"); dir != "" {
		cfg.MapsDir = dir
	}
}
