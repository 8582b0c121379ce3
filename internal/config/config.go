package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// #region config
// Config holds the controller daemon settings.
type Config struct {
	DBPath           string
	GRPCAddr         string
	HTTPAddr         string
	WatchDir         string // empty disables the file-drop transport
	InitialConfig    string // YAML file applied at startup when no batch history exists
	DecisionInterval int
	StepInterval     time.Duration
	Templates        []string
	Seed             int64 // 0 seeds from the clock
}

// #endregion config

// #region load
// Load reads settings from the environment. Values in envFiles (default
// ".env") fill in variables the environment does not set; missing files are
// ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	file := map[string]string{}
	for _, name := range envFiles {
		vals, err := godotenv.Read(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("read %s: %w", name, err)
		}
		for k, v := range vals {
			if _, ok := file[k]; !ok {
				file[k] = v
			}
		}
	}
	envOr := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if v := file[key]; v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		DBPath:        envOr("ARENA_DB", "arena_controller.db"),
		GRPCAddr:      envOr("ARENA_GRPC_ADDR", "localhost:50061"),
		HTTPAddr:      envOr("ARENA_HTTP_ADDR", ":8123"),
		WatchDir:      envOr("ARENA_WATCH_DIR", ""),
		InitialConfig: envOr("ARENA_CONFIG", ""),
		Templates:     splitList(envOr("ARENA_TEMPLATES", "")),
	}

	var err error
	if cfg.DecisionInterval, err = strconv.Atoi(envOr("ARENA_DECISION_INTERVAL", "5")); err != nil {
		return Config{}, fmt.Errorf("parse ARENA_DECISION_INTERVAL: %w", err)
	}
	if cfg.DecisionInterval <= 0 {
		return Config{}, fmt.Errorf("parse ARENA_DECISION_INTERVAL: must be positive, got %d", cfg.DecisionInterval)
	}
	if cfg.StepInterval, err = time.ParseDuration(envOr("ARENA_STEP_INTERVAL", "20ms")); err != nil {
		return Config{}, fmt.Errorf("parse ARENA_STEP_INTERVAL: %w", err)
	}
	if cfg.StepInterval <= 0 {
		return Config{}, fmt.Errorf("parse ARENA_STEP_INTERVAL: must be positive, got %s", cfg.StepInterval)
	}
	if cfg.Seed, err = strconv.ParseInt(envOr("ARENA_SEED", "0"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("parse ARENA_SEED: %w", err)
	}
	return cfg, nil
}

// #endregion load

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
