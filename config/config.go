// Package config handles server configuration: built-in defaults, an
// optional TOML file, then PGPCHAT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultAddress       = ":8765"
	defaultDBPath        = "pgpchat.db"
	defaultControlSocket = "/tmp/pgpchat.sock"
	defaultWriteTimeout  = 30 // seconds
	defaultLogLevel      = "INFO"
)

var defaultLogging = Logging{
	Disable: false,
	File:    "",
	Level:   defaultLogLevel,
}

// Logging is the logging configuration.
type Logging struct {
	// Disable discards all log output.
	Disable bool

	// File is the log destination; empty means stdout.
	File string

	// Level is one of ERROR, WARNING, NOTICE, INFO, DEBUG.
	Level string
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl
	return nil
}

// Config is the server configuration.
type Config struct {
	// Address is the listen address for the WebSocket endpoint.
	Address string

	// DBPath is the SQLite database file.
	DBPath string

	// ControlSocket is the unix socket for management commands.
	ControlSocket string

	// WriteTimeout bounds a single outbound socket write, in seconds.
	WriteTimeout int

	Logging *Logging
}

// FixupAndValidate applies defaults and sanity checks the configuration.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.ControlSocket == "" {
		cfg.ControlSocket = defaultControlSocket
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Logging == nil {
		cfg.Logging = &defaultLogging
	}
	return cfg.Logging.validate()
}

// Load builds the configuration from an optional TOML file and the
// environment.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := toml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PGPCHAT_ADDR"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("PGPCHAT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PGPCHAT_CONTROL_SOCKET"); v != "" {
		cfg.ControlSocket = v
	}
	if v := os.Getenv("PGPCHAT_WRITE_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	if v := os.Getenv("PGPCHAT_LOG_LEVEL"); v != "" {
		if cfg.Logging == nil {
			cfg.Logging = &Logging{}
		}
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PGPCHAT_LOG_FILE"); v != "" {
		if cfg.Logging == nil {
			cfg.Logging = &Logging{}
		}
		cfg.Logging.File = v
	}
}
