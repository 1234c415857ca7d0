// Package config loads the battle server configuration from a YAML file,
// FIGHT_* environment variables and built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/platform/otel"
)

// EnvPrefix is prepended to every environment override, e.g.
// FIGHT_SERVER_GRPC_ADDRESS.
const EnvPrefix = "FIGHT"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bbolt"
	DriverPostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig  `mapstructure:"server"`
	Engine    EngineConfig  `mapstructure:"engine"`
	Storage   StorageConfig `mapstructure:"storage"`
	Archive   ArchiveConfig `mapstructure:"archive"`
	Logging   LoggingConfig `mapstructure:"logging"`
	Telemetry otel.Config   `mapstructure:"telemetry"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	GRPC            GRPCConfig      `mapstructure:"grpc"`
	WebSocket       WebSocketConfig `mapstructure:"websocket"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Address              string        `mapstructure:"address"`
	MaxConcurrentStreams int           `mapstructure:"max_concurrent_streams"`
	KeepaliveTime        time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout     time.Duration `mapstructure:"keepalive_timeout"`
}

type WebSocketConfig struct {
	Address        string        `mapstructure:"address"`
	Path           string        `mapstructure:"path"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
}

// EngineConfig tunes the resolver and the options new battles default to.
type EngineConfig struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	Options       fight.Options `mapstructure:"options"`
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	BoltPath    string `mapstructure:"bolt_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ArchiveConfig enables the SQLite archive of finished battles when Path is set.
type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			GRPC: GRPCConfig{
				Address:              ":17171",
				MaxConcurrentStreams: 1000,
				KeepaliveTime:        30 * time.Second,
				KeepaliveTimeout:     10 * time.Second,
			},
			WebSocket: WebSocketConfig{
				Address:      ":17172",
				Path:         "/ws",
				WriteTimeout: 10 * time.Second,
				PingInterval: 30 * time.Second,
			},
			ShutdownTimeout: 15 * time.Second,
		},
		Engine: EngineConfig{
			MaxIterations: 10000,
			Options:       fight.DefaultOptions(),
		},
		Storage: StorageConfig{
			Driver:   DriverMemory,
			BoltPath: "data/battles.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: otel.Config{
			Ratio: 1,
		},
	}
}

// Load reads path (optional; an empty path skips the file) over the defaults and
// applies FIGHT_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that cannot be fixed up later.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverBolt:
		if c.Storage.BoltPath == "" {
			return fmt.Errorf("storage.bolt_path is required for the %s driver", DriverBolt)
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Engine.MaxIterations < 0 {
		return fmt.Errorf("engine.max_iterations must not be negative")
	}
	if err := c.Engine.Options.Validate(); err != nil {
		return fmt.Errorf("engine.options: %w", err)
	}
	if c.Server.GRPC.Address == "" && c.Server.WebSocket.Address == "" {
		return fmt.Errorf("at least one of server.grpc.address and server.websocket.address is required")
	}
	return nil
}

// setDefaults registers the keys so environment overrides resolve even when the
// file does not mention them.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.grpc.address", d.Server.GRPC.Address)
	v.SetDefault("server.grpc.max_concurrent_streams", d.Server.GRPC.MaxConcurrentStreams)
	v.SetDefault("server.grpc.keepalive_time", d.Server.GRPC.KeepaliveTime)
	v.SetDefault("server.grpc.keepalive_timeout", d.Server.GRPC.KeepaliveTimeout)
	v.SetDefault("server.websocket.address", d.Server.WebSocket.Address)
	v.SetDefault("server.websocket.path", d.Server.WebSocket.Path)
	v.SetDefault("server.websocket.write_timeout", d.Server.WebSocket.WriteTimeout)
	v.SetDefault("server.websocket.ping_interval", d.Server.WebSocket.PingInterval)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	opts := d.Engine.Options
	v.SetDefault("engine.max_iterations", d.Engine.MaxIterations)
	v.SetDefault("engine.options.lanes", opts.Lanes)
	v.SetDefault("engine.options.starting_hand", opts.StartingHand)
	v.SetDefault("engine.options.lives", opts.Lives)
	v.SetDefault("engine.options.hammers_per_turn", opts.HammersPerTurn)
	v.SetDefault("engine.options.scale_limit", opts.ScaleLimit)
	v.SetDefault("engine.options.max_energy", opts.MaxEnergy)
	v.SetDefault("engine.options.features", opts.Features)
	v.SetDefault("engine.options.ruleset", opts.Ruleset)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.bolt_path", d.Storage.BoltPath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("archive.path", d.Archive.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.sample_ratio", d.Telemetry.Ratio)
}
