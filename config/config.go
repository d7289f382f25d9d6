package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port          int  `mapstructure:"port"`
	Debug         bool `mapstructure:"debug"`
	TickMs        int  `mapstructure:"tick_ms"`
	SaveIntervalS int  `mapstructure:"save_interval_s"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// CombatConfig tunes the hit ladder. Chances are in basis points (100 = 1%).
type CombatConfig struct {
	BaseMissChanceBP    int     `mapstructure:"base_miss_chance_bp"`
	LevelDiffChanceBP   int     `mapstructure:"level_diff_chance_bp"`
	LevelDiffResistance int     `mapstructure:"level_diff_resistance"`
	CritMultiplier      float64 `mapstructure:"crit_multiplier"`
	MagnitudeDeviation  float64 `mapstructure:"magnitude_deviation"`
}

type GameConfig struct {
	MaxGroupSize           int    `mapstructure:"max_group_size"` // 0 = unlimited
	BelligerentPolicy      string `mapstructure:"belligerent_policy"`
	RandomTeleportAttempts int    `mapstructure:"random_teleport_attempts"`
	CityTeleportAttempts   int    `mapstructure:"city_teleport_attempts"`
	CityTeleportRadius     int    `mapstructure:"city_teleport_radius"` // podes
	ContentPath            string `mapstructure:"content_path"`
	NPCRespawnS            int    `mapstructure:"npc_respawn_s"` // 0 = never
	CommandQueue           int    `mapstructure:"command_queue"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AdminIPs may hold addresses or CIDR ranges. Empty allows loopback only.
	AdminIPs []string `mapstructure:"admin_ips"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.tick_ms", 100)
	v.SetDefault("server.save_interval_s", 300)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/hellas.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("combat.base_miss_chance_bp", 1000)
	v.SetDefault("combat.level_diff_chance_bp", 300)
	v.SetDefault("combat.level_diff_resistance", 30)
	v.SetDefault("combat.crit_multiplier", 2.0)
	v.SetDefault("combat.magnitude_deviation", 0.1)
	v.SetDefault("game.max_group_size", 0)
	v.SetDefault("game.belligerent_policy", "city_first")
	v.SetDefault("game.random_teleport_attempts", 50)
	v.SetDefault("game.city_teleport_attempts", 100)
	v.SetDefault("game.city_teleport_radius", 10)
	v.SetDefault("game.content_path", "./data/content.yaml")
	v.SetDefault("game.npc_respawn_s", 30)
	v.SetDefault("game.command_queue", 1024)
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("security.admin_ips", []string{})
}
