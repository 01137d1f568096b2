package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Resource ResourceConfig `mapstructure:"resource"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type ResourceConfig struct {
	// DataPath overrides the embedded item/monster/map/skill tables.
	DataPath string `mapstructure:"data_path"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // memory | sqlite | mysql
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
	// KeyPrefix namespaces Redis keys and channels.
	KeyPrefix       string        `mapstructure:"key_prefix"`
}

type GameConfig struct {
	TickMs                int    `mapstructure:"tick_ms"`
	AutopilotFrames       int    `mapstructure:"autopilot_frames"`
	RecycleIntervalFrames int    `mapstructure:"recycle_interval_frames"`
	AutosaveIntervalS     int    `mapstructure:"autosave_interval_s"`
	RankingIntervalS      int    `mapstructure:"ranking_interval_s"`
	SaveDir               string `mapstructure:"save_dir"`
	SaveSecret            string `mapstructure:"save_secret"`
	SaveBackend           string `mapstructure:"save_backend"` // file | db
	StartMap              string `mapstructure:"start_map"`
	DefaultClass          string `mapstructure:"default_class"`
	EventQueueLimit       int    `mapstructure:"event_queue_limit"`
}

// TickInterval is the wall-clock length of one simulation frame.
func (g GameConfig) TickInterval() time.Duration {
	if g.TickMs <= 0 {
		return time.Second / 60
	}
	return time.Duration(g.TickMs) * time.Millisecond
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AdminIPs lists addresses or CIDRs allowed on /admin. Empty means loopback only.
	AdminIPs []string `mapstructure:"admin_ips"`
}

// AuditConfig selects which room events are stored and for how long.
type AuditConfig struct {
	Types     []string      `mapstructure:"types"` // empty: audit.DefaultTypes
	Retention time.Duration `mapstructure:"retention"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/idle.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("cache.key_prefix", "")
	v.SetDefault("game.tick_ms", 16)
	v.SetDefault("game.autopilot_frames", 30)
	v.SetDefault("game.recycle_interval_frames", 600)
	v.SetDefault("game.autosave_interval_s", 300)
	v.SetDefault("game.ranking_interval_s", 60)
	v.SetDefault("game.save_dir", "./data/saves")
	v.SetDefault("game.save_secret", "miridle-dev-secret")
	v.SetDefault("game.save_backend", "file")
	v.SetDefault("game.start_map", "novice_village")
	v.SetDefault("game.default_class", "warrior")
	v.SetDefault("game.event_queue_limit", 1024)
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("audit.retention", "168h")
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	// MIRIDLE_GAME_TICK_MS overrides game.tick_ms.
	v.SetEnvPrefix("MIRIDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
