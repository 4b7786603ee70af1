package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/edulane/streakd/streak"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be
// provided via config files or the environment.
type AppConfig struct {
	AppPort   string
	JWTSecret string
	GinMode   string

	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Redis for counters / presence / token revocation
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	AllowedOrigins     []string
	RateLimitPerMinute int

	// Streak engine tuning
	MinutesPerDayRequired   int
	CommitThresholdMinutes  int
	MaxTickCreditMinutes    int
	HeartbeatTimeoutSeconds int
	ReaperIntervalSeconds   int
	LevelThresholds         []streak.LevelThreshold
}

var cfg AppConfig
var loaded bool

// Load reads configuration once during boot. Precedence:
// config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	normalizeThresholds(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// loadJSONConfig reads the JSON file into out if present. Returns error
// only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		switch t := m[key].(type) {
		case float64:
			return int(t)
		case int:
			return t
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key].(bool); ok {
			return v
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.GinMode = getString(app, "GinMode")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "LogLevel")
		out.LogPath = getString(lg, "LogPath")
		if v := getInt(lg, "LogMaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "LogMaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "LogMaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "LogCompress")
	}

	if st, ok := raw["streak"].(map[string]any); ok {
		if v := getInt(st, "MinutesPerDayRequired"); v != 0 {
			out.MinutesPerDayRequired = v
		}
		if v := getInt(st, "CommitThresholdMinutes"); v != 0 {
			out.CommitThresholdMinutes = v
		}
		if v := getInt(st, "MaxTickCreditMinutes"); v != 0 {
			out.MaxTickCreditMinutes = v
		}
		if v := getInt(st, "HeartbeatTimeoutSeconds"); v != 0 {
			out.HeartbeatTimeoutSeconds = v
		}
		if v := getInt(st, "ReaperIntervalSeconds"); v != 0 {
			out.ReaperIntervalSeconds = v
		}
		if arr, ok := st["LevelThresholds"].([]any); ok {
			var ts []streak.LevelThreshold
			for _, it := range arr {
				m, ok := it.(map[string]any)
				if !ok {
					continue
				}
				ts = append(ts, streak.LevelThreshold{
					Level:           getInt(m, "Level"),
					StreaksRequired: getInt(m, "StreaksRequired"),
				})
			}
			if len(ts) > 0 {
				out.LevelThresholds = ts
			}
		}
	}

	return nil
}

func applyDefaults(out *AppConfig) {
	if out.AppPort == "" {
		out.AppPort = "8080"
	}
	if out.GinMode == "" {
		out.GinMode = "release"
	}
	if out.DBHost == "" {
		out.DBHost = "127.0.0.1"
	}
	if out.DBPort == "" {
		out.DBPort = "3306"
	}
	if out.DBUser == "" {
		out.DBUser = "root"
	}
	if out.DBName == "" {
		out.DBName = "streakd"
	}
	if out.RedisHost == "" {
		out.RedisHost = "127.0.0.1"
	}
	if out.RedisPort == 0 {
		out.RedisPort = 6379
	}
	if out.RateLimitPerMinute == 0 {
		out.RateLimitPerMinute = 120
	}
	if out.MinutesPerDayRequired == 0 {
		out.MinutesPerDayRequired = 10
	}
	if out.CommitThresholdMinutes == 0 {
		out.CommitThresholdMinutes = 5
	}
	if out.MaxTickCreditMinutes == 0 {
		out.MaxTickCreditMinutes = 5
	}
	if out.HeartbeatTimeoutSeconds == 0 {
		out.HeartbeatTimeoutSeconds = 180
	}
	if out.ReaperIntervalSeconds == 0 {
		out.ReaperIntervalSeconds = 60
	}
	if len(out.LevelThresholds) == 0 {
		out.LevelThresholds = []streak.LevelThreshold{
			{Level: 1, StreaksRequired: 3},
			{Level: 2, StreaksRequired: 7},
			{Level: 3, StreaksRequired: 15},
			{Level: 4, StreaksRequired: 30},
			{Level: 5, StreaksRequired: 60},
			{Level: 6, StreaksRequired: 100},
		}
	}
	if len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = []string{"*"}
	}
}

func applyEnvOverrides(out *AppConfig) {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setStr(&out.AppPort, "APP_PORT")
	setStr(&out.JWTSecret, "JWT_SECRET")
	setStr(&out.GinMode, "GIN_MODE")
	setStr(&out.DatabaseURI, "DATABASE_URI")
	setStr(&out.DBHost, "DB_HOST")
	setStr(&out.DBPort, "DB_PORT")
	setStr(&out.DBUser, "DB_USER")
	setStr(&out.DBPassword, "DB_PASSWORD")
	setStr(&out.DBName, "DB_NAME")
	setStr(&out.RedisHost, "REDIS_HOST")
	setInt(&out.RedisPort, "REDIS_PORT")
	setInt(&out.RedisDB, "REDIS_DB")
	setStr(&out.RedisPassword, "REDIS_PASSWORD")
	setStr(&out.LogLevel, "LOG_LEVEL")
	setStr(&out.LogPath, "LOG_PATH")
	setInt(&out.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setInt(&out.MinutesPerDayRequired, "MINUTES_PER_DAY_REQUIRED")
	setInt(&out.CommitThresholdMinutes, "COMMIT_THRESHOLD_MINUTES")
	setInt(&out.MaxTickCreditMinutes, "MAX_TICK_CREDIT_MINUTES")
	setInt(&out.HeartbeatTimeoutSeconds, "HEARTBEAT_TIMEOUT_SECONDS")
	setInt(&out.ReaperIntervalSeconds, "REAPER_INTERVAL_SECONDS")

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				origins = append(origins, s)
			}
		}
		if len(origins) > 0 {
			out.AllowedOrigins = origins
		}
	}
}

// normalizeThresholds sorts the level table ascending by streak
// requirement and drops malformed entries, so the resolver can scan it
// in order.
func normalizeThresholds(out *AppConfig) {
	ts := out.LevelThresholds[:0]
	for _, t := range out.LevelThresholds {
		if t.Level > 0 && t.StreaksRequired > 0 {
			ts = append(ts, t)
		}
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].StreaksRequired < ts[j].StreaksRequired })
	out.LevelThresholds = ts
}
