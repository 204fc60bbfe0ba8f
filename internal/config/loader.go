package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names. Each one overrides the matching YAML key.
const (
	EnvConfigFile         = "SCHEDULER_CONFIG_FILE"
	EnvDotEnvFile         = "SCHEDULER_ENV_FILE"
	EnvHTTPPort           = "SCHEDULER_HTTP_PORT"
	EnvSQLitePath         = "SCHEDULER_SQLITE_PATH"
	EnvSessionTTL         = "SCHEDULER_SESSION_TTL"
	EnvSessionRenewWithin = "SCHEDULER_SESSION_RENEW_WITHIN"
	EnvLogLevel           = "SCHEDULER_LOG_LEVEL"
	EnvLogFormat          = "SCHEDULER_LOG_FORMAT"
	EnvRedisAddr          = "SCHEDULER_REDIS_ADDR"
	EnvRedisPassword      = "SCHEDULER_REDIS_PASSWORD"
	EnvRedisDB            = "SCHEDULER_REDIS_DB"
	EnvCacheTTL           = "SCHEDULER_CACHE_TTL"
	EnvRateLimitRPS       = "SCHEDULER_RATE_LIMIT_RPS"
	EnvRateLimitBurst     = "SCHEDULER_RATE_LIMIT_BURST"
	EnvMetricsEnabled     = "SCHEDULER_METRICS_ENABLED"
	EnvShutdownTimeout    = "SCHEDULER_SHUTDOWN_TIMEOUT"
	EnvTracingEnabled     = "SCHEDULER_TRACING_ENABLED"
	EnvOTLPEndpoint       = "SCHEDULER_OTLP_ENDPOINT"
	EnvTraceSampleRatio   = "SCHEDULER_TRACE_SAMPLE_RATIO"
	EnvAdminEmail         = "SCHEDULER_BOOTSTRAP_ADMIN_EMAIL"
	EnvAdminPassword      = "SCHEDULER_BOOTSTRAP_ADMIN_PASSWORD"
	EnvAdminName          = "SCHEDULER_BOOTSTRAP_ADMIN_NAME"
)

// Config captures configuration values for the scheduler service.
type Config struct {
	HTTPPort           int
	SQLitePath         string
	SessionTTL         time.Duration
	SessionRenewWithin time.Duration
	LogLevel           string
	LogFormat          string
	Redis              RedisConfig
	RateLimit          RateLimitConfig
	MetricsEnabled     bool
	Tracing            TracingConfig
	ShutdownTimeout    time.Duration
	BootstrapAdmin     BootstrapAdmin
}

// RedisConfig configures the availability cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// RateLimitConfig configures the per-client token bucket. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// TracingConfig configures span export. Trace context propagation is always on.
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// BootstrapAdmin describes an administrator created at startup when missing.
type BootstrapAdmin struct {
	Email       string
	Password    string
	DisplayName string
}

// Enabled reports whether a bootstrap administrator was configured.
func (b BootstrapAdmin) Enabled() bool {
	return b.Email != ""
}

// fileConfig mirrors the optional YAML file. Scalars are kept as strings so
// file and environment values share one parser.
type fileConfig struct {
	HTTPPort           string `yaml:"http_port"`
	SQLitePath         string `yaml:"sqlite_path"`
	SessionTTL         string `yaml:"session_ttl"`
	SessionRenewWithin string `yaml:"session_renew_within"`
	Log                struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       string `yaml:"db"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"redis"`
	RateLimit struct {
		RPS   string `yaml:"rps"`
		Burst string `yaml:"burst"`
	} `yaml:"rate_limit"`
	Tracing struct {
		Enabled      string `yaml:"enabled"`
		OTLPEndpoint string `yaml:"otlp_endpoint"`
		SampleRatio  string `yaml:"sample_ratio"`
	} `yaml:"tracing"`
	MetricsEnabled  string `yaml:"metrics_enabled"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	BootstrapAdmin  struct {
		Email       string `yaml:"email"`
		Password    string `yaml:"password"`
		DisplayName string `yaml:"display_name"`
	} `yaml:"bootstrap_admin"`
}

func (f fileConfig) values() map[string]string {
	return map[string]string{
		EnvHTTPPort:           f.HTTPPort,
		EnvSQLitePath:         f.SQLitePath,
		EnvSessionTTL:         f.SessionTTL,
		EnvSessionRenewWithin: f.SessionRenewWithin,
		EnvLogLevel:           f.Log.Level,
		EnvLogFormat:          f.Log.Format,
		EnvRedisAddr:          f.Redis.Addr,
		EnvRedisPassword:      f.Redis.Password,
		EnvRedisDB:            f.Redis.DB,
		EnvCacheTTL:           f.Redis.CacheTTL,
		EnvRateLimitRPS:       f.RateLimit.RPS,
		EnvRateLimitBurst:     f.RateLimit.Burst,
		EnvMetricsEnabled:     f.MetricsEnabled,
		EnvShutdownTimeout:    f.ShutdownTimeout,
		EnvTracingEnabled:     f.Tracing.Enabled,
		EnvOTLPEndpoint:       f.Tracing.OTLPEndpoint,
		EnvTraceSampleRatio:   f.Tracing.SampleRatio,
		EnvAdminEmail:         f.BootstrapAdmin.Email,
		EnvAdminPassword:      f.BootstrapAdmin.Password,
		EnvAdminName:          f.BootstrapAdmin.DisplayName,
	}
}

// Load builds the configuration from, in increasing precedence, built-in
// defaults, the YAML file named by SCHEDULER_CONFIG_FILE and the process
// environment. A .env file (SCHEDULER_ENV_FILE, default ".env") is loaded
// first without overriding variables that are already set.
//
// Missing and invalid entries are collected and reported together.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv(EnvDotEnvFile))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("設定ファイルを読み込めません: %s: %w", envFile, err)
	}

	values := make(map[string]string)
	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		for key, value := range file.values() {
			if strings.TrimSpace(value) != "" {
				values[key] = strings.TrimSpace(value)
			}
		}
	}
	for key := range (fileConfig{}).values() {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			values[key] = value
		}
	}
	return parse(values)
}

func readFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("設定ファイルを読み込めません: %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return fileConfig{}, fmt.Errorf("設定ファイルの形式が不正です: %s: %w", path, err)
	}
	return file, nil
}

func parse(values map[string]string) (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLitePath:      "scheduler.db",
		SessionTTL:      24 * time.Hour,
		LogLevel:        "info",
		LogFormat:       "json",
		Redis:           RedisConfig{CacheTTL: 2 * time.Minute},
		RateLimit:       RateLimitConfig{RPS: 10, Burst: 20},
		MetricsEnabled:  true,
		Tracing:         TracingConfig{OTLPEndpoint: "localhost:4317", SampleRatio: 1},
		ShutdownTimeout: 10 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if v, ok := values[EnvHTTPPort]; ok {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, EnvHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}

	if v, ok := values[EnvSQLitePath]; ok {
		cfg.SQLitePath = v
	}

	if v, ok := values[EnvSessionTTL]; ok {
		if ttl, err := time.ParseDuration(v); err != nil || ttl <= 0 {
			invalid = append(invalid, EnvSessionTTL)
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if v, ok := values[EnvSessionRenewWithin]; ok {
		if within, err := time.ParseDuration(v); err != nil || within <= 0 {
			invalid = append(invalid, EnvSessionRenewWithin)
		} else {
			cfg.SessionRenewWithin = within
		}
	}

	if v, ok := values[EnvLogLevel]; ok {
		switch level := strings.ToLower(v); level {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, EnvLogLevel)
		}
	}

	if v, ok := values[EnvLogFormat]; ok {
		switch format := strings.ToLower(v); format {
		case "json", "text":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, EnvLogFormat)
		}
	}

	cfg.Redis.Addr = values[EnvRedisAddr]
	cfg.Redis.Password = values[EnvRedisPassword]
	if v, ok := values[EnvRedisDB]; ok {
		if db, err := strconv.Atoi(v); err != nil || db < 0 {
			invalid = append(invalid, EnvRedisDB)
		} else {
			cfg.Redis.DB = db
		}
	}
	if v, ok := values[EnvCacheTTL]; ok {
		if ttl, err := time.ParseDuration(v); err != nil || ttl <= 0 {
			invalid = append(invalid, EnvCacheTTL)
		} else {
			cfg.Redis.CacheTTL = ttl
		}
	}

	if v, ok := values[EnvRateLimitRPS]; ok {
		if rps, err := strconv.ParseFloat(v, 64); err != nil || rps < 0 {
			invalid = append(invalid, EnvRateLimitRPS)
		} else {
			cfg.RateLimit.RPS = rps
		}
	}
	if v, ok := values[EnvRateLimitBurst]; ok {
		if burst, err := strconv.Atoi(v); err != nil || burst <= 0 {
			invalid = append(invalid, EnvRateLimitBurst)
		} else {
			cfg.RateLimit.Burst = burst
		}
	}

	if v, ok := values[EnvMetricsEnabled]; ok {
		if enabled, err := strconv.ParseBool(v); err != nil {
			invalid = append(invalid, EnvMetricsEnabled)
		} else {
			cfg.MetricsEnabled = enabled
		}
	}

	if v, ok := values[EnvTracingEnabled]; ok {
		if enabled, err := strconv.ParseBool(v); err != nil {
			invalid = append(invalid, EnvTracingEnabled)
		} else {
			cfg.Tracing.Enabled = enabled
		}
	}
	if v, ok := values[EnvOTLPEndpoint]; ok {
		cfg.Tracing.OTLPEndpoint = v
	}
	if v, ok := values[EnvTraceSampleRatio]; ok {
		if ratio, err := strconv.ParseFloat(v, 64); err != nil || ratio < 0 || ratio > 1 {
			invalid = append(invalid, EnvTraceSampleRatio)
		} else {
			cfg.Tracing.SampleRatio = ratio
		}
	}

	if v, ok := values[EnvShutdownTimeout]; ok {
		if timeout, err := time.ParseDuration(v); err != nil || timeout <= 0 {
			invalid = append(invalid, EnvShutdownTimeout)
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if email, ok := values[EnvAdminEmail]; ok {
		if _, err := mail.ParseAddress(email); err != nil {
			invalid = append(invalid, EnvAdminEmail)
		}
		cfg.BootstrapAdmin.Email = strings.ToLower(email)
		cfg.BootstrapAdmin.DisplayName = "Administrator"
		if name, ok := values[EnvAdminName]; ok {
			cfg.BootstrapAdmin.DisplayName = name
		}
		if password, ok := values[EnvAdminPassword]; ok {
			cfg.BootstrapAdmin.Password = password
		} else {
			missing = append(missing, EnvAdminPassword)
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
