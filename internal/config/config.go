package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketAvatars string
	UseSSL        bool
	Region        string
	PresignTTL    time.Duration
}

// SecurityConfig holds token and hashing settings. TTLs are kept in their
// raw form ("7d", "15m", "3600") and resolved by Load.
type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     string
	JWTRefreshTTL    string
	BcryptCost       int

	AccessTTL  time.Duration `mapstructure:"-"`
	RefreshTTL time.Duration `mapstructure:"-"`
}

type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

type QueueConfig struct {
	ClaimInterval time.Duration
}

type SchedulerConfig struct {
	Enabled     bool
	CleanupSpec string
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment string
	APIPrefix   string
	HTTP        HTTPConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Security    SecurityConfig
	Lockout     LockoutConfig
	Queue       QueueConfig
	Scheduler   SchedulerConfig
	Logging     LoggingConfig
}

func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("TEMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) resolve() error {
	if c.Security.JWTAccessSecret == "" {
		return errors.New("config: security.jwtaccesssecret (JWT_SECRET) is required")
	}
	if c.Security.JWTRefreshSecret == "" {
		return errors.New("config: security.jwtrefreshsecret (JWT_REFRESH_SECRET) is required")
	}
	if c.Security.JWTAccessSecret == c.Security.JWTRefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}

	var err error
	if c.Security.AccessTTL, err = ParseTTL(c.Security.JWTAccessTTL); err != nil {
		return fmt.Errorf("config: access ttl: %w", err)
	}
	if c.Security.RefreshTTL, err = ParseTTL(c.Security.JWTRefreshTTL); err != nil {
		return fmt.Errorf("config: refresh ttl: %w", err)
	}

	if c.Lockout.Threshold <= 0 {
		return errors.New("config: lockout.threshold must be positive")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("config: lockout.duration must be positive")
	}
	return nil
}

// ParseTTL accepts a day count ("7d"), a Go duration ("15m", "1h30m") or a
// bare number of seconds ("3600").
func ParseTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty ttl")
	}

	var ttl time.Duration
	switch {
	case strings.HasSuffix(raw, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", raw)
		}
		ttl = time.Duration(days) * 24 * time.Hour
	default:
		if secs, err := strconv.Atoi(raw); err == nil {
			ttl = time.Duration(secs) * time.Second
			break
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", raw)
		}
		ttl = d
	}

	if ttl <= 0 {
		return 0, fmt.Errorf("ttl %q must be positive", raw)
	}
	return ttl, nil
}

// bindEnv maps the conventional deployment variable names onto config keys.
func bindEnv(v *viper.Viper) error {
	aliases := map[string][]string{
		"environment":               {"TEMS_ENVIRONMENT", "NODE_ENV"},
		"http.port":                 {"TEMS_HTTP_PORT", "PORT"},
		"postgres.dsn":              {"TEMS_POSTGRES_DSN", "DATABASE_URL"},
		"security.jwtaccesssecret":  {"TEMS_SECURITY_JWTACCESSSECRET", "JWT_SECRET"},
		"security.jwtaccessttl":     {"TEMS_SECURITY_JWTACCESSTTL", "JWT_EXPIRES_IN"},
		"security.jwtrefreshsecret": {"TEMS_SECURITY_JWTREFRESHSECRET", "JWT_REFRESH_SECRET"},
		"security.jwtrefreshttl":    {"TEMS_SECURITY_JWTREFRESHTTL", "JWT_REFRESH_EXPIRES_IN"},
		"redis.addr":                {"TEMS_REDIS_ADDR", "REDIS_ADDR"},
		"storage.endpoint":          {"TEMS_STORAGE_ENDPOINT"},
		"storage.accesskey":         {"TEMS_STORAGE_ACCESSKEY"},
		"storage.secretkey":         {"TEMS_STORAGE_SECRETKEY"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("apiprefix", "/api")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "auth:tasks")
	v.SetDefault("redis.group", "auth-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.bucketavatars", "temanagement-avatars")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.presignttl", "1h")

	v.SetDefault("security.jwtaccessttl", "1d")
	v.SetDefault("security.jwtrefreshttl", "7d")
	v.SetDefault("security.bcryptcost", 10)

	v.SetDefault("lockout.threshold", 5)
	v.SetDefault("lockout.duration", "30m")

	v.SetDefault("queue.claiminterval", "30s")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cleanupspec", "0 0 * * * *") // hourly

	v.SetDefault("logging.level", "")
}
