package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	Server      Server
	Log         Log
	Docstore    Docstore
	Postgres    Postgres
	Redis       RedisConfig
	ObjectStore ObjectStore
	Auth        Auth
	Draft       Draft
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Log struct {
	Format string
	Level  string
}

// Docstore selects the document-store backend: "memory" or "postgres".
type Docstore struct {
	Driver string
}

type Postgres struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds the draft cache connection. An empty URL disables redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ObjectStore selects the blob backend: "memory" or "filesystem".
type ObjectStore struct {
	Driver    string
	Root      string
	PublicURL string
	Bucket    string
}

// Auth selects the identity provider: "local" or "identitytoolkit".
type Auth struct {
	Driver     string
	SigningKey string
	TokenTTL   time.Duration
	APIKey     string
	Endpoint   string
}

type Draft struct {
	TTL time.Duration
}

// EnvPrefix namespaces every environment variable, e.g. CUSTODIA_POSTGRES_DSN.
const EnvPrefix = "CUSTODIA"

// Load reads configuration from the environment and, when CUSTODIA_CONFIG names a
// file, from that file. Environment variables win over the file.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Server: Server{
			Addr:            v.GetString("addr"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		},
		Log: Log{
			Format: v.GetString("log.format"),
			Level:  v.GetString("log.level"),
		},
		Docstore: Docstore{Driver: v.GetString("docstore.driver")},
		Postgres: Postgres{
			DSN:          v.GetString("postgres.dsn"),
			MaxOpenConns: v.GetInt("postgres.max_open_conns"),
			MaxIdleConns: v.GetInt("postgres.max_idle_conns"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		ObjectStore: ObjectStore{
			Driver:    v.GetString("objectstore.driver"),
			Root:      v.GetString("objectstore.root"),
			PublicURL: v.GetString("objectstore.public_url"),
			Bucket:    v.GetString("objectstore.bucket"),
		},
		Auth: Auth{
			Driver:     v.GetString("auth.driver"),
			SigningKey: v.GetString("auth.signing_key"),
			TokenTTL:   v.GetDuration("auth.token_ttl"),
			APIKey:     v.GetString("auth.api_key"),
			Endpoint:   v.GetString("auth.endpoint"),
		},
		Draft: Draft{TTL: v.GetDuration("draft.ttl")},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log.format", "json")
	v.SetDefault("log.level", "info")
	v.SetDefault("docstore.driver", "memory")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("objectstore.driver", "memory")
	v.SetDefault("objectstore.root", "./data/objects")
	v.SetDefault("objectstore.public_url", "http://localhost:8080")
	v.SetDefault("objectstore.bucket", "custodia")
	v.SetDefault("auth.driver", "local")
	// Development default; production deployments must override it.
	v.SetDefault("auth.signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.endpoint", "")
	v.SetDefault("draft.ttl", 12*time.Hour)
}

func (c Config) validate() error {
	switch c.Docstore.Driver {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when docstore.driver is postgres")
		}
	default:
		return fmt.Errorf("unknown docstore.driver %q", c.Docstore.Driver)
	}
	switch c.ObjectStore.Driver {
	case "memory", "filesystem":
	default:
		return fmt.Errorf("unknown objectstore.driver %q", c.ObjectStore.Driver)
	}
	switch c.Auth.Driver {
	case "local":
		if c.Auth.SigningKey == "" {
			return fmt.Errorf("auth.signing_key is required when auth.driver is local")
		}
	case "identitytoolkit":
		if c.Auth.APIKey == "" {
			return fmt.Errorf("auth.api_key is required when auth.driver is identitytoolkit")
		}
	default:
		return fmt.Errorf("unknown auth.driver %q", c.Auth.Driver)
	}
	return nil
}
