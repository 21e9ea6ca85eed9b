package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/envutil"
	"github.com/conceptbridge/conceptbridge-backend/internal/pkg/logger"
)

// Config holds process-level settings. Environment variables win over the
// optional YAML file so container deployments can override everything.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	Redis  RedisConfig  `yaml:"redis"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type AuthConfig struct {
	JWTSecretKey   string `yaml:"jwt_secret_key"`
	AccessTokenTTL int    `yaml:"access_token_ttl_seconds"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load reads the YAML file named by CONCEPTBRIDGE_CONFIG (when present) and
// then applies environment overrides.
func Load(log *logger.Logger) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        "8080",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Auth: AuthConfig{
			AccessTokenTTL: 3600,
		},
	}

	if path := os.Getenv("CONCEPTBRIDGE_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("loaded config file", "path", path)
		}
	}

	cfg.Server.Port = envutil.GetEnv("PORT", cfg.Server.Port, log)
	cfg.Auth.JWTSecretKey = envutil.GetEnv("JWT_SECRET_KEY", cfg.Auth.JWTSecretKey, log)
	cfg.Auth.AccessTokenTTL = envutil.GetEnvAsInt("ACCESS_TOKEN_TTL", cfg.Auth.AccessTokenTTL, log)
	cfg.Redis.Addr = envutil.GetEnv("REDIS_ADDR", cfg.Redis.Addr, log)
	cfg.Redis.Password = envutil.GetEnv("REDIS_PASSWORD", cfg.Redis.Password, log)
	cfg.Redis.DB = envutil.GetEnvAsInt("REDIS_DB", cfg.Redis.DB, log)

	return cfg, nil
}
