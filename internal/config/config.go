package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	NATS     NATS
	JWT      JWT
}

type Server struct {
	Port string
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type Redis struct {
	Addr string
}

type NATS struct {
	URL string
}

type JWT struct {
	Secret string
}

// Load reads config.yaml (searched in ./config and .) and lets
// HUDDLE_-prefixed environment variables override any key. A missing file is
// fine; defaults cover local development.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HUDDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "huddle")
	v.SetDefault("postgres.password", "huddle_dev_password")
	v.SetDefault("postgres.database", "huddle")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("jwt.secret", "dev-secret-change-me")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
