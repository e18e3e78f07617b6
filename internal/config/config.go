package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string `yaml:"log-level" env-default:"info"`
	HTTPPort string `yaml:"http-port" env-default:"9090"`
	TCP      TCP    `yaml:"tcp"`
	Redis    Redis  `yaml:"redis"`
	Game     Game   `yaml:"game"`
}

type TCP struct {
	Port string `yaml:"port" env-default:"8000"`
	// IdleTimeout is a read deadline refreshed on every frame; zero keeps
	// idle connections open indefinitely.
	IdleTimeout time.Duration `yaml:"idle-timeout" env-default:"0"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

type Game struct {
	MapWidth  int `yaml:"map-width" env-default:"10"`
	MapHeight int `yaml:"map-height" env-default:"5"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
