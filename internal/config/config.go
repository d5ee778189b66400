package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string `yaml:"log-level" env-default:"info"`

	API    API    `yaml:"api"`
	Retry  Retry  `yaml:"retry"`
	Redis  Redis  `yaml:"redis"`
	Game   Game   `yaml:"game"`
	Demo   Demo   `yaml:"demo"`
	Oracle Oracle `yaml:"oracle"`

	// NoticeLifetimeMs - how long a failure notice stays up before it
	// dismisses itself.
	NoticeLifetimeMs int `yaml:"notice-lifetime-ms" env-default:"4000"`
}

type API struct {
	BaseURL   string `yaml:"base-url" env-default:"http://localhost:9090"`
	TimeoutMs int    `yaml:"timeout-ms" env-default:"10000"`
}

// Retry is the default policy; endpoints with their own timing override
// it per call.
type Retry struct {
	MaxRetries     int `yaml:"max-retries" env-default:"5"`
	InitialDelayMs int `yaml:"initial-delay-ms" env-default:"200"`
}

type Redis struct {
	Host   string `yaml:"host" env-default:"localhost"`
	Port   string `yaml:"port" env-default:"6379"`
	Prefix string `yaml:"prefix" env-default:"tictactoe:"`
}

type Game struct {
	Size       int    `yaml:"size" env-default:"3"`
	Opponent   string `yaml:"opponent" env-default:"computer"`
	Difficulty string `yaml:"difficulty" env-default:"medium"`
	HumanMark  string `yaml:"human-mark" env-default:"x"`
}

// Demo is the account the demo match plays under.
type Demo struct {
	Email    string `yaml:"email" env-default:"demo@example.com"`
	Password string `yaml:"password" env-default:"demo-secret"`
}

// Oracle configures the bundled reference server. When embedded is set the
// application starts it and the API base URL should point at it.
type Oracle struct {
	Embedded     bool   `yaml:"embedded" env-default:"true"`
	Port         string `yaml:"port" env-default:"9090"`
	JWTSecretKey string `yaml:"jwt-secret-key" env-default:"local-secret"`
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
