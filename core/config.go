package core

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env            string `yaml:"env" env:"ENV" env-default:"local"`
	TelegramApiKey string `yaml:"telegram_api_key" env:"TELEGRAM_API_KEY" env-default:""`
	Username       string `yaml:"username" env:"BOT_USERNAME" env-default:""`
	Provider       struct {
		BaseURL      string        `yaml:"base_url" env:"FB_BASE_URL" env-default:"https://api-key.fusionbrain.ai/"`
		ApiKey       string        `yaml:"api_key" env:"FB_API_KEY" env-default:""`
		SecretKey    string        `yaml:"secret_key" env:"FB_SECRET_KEY" env-default:""`
		Timeout      time.Duration `yaml:"timeout" env:"FB_TIMEOUT" env-default:"60s"`
		PollAttempts int           `yaml:"poll_attempts" env:"FB_POLL_ATTEMPTS" env-default:"10"`
		PollInterval time.Duration `yaml:"poll_interval" env:"FB_POLL_INTERVAL" env-default:"10s"`
		Images       int           `yaml:"images" env-default:"1"`
		Width        int           `yaml:"width" env-default:"1024"`
		Height       int           `yaml:"height" env-default:"1024"`
	} `yaml:"provider"`
	Output struct {
		Dir string        `yaml:"dir" env:"OUTPUT_DIR" env-default:"img"`
		TTL time.Duration `yaml:"ttl" env:"OUTPUT_TTL" env-default:"0s"`
	} `yaml:"output"`
	Session struct {
		TTL           time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"24h"`
		SweepInterval time.Duration `yaml:"sweep_interval" env-default:"10m"`
	} `yaml:"session"`
	Generation struct {
		PerMinute int `yaml:"per_minute" env:"GENERATE_PER_MINUTE" env-default:"0"`
	} `yaml:"generation"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
		Listen  string `yaml:"listen" env:"METRICS_LISTEN" env-default:":9090"`
	} `yaml:"metrics"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env-default:"painter"`
	} `yaml:"mongo"`
	Styles []StyleOption `yaml:"styles"`
}

// Load reads an optional .env file, then the yaml config at path; without
// the file only environment variables are used.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{}
	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, conf)
	} else {
		err = cleanenv.ReadEnv(conf)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}

	if len(conf.Styles) == 0 {
		conf.Styles = DefaultStyles()
	}
	if err = conf.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return conf, nil
}

func MustLoad(path string) *Config {
	conf, err := Load(path)
	if err != nil {
		panic(err)
	}
	return conf
}

func (c *Config) validate() error {
	if c.TelegramApiKey == "" {
		return errors.New("telegram_api_key is not set")
	}
	if c.Provider.ApiKey == "" || c.Provider.SecretKey == "" {
		return errors.New("provider api_key and secret_key are required")
	}
	if c.Provider.PollAttempts <= 0 {
		return fmt.Errorf("provider poll_attempts must be positive, got %d", c.Provider.PollAttempts)
	}
	for _, s := range c.Styles {
		if s.Name == "" {
			return errors.New("style without name")
		}
	}
	return nil
}

// Request builds a generation request with the configured image parameters
func (c *Config) Request(positive, negative string, style Style) GenerationRequest {
	return GenerationRequest{
		Positive: positive,
		Negative: negative,
		Style:    style,
		Images:   c.Provider.Images,
		Width:    c.Provider.Width,
		Height:   c.Provider.Height,
	}
}
