package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Driver string
		Path   string
		URL    string
	}
	Relay struct {
		URL     string
		Enabled bool
	}
	Crawler struct {
		UserAgent            string
		FetchTimeout         string
		InterTaskDelay       string
		MaxAttempts          int
		MaxCandidatesPerPage int
		SweepInterval        string
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "capture.db")
	viper.SetDefault("relay.url", "wss://api.buscalogo.com")
	viper.SetDefault("relay.enabled", true)
	viper.SetDefault("crawler.useragent", "BuscaLogo Capture Agent v1.0")
	viper.SetDefault("crawler.fetchtimeout", "30s")
	viper.SetDefault("crawler.intertaskdelay", "1s")
	viper.SetDefault("crawler.maxattempts", 3)
	viper.SetDefault("crawler.maxcandidatesperpage", 0)
	viper.SetDefault("crawler.sweepinterval", "1h")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) GetFetchTimeout() time.Duration {
	duration, err := time.ParseDuration(c.Crawler.FetchTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return duration
}

func (c *Config) GetInterTaskDelay() time.Duration {
	duration, err := time.ParseDuration(c.Crawler.InterTaskDelay)
	if err != nil {
		return time.Second
	}
	return duration
}

func (c *Config) GetSweepInterval() time.Duration {
	duration, err := time.ParseDuration(c.Crawler.SweepInterval)
	if err != nil {
		return time.Hour
	}
	return duration
}
