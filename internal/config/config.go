// Package config loads application configuration from a config file,
// environment variables and built-in defaults, in that order of
// precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App     App     `mapstructure:"app"`
	AI      AI      `mapstructure:"ai"`
	Images  Images  `mapstructure:"images"`
	Storage Storage `mapstructure:"storage"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// AI holds LLM configuration.
type AI struct {
	DeepSeek DeepSeekConfig `mapstructure:"deepseek"`
}

// DeepSeekConfig holds the remote text completion endpoint settings.
type DeepSeekConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
}

// Images holds image search configuration.
type Images struct {
	Unsplash UnsplashConfig `mapstructure:"unsplash"`
}

// UnsplashConfig holds the Unsplash search credential.
type UnsplashConfig struct {
	AccessKey string `mapstructure:"access_key"`
}

// Storage holds local persistence configuration.
type Storage struct {
	DataDir string `mapstructure:"data_dir"`
}

// Load reads configuration: .env file (if present), then the config
// file (if present), then environment variables, then defaults.
func Load() (*Config, error) {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	setDefaults()
	bindEnvironment()

	if err := readConfigFile(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("ai.deepseek.base_url", "https://api.deepseek.com")
	viper.SetDefault("ai.deepseek.model", "deepseek-chat")
	viper.SetDefault("ai.deepseek.temperature", 0.8)
	viper.SetDefault("ai.deepseek.max_tokens", 4000)

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	viper.SetDefault("storage.data_dir", filepath.Join(home, ".lore"))
}

func bindEnvironment() {
	_ = viper.BindEnv("ai.deepseek.api_key", "DEEPSEEK_API_KEY")
	_ = viper.BindEnv("ai.deepseek.model", "DEEPSEEK_MODEL")
	_ = viper.BindEnv("images.unsplash.access_key", "UNSPLASH_ACCESS_KEY")
	_ = viper.BindEnv("storage.data_dir", "LORE_DATA_DIR")
	_ = viper.BindEnv("app.log_level", "LORE_LOG_LEVEL")
}

func readConfigFile() error {
	if cfgFile := viper.GetString("config_file"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".lore")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}
