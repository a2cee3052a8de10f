// Package config loads flock's TOML configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var configDir string
var configFilePath string

// defaultConfigDir is ~/.config/flock.
func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "flock"), nil
}

// Init initializes the configuration. An empty configPath uses the default
// location, creating the directory if needed. A missing config file is not
// an error; defaults apply.
func Init(configPath string) error {
	var err error
	if configPath != "" {
		configDir = filepath.Dir(configPath)
		configFilePath = configPath
	} else {
		configDir, err = defaultConfigDir()
		if err != nil {
			return err
		}
		configFilePath = filepath.Join(configDir, "config.toml")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	viper.SetConfigType("toml")
	setDefaults()

	viper.SetConfigFile(configFilePath)
	_ = viper.ReadInConfig()

	return nil
}

func setDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:8787")
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("api.token", "")

	viper.SetDefault("viewer.id", 0)

	// "multi" or "exclusive"
	viper.SetDefault("feed.pin_policy", "multi")

	viper.SetDefault("live.poll_seconds", 30)

	viper.SetDefault("ui.show_censored_placeholders", true)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("cache.path", filepath.Join(configDir, "flock.db"))
}

// Watch re-reads the config file whenever it changes on disk and invokes
// fn after each reload. Call once, after Init.
func Watch(fn func()) {
	viper.OnConfigChange(func(fsnotify.Event) { fn() })
	viper.WatchConfig()
}

// GetString returns a string configuration value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int configuration value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 returns an int64 configuration value.
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetBool returns a bool configuration value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Set overrides a value in memory, e.g. from a command-line flag.
func Set(key string, value interface{}) {
	viper.Set(key, value)
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return configDir
}
