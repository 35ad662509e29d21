package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `json:"app" mapstructure:"app"`
	UI      UIConfig      `json:"ui" mapstructure:"ui"`
	Channel ChannelConfig `json:"channel" mapstructure:"channel"`
	Service ServiceConfig `json:"service" mapstructure:"service"`
	Addons  AddonsConfig  `json:"addons" mapstructure:"addons"`
	Bridge  BridgeConfig  `json:"bridge" mapstructure:"bridge"`
}

// UIConfig holds user toggles the service re-reads on sync commands.
type UIConfig struct {
	TTSEnabled bool `json:"tts_enabled" mapstructure:"tts_enabled"`
	SmartMode  bool `json:"smart_mode" mapstructure:"smart_mode"`
}

type AppConfig struct {
	LogLevel   string `json:"log_level" mapstructure:"log_level"`
	DebounceMS int    `json:"debounce_ms" mapstructure:"debounce_ms"`
	FrameMS    int    `json:"frame_ms" mapstructure:"frame_ms"`
}

type ChannelConfig struct {
	StatusFile  string `json:"status_file" mapstructure:"status_file"`
	CommandFile string `json:"command_file" mapstructure:"command_file"`
	PollMS      int    `json:"poll_ms" mapstructure:"poll_ms"`
}

type ServiceConfig struct {
	Command   string `json:"command" mapstructure:"command"`
	AutoStart bool   `json:"auto_start" mapstructure:"auto_start"`
}

type AddonsConfig struct {
	Root string `json:"root" mapstructure:"root"`
}

type BridgeConfig struct {
	SocketPath string `json:"socket_path" mapstructure:"socket_path"`
}

func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			LogLevel:   "INFO",
			DebounceMS: 1000,
			FrameMS:    80,
		},
		UI: UIConfig{
			TTSEnabled: true,
			SmartMode:  false,
		},
		Channel: ChannelConfig{
			StatusFile:  filepath.Join(CACHE_DIR, "status.json"),
			CommandFile: filepath.Join(CACHE_DIR, "command.txt"),
			PollMS:      300,
		},
		Service: ServiceConfig{
			Command:   "",
			AutoStart: false,
		},
		Addons: AddonsConfig{
			Root: filepath.Join(CONFIG_DIR, "addons"),
		},
		Bridge: BridgeConfig{
			SocketPath: "/tmp/voxbar.sock",
		},
	}
}

func Load() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AddConfigPath(CONFIG_DIR)

	viper.SetEnvPrefix("VOXBAR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func Validate(config *Config) error {
	if config.App.DebounceMS <= 0 {
		return fmt.Errorf("debounce window must be positive")
	}
	if config.App.FrameMS <= 0 {
		return fmt.Errorf("frame interval must be positive")
	}
	if config.Channel.PollMS <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if config.Channel.StatusFile == "" {
		return fmt.Errorf("status file path is required")
	}
	if config.Channel.CommandFile == "" {
		return fmt.Errorf("command file path is required")
	}
	if config.Addons.Root == "" {
		return fmt.Errorf("addons root is required")
	}
	if config.Bridge.SocketPath == "" {
		return fmt.Errorf("bridge socket path is required")
	}
	return nil
}

// InitConfigFile writes the default config when none exists yet.
func InitConfigFile() error {
	configPath := filepath.Join(CONFIG_DIR, "config.json")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	if err := os.MkdirAll(CONFIG_DIR, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configData, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(configPath, configData, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveUI persists the user toggles into the app config file so the
// service can re-read them on a sync command.
func SaveUI(ttsEnabled, smartMode bool) error {
	viper.Set("ui.tts_enabled", ttsEnabled)
	viper.Set("ui.smart_mode", smartMode)

	configPath := filepath.Join(CONFIG_DIR, "config.json")
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var globalConfig *Config

func GetConfig() (*Config, error) {
	if globalConfig == nil {
		config, err := Load()
		if err != nil {
			return nil, err
		}
		globalConfig = config
	}
	return globalConfig, nil
}
