package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func MustLoad() *Config {
	op := "config.MustLoad()"
	log := slog.With(
		slog.String("op", op),
	)
	defaultConfigPath := "config.yml"

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("cannot load .env file", slog.String("error", err.Error()))
	}

	configPath := fetchConfigPath()

	if configPath == "" {
		log.Warn("config path is empty. Loading default config path",
			slog.String("defaultConfigPath", defaultConfigPath))
		configPath = defaultConfigPath
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}
	return cfg
}

// Load reads the YAML file at configPath and overlays environment variables.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg.configPath = configPath
	return &cfg, nil
}

func fetchConfigPath() string {
	op := "config.fetchConfigPath()"
	log := slog.With(
		slog.String("op", op),
	)

	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res != "" {
		log.Info("load config path from command line.",
			slog.String("path", res))
		return res
	}
	res = fmt.Sprintf("%s%s",
		os.Getenv("CONFIG_FILEPATH"),
		os.Getenv("CONFIG_FILENAME"))
	log.Info(
		"load config path from env",
		slog.String("CONFIG_FILEPATH", os.Getenv("CONFIG_FILEPATH")),
		slog.String("CONFIG_FILENAME", os.Getenv("CONFIG_FILENAME")),
	)
	return res
}

// Write persists the current config back to the file it was loaded from.
func (cfg *Config) Write() error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.write()
}

func (cfg *Config) write() error {
	bufWrite, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error config.Write() marshall: %w", err)
	}

	err = os.WriteFile(cfg.configPath, bufWrite, 0o644)
	if err != nil {
		return fmt.Errorf("error config.Write() write file: %w", err)
	}
	return nil
}

// Reload re-reads the config file. The bot token and the listener settings
// are kept: they only take effect on restart.
func (cfg *Config) Reload() error {
	fresh, err := Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("config.Reload: %w", err)
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	token := cfg.BotConfig.TgbotApiToken
	mode := cfg.BotConfig.Mode
	cfg.BotConfig = fresh.BotConfig
	cfg.BotConfig.TgbotApiToken = token
	cfg.BotConfig.Mode = mode
	cfg.Welcome = fresh.Welcome
	cfg.Responder = fresh.Responder
	return nil
}

// IsAdmin reports whether userID may run moderation and config commands.
func (cfg *Config) IsAdmin(userID int64) bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return slices.Contains(cfg.BotConfig.Admins, userID)
}

// IsManager reports whether userID may use the CRM panel and publish reviews.
// Admins are managers as well.
func (cfg *Config) IsManager(userID int64) bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return slices.Contains(cfg.BotConfig.Managers, userID) ||
		slices.Contains(cfg.BotConfig.Admins, userID)
}

// AddAdmin appends userID to the admin list and writes the file back.
// The in-memory list is rolled back when the write fails.
func (cfg *Config) AddAdmin(userID int64) (bool, error) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	if slices.Contains(cfg.BotConfig.Admins, userID) {
		return false, nil
	}
	cfg.BotConfig.Admins = append(cfg.BotConfig.Admins, userID)
	if err := cfg.write(); err != nil {
		cfg.BotConfig.Admins = cfg.BotConfig.Admins[:len(cfg.BotConfig.Admins)-1]
		return false, err
	}
	return true, nil
}

// SetWelcomeText replaces the welcome template and writes the file back.
func (cfg *Config) SetWelcomeText(text string) error {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	prev := cfg.Welcome.Text
	cfg.Welcome.Text = text
	if err := cfg.write(); err != nil {
		cfg.Welcome.Text = prev
		return err
	}
	return nil
}

func (cfg *Config) WelcomeText() string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.Welcome.Text
}

func (cfg *Config) QuickReplies() []string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return slices.Clone(cfg.BotConfig.QuickReplies)
}

func (cfg *Config) OfficialAccounts() []string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return slices.Clone(cfg.BotConfig.OfficialAccounts)
}

func (cfg *Config) PublicChatID() int64 {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.BotConfig.PublicChatID
}

func (cfg *Config) WelcomeDeleteAfter() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.Welcome.DeleteAfter
}

// ResponderRules returns the configured trigger phrases and reply. Empty values
// mean the built-in defaults.
func (cfg *Config) ResponderRules() ([]string, string) {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return slices.Clone(cfg.Responder.Keywords), cfg.Responder.Reply
}
