package config

import (
	"sync"
	"time"
)

type Config struct {
	Env            string           `yaml:"env" env:"ENV" env-default:"local"`
	HttpServer     HttpServerConfig `yaml:"httpServer"`
	Storage        StorageConfig    `yaml:"storage"`
	BotConfig      BotConfig        `yaml:"bot"`
	Welcome        WelcomeConfig    `yaml:"welcome"`
	Responder      ResponderConfig  `yaml:"responder"`
	ConfigFilePath string           `yaml:"configFilePath" env:"CONFIG_FILEPATH" env-default:""`
	ConfigFileName string           `yaml:"configFileName" env:"CONFIG_FILENAME" env-default:""`
	configPath     string
	mu             sync.RWMutex
}

// HttpServerConfig configures the webhook/metrics listener.
type HttpServerConfig struct {
	Enabled bool          `yaml:"enabled" env:"HTTP_ENABLED" env-default:"false"`
	Address string        `yaml:"address" env-default:"0.0.0.0"`
	Port    string        `yaml:"port" env:"PORT" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type StorageConfig struct {
	Driver  string   `yaml:"driver" env:"STORAGE_DRIVER" env-default:"file"`
	DataDir string   `yaml:"dataDir" env:"DATA_DIR" env-default:"data"`
	DB      DBConfig `yaml:"db"`
}

type DBConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"postgres"`
	User     string `yaml:"user" env:"DB_USER" env-default:"user"`
	Password string `yaml:"password" env:"DB_PASSWORD" env-default:"password"`
	Schema   string `yaml:"schema" env:"DB_SCHEMA" env-default:"oplatym"`
}

type BotConfig struct {
	TgbotApiToken string `yaml:"-" env:"BOT_TOKEN" env-required:"true"`
	// polling or webhook
	Mode          string `yaml:"mode" env:"BOT_MODE" env-default:"polling"`
	WebhookURL    string `yaml:"webhookUrl" env:"BOT_WEBHOOK_URL"`
	WebhookSecret string `yaml:"webhookSecret" env:"BOT_WEBHOOK_SECRET"`
	Workers       int    `yaml:"workers" env-default:"1"`

	PublicChatID     int64    `yaml:"publicChatId" env:"PUBLIC_CHAT_ID" env-default:"-1002136717768"`
	Managers         []int64  `yaml:"managers"`
	Admins           []int64  `yaml:"admins"`
	OfficialAccounts []string `yaml:"officialAccounts"`
	QuickReplies     []string `yaml:"quickReplies"`

	SessionTTL        time.Duration `yaml:"sessionTTL" env-default:"30m"`
	BroadcastSchedule string        `yaml:"broadcastSchedule"`
	BroadcastLimit    int           `yaml:"broadcastLimit" env-default:"4000"`
	BroadcastInterval time.Duration `yaml:"broadcastInterval" env-default:"1s"`
}

type WelcomeConfig struct {
	// Text must contain one %s verb for the member name.
	Text        string        `yaml:"text"`
	DeleteAfter time.Duration `yaml:"deleteAfter" env-default:"3m"`
}

type ResponderConfig struct {
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}
