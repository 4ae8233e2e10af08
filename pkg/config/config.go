package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config describes one deployment file shared by several bots: each entry in
// Bots is a separate support line with its own token and database, while the
// admin roster database is common to all of them.
type Config struct {
	Bots     []BotConfig    `mapstructure:"bots"`
	Database DatabaseConfig `mapstructure:"database"`
	Entries  EntriesConfig  `mapstructure:"entries"`
	Session  SessionConfig  `mapstructure:"session"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
}

type BotConfig struct {
	Name              string `mapstructure:"name"`
	Token             string `mapstructure:"token"`
	DBName            string `mapstructure:"dbname"`
	StartMessage      string `mapstructure:"start_message"`
	AdminStartMessage string `mapstructure:"admin_start_message"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	AdminDBName string `mapstructure:"admin_dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type EntriesConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// Bot returns the configuration of the named bot.
func (c *Config) Bot(name string) (BotConfig, error) {
	for _, b := range c.Bots {
		if b.Name == name {
			return b, nil
		}
	}
	return BotConfig{}, fmt.Errorf("bot %q is not defined in the config", name)
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.admin_dbname", "support_admins")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("entries.path", "data/questions.json")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 50)
	v.SetDefault("openai.temperature", 0.2)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable. The per-bot dbname still
	// comes from the bot entry; the URL supplies the connection parameters.
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.AdminDBName = config.Database.AdminDBName
		dbConfig.UseInMemory = config.Database.UseInMemory
		if dbName := strings.TrimPrefix(mustParsePath(dbURL), "/"); dbName != "" {
			// A database in the URL overrides every bot entry; deployments
			// run a single bot per process.
			for i := range config.Bots {
				config.Bots[i].DBName = dbName
			}
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		for i := range config.Bots {
			config.Bots[i].Token = token
		}
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}

func mustParsePath(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return ""
	}
	return u.Path
}
