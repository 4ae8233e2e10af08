package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xaenox/support-bot/internal/bot"
	"github.com/xaenox/support-bot/internal/classifier"
	"github.com/xaenox/support-bot/internal/models"
	"github.com/xaenox/support-bot/internal/storage"
	"github.com/xaenox/support-bot/internal/support"
	"github.com/xaenox/support-bot/pkg/config"
	"go.uber.org/zap"
)

var (
	botName    string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "support-bot",
	Short: "Support bot: routes user questions to admins over Telegram",
	RunE:  runBot,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&botName, "bot", "b", "", "name of the bot entry in the config to run")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the config file")
	rootCmd.MarkPersistentFlagRequired("bot")
	rootCmd.AddCommand(exportCmd)
}

func main() {
	// A local .env complements the config file; missing is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, botCfg, store, err := setup(logger)
	if err != nil {
		logger.Error("Failed to set up", zap.Error(err))
		return err
	}
	defer store.Close()

	if err := seedPreparedEntries(cmd.Context(), store, cfg.Entries.Path, logger); err != nil {
		logger.Error("Failed to seed prepared entries", zap.Error(err))
		return err
	}

	sessions := support.NewSessions(cfg.Session.TTL)
	service := support.NewService(store, store, sessions, logger)

	var suggester classifier.Suggester
	if cfg.OpenAI.APIKey != "" {
		suggester = classifier.NewGPTSuggester(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			logger,
		)
	}

	b, err := bot.New(bot.Config{
		Token:             botCfg.Token,
		StartMessage:      botCfg.StartMessage,
		AdminStartMessage: botCfg.AdminStartMessage,
	}, service, store, suggester, logger)
	if err != nil {
		logger.Error("Failed to create bot", zap.Error(err))
		return err
	}

	logger.Info("Starting bot", zap.String("bot", botCfg.Name))
	return b.Start()
}

func setup(logger *zap.Logger) (*config.Config, config.BotConfig, storage.Storage, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, config.BotConfig{}, nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}

	botCfg, err := cfg.Bot(botName)
	if err != nil {
		return nil, config.BotConfig{}, nil, err
	}

	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage", zap.String("dbname", botCfg.DBName))
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      botCfg.DBName,
			AdminDBName: cfg.Database.AdminDBName,
			SSLMode:     cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			return nil, config.BotConfig{}, nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	return cfg, botCfg, store, nil
}

// seedPreparedEntries loads the FAQ file into the store on first run.
// Entries without a match key get a generated one.
func seedPreparedEntries(ctx context.Context, store storage.Storage, path string, logger *zap.Logger) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Warn("Prepared entries file not found, skipping seed", zap.String("path", path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read prepared entries file: %w", err)
	}

	var entries []models.PreparedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse prepared entries file: %w", err)
	}
	for i := range entries {
		if entries[i].MatchKey == "" {
			entries[i].MatchKey = "question_" + uuid.New().String()
		}
	}

	return store.SeedPreparedEntries(ctx, entries)
}
