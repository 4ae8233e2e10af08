package main

import (
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"github.com/xaenox/support-bot/internal/models"
	"go.uber.org/zap"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump tickets and mailings as JSON and send the file to every admin",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, _ []string) error {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	_, botCfg, store, err := setup(logger)
	if err != nil {
		logger.Error("Failed to set up", zap.Error(err))
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	tickets, err := store.AllTickets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tickets: %w", err)
	}
	mailings, err := store.Mailings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mailings: %w", err)
	}

	now := time.Now()
	dump := struct {
		ExportedAt time.Time        `json:"exported_at"`
		Tickets    []models.Ticket  `json:"tickets"`
		Mailings   []models.Mailing `json:"mailings"`
	}{now, tickets, mailings}

	payload, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(botCfg.Token)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	admins, err := store.ActiveAdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load admin roster: %w", err)
	}

	fileName := fmt.Sprintf("%s_export_%s.json", botCfg.Name, now.Format("02_01_2006__15_04_05"))
	sent := 0
	for _, adminID := range admins {
		doc := tgbotapi.NewDocument(adminID, tgbotapi.FileBytes{Name: fileName, Bytes: payload})
		doc.Caption = "Data export from: " + now.Format(time.RFC1123)
		if _, err := api.Send(doc); err != nil {
			logger.Error("Failed to send export", zap.Error(err), zap.Int64("admin_id", adminID))
			continue
		}
		sent++
	}

	logger.Info("Export finished",
		zap.Int("tickets", len(tickets)),
		zap.Int("mailings", len(mailings)),
		zap.Int("admins_notified", sent))
	return nil
}
