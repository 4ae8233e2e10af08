package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/support-bot/internal/classifier"
	"github.com/xaenox/support-bot/internal/models"
	"github.com/xaenox/support-bot/internal/storage"
	"github.com/xaenox/support-bot/internal/support"
	"go.uber.org/zap"
)

type Config struct {
	Token             string
	StartMessage      string
	AdminStartMessage string
}

type Bot struct {
	api               *tgbotapi.BotAPI
	service           *support.Service
	sessions          *support.Sessions
	notifier          *support.Notifier
	mailer            *support.Mailer
	suggester         classifier.Suggester
	logger            *zap.Logger
	startMessage      string
	adminStartMessage string
	entries           map[string]models.PreparedEntry
}

// New wires the transport around the core: the bot implements the Messenger
// primitive the notifier and mailer fan out through. suggester may be nil,
// in which case free-form questions keep the default category.
func New(cfg Config, service *support.Service, store storage.Storage, suggester classifier.Suggester, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	m := &messenger{api: api}
	return &Bot{
		api:               api,
		service:           service,
		sessions:          service.Sessions(),
		notifier:          support.NewNotifier(m, store, logger),
		mailer:            support.NewMailer(store, m, logger),
		suggester:         suggester,
		logger:            logger,
		startMessage:      cfg.StartMessage,
		adminStartMessage: cfg.AdminStartMessage,
	}, nil
}

func (b *Bot) Start() error {
	// Prepared entries never change at runtime, load them once.
	entries, err := b.service.PreparedEntries(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load prepared entries: %w", err)
	}
	b.entries = make(map[string]models.PreparedEntry, len(entries))
	for _, e := range entries {
		b.entries[e.MatchKey] = e
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			go b.handleCallback(update.CallbackQuery)
		case update.Message != nil:
			go b.handleMessage(update.Message)
		}
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	ctx := context.Background()

	isAdmin, err := b.service.IsAdmin(ctx, message.From.ID)
	if err != nil {
		b.logger.Error("Failed to check admin roster",
			zap.Error(err),
			zap.Int64("user_id", message.From.ID))
		b.sendMessage(message.Chat.ID, msgGenericError)
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message, isAdmin)
		return
	}

	if isAdmin {
		b.handleAdminMessage(ctx, message)
	} else {
		b.handleUserMessage(ctx, message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message, isAdmin bool) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message, isAdmin)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /start.")
	}
}

// handleStart shows admins the action menu and users the category menu.
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message, isAdmin bool) {
	if isAdmin {
		msg := tgbotapi.NewMessage(message.Chat.ID, b.adminStartMessage)
		msg.ReplyMarkup = adminMenuKeyboard()
		b.send(msg)
		return
	}

	categories, err := b.service.Categories(ctx)
	if err != nil {
		b.logger.Error("Failed to load categories", zap.Error(err))
		b.sendMessage(message.Chat.ID, msgGenericError)
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, b.startMessage)
	msg.ReplyMarkup = userMenuKeyboard(categories)
	b.send(msg)
}

// --- user side ---

func (b *Bot) handleUserMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	switch b.sessions.Stage(userID) {
	case support.StageAwaitingEmail:
		if err := b.service.SubmitEmail(userID, message.Text); err != nil {
			// Invalid email keeps the user in the same stage until a valid
			// one arrives.
			b.sendMessage(chatID, fmt.Sprintf(msgEmailInvalid, message.Text))
			return
		}
		b.sendMessage(chatID, msgDescribeProblem)

	case support.StageAwaitingQuestion:
		b.submitQuestion(ctx, message)

	default:
		category, ok, err := b.service.MatchCategory(ctx, userID, message.Text)
		if err != nil {
			b.logger.Error("Failed to match category", zap.Error(err), zap.Int64("user_id", userID))
			b.sendMessage(chatID, msgGenericError)
			return
		}
		if ok {
			b.showCategory(ctx, chatID, userID, category)
			return
		}
		// Any other text starts the question flow.
		b.beginQuestion(ctx, chatID, userID)
	}
}

func (b *Bot) showCategory(ctx context.Context, chatID, userID int64, category string) {
	if category == support.CategoryOther {
		b.beginQuestion(ctx, chatID, userID)
		return
	}

	entries, err := b.service.PreparedEntriesByCategory(ctx, category)
	if err != nil {
		b.logger.Error("Failed to load prepared entries",
			zap.Error(err),
			zap.String("category", category))
		b.sendMessage(chatID, msgGenericError)
		return
	}
	if len(entries) == 0 {
		b.beginQuestion(ctx, chatID, userID)
		return
	}

	text, keyboard := categoryKeyboard(entries)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func (b *Bot) beginQuestion(ctx context.Context, chatID, userID int64) {
	stage, err := b.service.BeginQuestion(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to begin question flow", zap.Error(err), zap.Int64("user_id", userID))
		b.sendMessage(chatID, msgGenericError)
		return
	}

	if stage == support.StageAwaitingEmail {
		b.sendMessage(chatID, msgAskEmail)
	} else {
		b.sendMessage(chatID, msgDescribeProblem)
	}
}

func (b *Bot) submitQuestion(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	question := message.Text
	if question == "" {
		question = message.Caption
	}

	category := b.sessions.Category(userID)
	if category == "" && b.suggester != nil {
		if categories, err := b.service.Categories(ctx); err == nil {
			category = b.suggester.SuggestCategory(ctx, question, categories)
		}
	}

	t, err := b.service.SubmitTicket(ctx, support.Submission{
		UserID:    userID,
		Username:  message.From.UserName,
		FirstName: message.From.FirstName,
		Category:  category,
		Question:  question,
	})
	if errors.Is(err, support.ErrEmptyQuestion) {
		b.sendMessage(chatID, msgEmptyQuestion)
		return
	}
	if err != nil {
		b.logger.Error("Failed to submit ticket", zap.Error(err), zap.Int64("user_id", userID))
		b.sendMessage(chatID, msgGenericError)
		return
	}

	// The placeholder is retracted when the answer arrives.
	if sent, err := b.api.Send(tgbotapi.NewMessage(chatID, msgRequestSent)); err == nil {
		b.sessions.SetPending(userID, support.MessageRef{ChatID: chatID, MessageID: sent.MessageID})
	} else {
		b.logger.Error("Failed to send placeholder", zap.Error(err), zap.Int64("chat_id", chatID))
	}

	if _, err := b.notifier.NotifyNewTicket(ctx, t); err != nil {
		b.logger.Error("Failed to notify admins about new ticket",
			zap.Error(err),
			zap.Int64("ticket_id", t.ID))
	}
}

// --- callbacks ---

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	if cb.Message == nil {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Error("Failed to answer callback", zap.Error(err))
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "like_") || strings.HasPrefix(data, "dislike_"):
		b.handleRating(ctx, cb)
	case data == callbackAskAgain:
		b.clearMarkup(cb.Message.Chat.ID, cb.Message.MessageID)
		b.sessions.SetStage(cb.From.ID, support.StageAwaitingQuestion)
		b.sendMessage(cb.Message.Chat.ID, msgDescribeProblem)
	case data == callbackAskQuestion:
		b.deleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)
		b.beginQuestion(ctx, cb.Message.Chat.ID, cb.From.ID)
	case data == callbackMailingSend || data == callbackMailingEdit || data == callbackMailingCancel:
		b.handleMailingCallback(ctx, cb)
	default:
		b.handlePreparedEntry(cb)
	}
}

// handlePreparedEntry swaps the question menu for the stored FAQ answer.
func (b *Bot) handlePreparedEntry(cb *tgbotapi.CallbackQuery) {
	entry, ok := b.entries[cb.Data]
	if !ok {
		return
	}
	b.deleteMessage(cb.Message.Chat.ID, cb.Message.MessageID)
	b.sendMessage(cb.Message.Chat.ID, entry.Answer)
}

func (b *Bot) handleRating(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Data is "like_7" or "dislike_7".
	parts := strings.SplitN(cb.Data, "_", 2)
	if len(parts) != 2 {
		return
	}
	ticketID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}
	liked := parts[0] == "like"

	if err := b.service.RateAnswer(ctx, cb.From.ID, ticketID, liked); err != nil {
		b.logger.Error("Failed to record rating",
			zap.Error(err),
			zap.Int64("ticket_id", ticketID),
			zap.Bool("liked", liked))
		b.sendMessage(cb.Message.Chat.ID, msgGenericError)
		return
	}

	b.clearMarkup(cb.Message.Chat.ID, cb.Message.MessageID)
	if liked {
		b.sendMessage(cb.Message.Chat.ID, msgRateThanks)
	} else {
		b.sendMessage(cb.Message.Chat.ID, msgRateSorry)
	}
}

// --- admin side ---

func (b *Bot) handleAdminMessage(ctx context.Context, message *tgbotapi.Message) {
	switch b.sessions.Stage(message.From.ID) {
	case support.StageAwaitingMailingBody:
		b.previewMailing(message)
	case support.StageAwaitingMailingImage:
		b.previewMailingImage(message)
	default:
		if message.ReplyToMessage != nil {
			b.handleAdminReply(ctx, message)
			return
		}
		b.handleAdminAction(ctx, message)
	}
}

func (b *Bot) handleAdminReply(ctx context.Context, message *tgbotapi.Message) {
	ticketID, ok := parseTicketID(message.ReplyToMessage.Text)
	if !ok {
		return
	}

	chatID := message.Chat.ID
	t, err := b.service.CloseTicketWithAnswer(ctx, ticketID, message.Text, message.From.ID, message.From.UserName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.sendMessage(chatID, msgTicketRemoved)
	case errors.Is(err, storage.ErrAlreadyClosed):
		ans, err := b.service.GetAnswer(ctx, ticketID)
		if err != nil {
			b.logger.Error("Failed to load existing answer", zap.Error(err), zap.Int64("ticket_id", ticketID))
			b.sendMessage(chatID, msgGenericError)
			return
		}
		b.sendMessage(chatID, formatExistingAnswer(ans))
	case err != nil:
		b.logger.Error("Failed to close ticket", zap.Error(err), zap.Int64("ticket_id", ticketID))
		b.sendMessage(chatID, msgGenericError)
	default:
		b.sendMessage(chatID, msgAnswerDone)
		b.deliverAnswer(t)
		if _, err := b.notifier.NotifyAnswered(ctx, t, message.From.ID); err != nil {
			b.logger.Error("Failed to notify admins about answer",
				zap.Error(err),
				zap.Int64("ticket_id", t.ID))
		}
	}
}

// deliverAnswer retracts the "request sent" placeholder and sends the answer
// with the rate keyboard to the ticket's owner.
func (b *Bot) deliverAnswer(t *models.Ticket) {
	if ref, ok := b.sessions.TakePending(t.UserID); ok {
		b.deleteMessage(ref.ChatID, ref.MessageID)
	}

	msg := tgbotapi.NewMessage(t.UserID, formatAnswerForUser(t))
	msg.ReplyMarkup = rateKeyboard(t.ID)
	b.send(msg)
}

func (b *Bot) handleAdminAction(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch strings.ToLower(message.Text) {
	case strings.ToLower(actionStatistics):
		stat, err := b.service.Statistics(ctx)
		if err != nil {
			b.logger.Error("Failed to compute statistics", zap.Error(err))
			b.sendMessage(chatID, msgGenericError)
			return
		}
		b.sendMessage(chatID, formatStatistics(stat))

	case strings.ToLower(actionUnread):
		open, err := b.service.OpenTickets(ctx)
		if err != nil {
			b.logger.Error("Failed to load open tickets", zap.Error(err))
			b.sendMessage(chatID, msgGenericError)
			return
		}
		if len(open) == 0 {
			b.sendMessage(chatID, msgNoUnread)
			return
		}
		for i := range open {
			b.sendMessage(chatID, support.FormatTicket(&open[i]))
		}

	case strings.ToLower(actionNewMailing):
		b.sessions.SetStage(message.From.ID, support.StageAwaitingMailingBody)
		b.sendMessage(chatID, msgWriteMailing)

	case strings.ToLower(actionImageMailing):
		b.sessions.SetStage(message.From.ID, support.StageAwaitingMailingImage)
		b.sendMessage(chatID, msgSendPhoto)
	}
}

// previewMailing replaces the admin's draft message with a preview carrying
// send/cancel buttons.
func (b *Bot) previewMailing(message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID, message.Text)
	msg.ReplyMarkup = mailingKeyboard()
	b.send(msg)

	b.deleteMessage(message.Chat.ID, message.MessageID)
	b.sessions.SetStage(message.From.ID, support.StageIdle)
}

func (b *Bot) previewMailingImage(message *tgbotapi.Message) {
	if len(message.Photo) == 0 {
		b.sendMessage(message.Chat.ID, msgSendPhoto)
		return
	}
	fileID := message.Photo[len(message.Photo)-1].FileID

	photo := tgbotapi.NewPhoto(message.Chat.ID, tgbotapi.FileID(fileID))
	photo.Caption = message.Caption
	photo.ReplyMarkup = mailingKeyboard()
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("Failed to send mailing preview", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
	}

	b.deleteMessage(message.Chat.ID, message.MessageID)
	b.sessions.SetStage(message.From.ID, support.StageIdle)
}

func (b *Bot) handleMailingCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	switch cb.Data {
	case callbackMailingEdit:
		b.deleteMessage(chatID, cb.Message.MessageID)
		b.sessions.SetStage(cb.From.ID, support.StageAwaitingMailingBody)
		b.sendMessage(chatID, msgWriteMailing)

	case callbackMailingCancel:
		b.deleteMessage(chatID, cb.Message.MessageID)
		b.sendMessage(chatID, msgMailingCanceled)

	case callbackMailingSend:
		text := cb.Message.Text
		fileID := ""
		if len(cb.Message.Photo) > 0 {
			fileID = cb.Message.Photo[len(cb.Message.Photo)-1].FileID
			text = cb.Message.Caption
		}

		recipients, failed, err := b.mailer.Broadcast(ctx, text, fileID, cb.From.ID, cb.From.UserName)
		if err != nil {
			b.logger.Error("Failed to broadcast mailing", zap.Error(err))
			b.sendMessage(chatID, msgGenericError)
			return
		}
		b.clearMarkup(chatID, cb.Message.MessageID)
		b.sendMessage(chatID, fmt.Sprintf("Sent to %d users (%d failed).", recipients, failed))
	}
}

// --- send helpers ---

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", msg.ChatID))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Error("Failed to delete message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) clearMarkup(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Request(edit); err != nil {
		b.logger.Error("Failed to clear reply markup",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// messenger adapts the raw API to the Messenger primitive the core fans out
// through.
type messenger struct {
	api *tgbotapi.BotAPI
}

func (m *messenger) SendText(_ context.Context, chatID int64, text string) error {
	_, err := m.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (m *messenger) SendPhoto(_ context.Context, chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	_, err := m.api.Send(photo)
	return err
}
