// Package bot is the Telegram surface: menu-driven manual entry for
// glucose, weight, blood pressure and medication, plus meal photo
// extraction.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/healthvoice/healthlog/internal/bot/state"
	"github.com/healthvoice/healthlog/internal/domain"
	apperrors "github.com/healthvoice/healthlog/internal/errors"
	"github.com/healthvoice/healthlog/internal/logger"
	"github.com/healthvoice/healthlog/internal/services"
)

type Bot struct {
	api       *tgbotapi.BotAPI
	readings  *services.ReadingService
	catalog   *services.CatalogService
	extractor domain.Extractor
	states    state.Store
}

func NewBot(token string, readings *services.ReadingService, catalog *services.CatalogService,
	extractor domain.Extractor, states state.Store) (*Bot, error) {

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot authorized", "account", api.Self.UserName)
	return &Bot{
		api:       api,
		readings:  readings,
		catalog:   catalog,
		extractor: extractor,
		states:    states,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	logger.Info("Bot is now listening for updates")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot is shutting down")
			return ctx.Err()
		case update := <-updates:
			if err := b.handleUpdate(ctx, update); err != nil {
				logger.Error("Error handling update", "error", err.Error())
			}
		}
	}
}

func (b *Bot) sendMainMenu(chatID int64) error {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🩸 Glucose", "log_glucose"),
			tgbotapi.NewInlineKeyboardButtonData("⚖️ Weight", "log_weight"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💓 Blood pressure", "log_blood_pressure"),
			tgbotapi.NewInlineKeyboardButtonData("💊 Medication", "log_medication"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Recent readings", "list_readings"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, "What would you like to log? You can also send a photo of your meal.")
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil && update.CallbackQuery == nil {
		return nil
	}

	if update.CallbackQuery != nil {
		// Answer callback query to remove loading state.
		callback := tgbotapi.NewCallback(update.CallbackQuery.ID, "")
		if _, err := b.api.Request(callback); err != nil {
			logger.Warn("Failed to answer callback query", "error", err.Error())
		}
		return b.handleCallbackQuery(ctx, update.CallbackQuery)
	}

	if update.Message.IsCommand() {
		return b.handleCommand(ctx, update.Message)
	}

	if update.Message.Photo != nil {
		return b.handlePhoto(ctx, update.Message)
	}

	if update.Message.Text != "" {
		return b.handleText(ctx, update.Message)
	}

	return nil
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	prompts := map[string]struct {
		state string
		text  string
	}{
		"log_glucose": {state.WaitingForGlucose,
			"Tell me your glucose reading, for example: \"5.8 mmol/L fasting\" or \"104 before lunch\"."},
		"log_weight": {state.WaitingForWeight,
			"Tell me your weight, for example: \"71.2 kg\" or \"157 pounds\"."},
		"log_blood_pressure": {state.WaitingForBloodPressure,
			"Tell me your blood pressure, for example: \"120 over 80, pulse 64\"."},
		"log_medication": {state.WaitingForMedication,
			"Tell me what you took, for example: \"two metformin\"."},
	}

	if p, ok := prompts[query.Data]; ok {
		b.states.SetUserState(userID, p.state)
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("◀️ Main menu", "main_menu"),
			),
		)
		msg := tgbotapi.NewMessage(chatID, p.text)
		msg.ReplyMarkup = keyboard
		_, err := b.api.Send(msg)
		return err
	}

	switch query.Data {
	case "list_readings":
		return b.sendRecentReadings(ctx, chatID)
	case "main_menu":
		b.states.ClearUserState(userID)
		return b.sendMainMenu(chatID)
	}

	return nil
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		b.states.ClearUserState(message.From.ID)
		return b.sendMainMenu(message.Chat.ID)
	case "list":
		return b.sendRecentReadings(ctx, message.Chat.ID)
	case "help":
		msg := tgbotapi.NewMessage(message.Chat.ID, `Available commands:
/start - Show the main menu
/list - Show recent readings
/help - Show this message

Pick a reading type from the menu and describe the value in plain words. Send a photo of your meal at any time to log its nutrition.`)
		_, err := b.api.Send(msg)
		return err
	default:
		msg := tgbotapi.NewMessage(message.Chat.ID, "Unknown command. Use /help to see what I can do.")
		_, err := b.api.Send(msg)
		return err
	}
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	userState := b.states.GetUserState(userID)

	switch userState {
	case state.WaitingForGlucose:
		parsed, err := b.extractor.ExtractGlucoseFromText(ctx, message.Text)
		if err != nil || parsed == nil {
			return b.sendRetry(chatID, "I couldn't read a glucose value from that. Try something like \"5.8 mmol/L fasting\".")
		}
		reading, err := b.readings.LogGlucose(ctx, *parsed, domain.SourceManual)
		if err != nil {
			return b.sendRetry(chatID, "Something went wrong saving the reading. Please try again.")
		}
		b.states.ClearUserState(userID)
		return b.sendConfirmation(chatID, fmt.Sprintf("✅ Glucose %.1f %s (%s) logged.",
			reading.Value, reading.Unit, strings.ReplaceAll(string(reading.Context), "_", " ")))

	case state.WaitingForWeight:
		parsed, err := b.extractor.ExtractWeightFromText(ctx, message.Text)
		if err != nil || parsed == nil {
			return b.sendRetry(chatID, "I couldn't read a weight from that. Try something like \"71.2 kg\".")
		}
		reading, err := b.readings.LogWeight(ctx, *parsed, domain.SourceManual)
		if err != nil {
			return b.sendRetry(chatID, "Something went wrong saving the reading. Please try again.")
		}
		b.states.ClearUserState(userID)
		return b.sendConfirmation(chatID, fmt.Sprintf("✅ Weight %.1f %s logged.", reading.Value, reading.Unit))

	case state.WaitingForBloodPressure:
		parsed, err := b.extractor.ExtractBloodPressureFromText(ctx, message.Text)
		if err != nil || parsed == nil {
			return b.sendRetry(chatID, "I couldn't read a blood pressure from that. Try something like \"120 over 80, pulse 64\".")
		}
		reading, err := b.readings.LogBloodPressure(ctx, *parsed, domain.SourceManual)
		if err != nil {
			return b.sendRetry(chatID, "Something went wrong saving the reading. Please try again.")
		}
		b.states.ClearUserState(userID)
		return b.sendConfirmation(chatID, fmt.Sprintf("✅ Blood pressure %d/%d, pulse %d logged.",
			reading.Systolic, reading.Diastolic, reading.Pulse))

	case state.WaitingForMedication:
		snapshot, err := b.catalog.List(ctx)
		if err != nil {
			return b.sendRetry(chatID, "Something went wrong reading your medication list. Please try again.")
		}
		match, err := b.extractor.MatchMedication(ctx, message.Text, snapshot)
		if err != nil || match == nil {
			return b.sendRetry(chatID, "I couldn't match that to a medication from your list.")
		}
		entry := domain.MedicationEntry{
			Name:     match.Entry.Name,
			Dosage:   match.Entry.Dosage,
			Unit:     match.Entry.Unit,
			Quantity: match.Quantity,
		}
		reading, err := b.readings.LogMedication(ctx, entry, domain.SourceManual)
		if err != nil {
			return b.sendRetry(chatID, "Something went wrong saving the entry. Please try again.")
		}
		b.states.ClearUserState(userID)
		return b.sendConfirmation(chatID, fmt.Sprintf("✅ %s %.0f %s x%.0f logged.",
			reading.Name, reading.Dosage, reading.Unit, reading.Quantity))
	}

	return b.sendMainMenu(chatID)
}

// handlePhoto treats any incoming photo as a meal to analyze.
func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	// The largest size is last.
	photo := message.Photo[len(message.Photo)-1]
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: photo.FileID})
	if err != nil {
		return fmt.Errorf("failed to get file: %w", err)
	}

	processing := tgbotapi.NewMessage(chatID, "Analyzing the photo...")
	sent, err := b.api.Send(processing)
	if err != nil {
		return fmt.Errorf("failed to send processing message: %w", err)
	}

	image, err := downloadImage(file.Link(b.api.Token))
	if err != nil {
		logger.Error("Failed to download photo", "error", err.Error())
		return b.sendRetry(chatID, "I couldn't download the photo. Please try again.")
	}

	meal, err := b.extractor.ExtractMealFromImage(ctx, image, "image/jpeg")

	deleteMsg := tgbotapi.NewDeleteMessage(chatID, sent.MessageID)
	if _, delErr := b.api.Request(deleteMsg); delErr != nil {
		logger.Warn("Failed to delete processing message", "error", delErr.Error())
	}

	if errors.Is(err, apperrors.ErrWrongSubject) {
		return b.sendRetry(chatID, "That photo doesn't look like food. Please send a photo of a meal or a drink.")
	}
	if err != nil || meal == nil {
		return b.sendRetry(chatID, "I couldn't read the meal from that photo. Please try again.")
	}

	logged, err := b.readings.LogMeal(ctx, *meal, domain.SourcePhoto)
	if err != nil {
		return b.sendRetry(chatID, "Something went wrong saving the meal. Please try again.")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ %s logged.\n", logged.Description)
	for _, item := range logged.Items {
		fmt.Fprintf(&sb, "• %s: %.0f kcal, %.0fg carbs\n", item.Name, item.Nutrition.Calories, item.Nutrition.Carbs)
	}
	fmt.Fprintf(&sb, "Total: %.0f kcal, %.0fg carbs, %.0fg protein, %.0fg fat",
		logged.Totals.Calories, logged.Totals.Carbs, logged.Totals.Protein, logged.Totals.Fat)

	return b.sendConfirmation(chatID, sb.String())
}

func (b *Bot) sendRecentReadings(ctx context.Context, chatID int64) error {
	readings, err := b.readings.List(ctx, 10)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		return b.sendConfirmation(chatID, "Nothing logged yet.")
	}

	var sb strings.Builder
	sb.WriteString("Recent readings:\n")
	for _, r := range readings {
		sb.WriteString("• " + formatReading(r) + "\n")
	}
	return b.sendConfirmation(chatID, sb.String())
}

func formatReading(r domain.Reading) string {
	when := r.Meta().RecordedAt.Format("Jan 2 15:04")
	switch v := r.(type) {
	case domain.GlucoseReading:
		return fmt.Sprintf("%s — glucose %.1f %s", when, v.Value, v.Unit)
	case domain.WeightReading:
		return fmt.Sprintf("%s — weight %.1f %s", when, v.Value, v.Unit)
	case domain.BloodPressureReading:
		return fmt.Sprintf("%s — blood pressure %d/%d, pulse %d", when, v.Systolic, v.Diastolic, v.Pulse)
	case domain.MedicationEntry:
		return fmt.Sprintf("%s — %s %.0f %s x%.0f", when, v.Name, v.Dosage, v.Unit, v.Quantity)
	case domain.MealEntry:
		return fmt.Sprintf("%s — meal: %s (%.0f kcal)", when, v.Description, v.Totals.Calories)
	}
	return fmt.Sprintf("%s — %s", when, r.Meta().Kind)
}

func (b *Bot) sendConfirmation(chatID int64, text string) error {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main menu", "main_menu"),
		),
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendRetry(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

func downloadImage(url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status downloading image: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
