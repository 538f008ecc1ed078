package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lifestyle-planner/internal/model"
)

const (
	// Telegram rejects messages over 4096 characters.
	maxMessageRunes = 4000
	maxKeyboardRows = 40
)

const (
	cbTogglePrefix        = "toggle:"
	cbDeletePrefix        = "delete:"
	cbConfirmDeletePrefix = "confirm:"
	cbCancel              = "cancel"
	cbSaveRecipePrefix    = "save:"
	cbShareRecipePrefix   = "share:"
	cbDeleteRecipePrefix  = "unfav:"
)

const (
	btnSkip            = "⏭️ Hopp over"
	btnCancel          = "⏪ Avbryt"
	btnWeekly          = "Hver uke"
	btnBiweekly        = "Hver 2. uke"
	btnOnce            = "Nei"
	menuLabelNewTask   = "➕ Ny oppgave"
	menuLabelTasks     = "📋 Oppgaver"
	menuLabelRecipe    = "🍳 Oppskrift"
	menuLabelFavorites = "💖 Favoritter"
	menuLabelHelp      = "ℹ️ Hjelp"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelRecipe),
			tgbotapi.NewKeyboardButton(menuLabelFavorites),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func recurrenceKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnOnce),
			tgbotapi.NewKeyboardButton(btnWeekly),
			tgbotapi.NewKeyboardButton(btnBiweekly),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func editRecurrenceKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnOnce),
			tgbotapi.NewKeyboardButton(btnWeekly),
			tgbotapi.NewKeyboardButton(btnBiweekly),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "hopp over" || value == "skip"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "avbryt"
}

// parseRecurrenceInput maps a keyboard answer to a recurrence; "" means one-off.
func parseRecurrenceInput(text string) (model.Recurrence, bool) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case strings.ToLower(btnOnce), "nei", "no", "-":
		return "", true
	case strings.ToLower(btnWeekly), "ukentlig", "weekly":
		return model.RecurrenceWeekly, true
	case strings.ToLower(btnBiweekly), "annenhver uke", "biweekly":
		return model.RecurrenceBiweekly, true
	default:
		return "", false
	}
}
