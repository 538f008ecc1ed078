package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lifestyle-planner/internal/model"
	"lifestyle-planner/internal/service"
)

func (b *Bot) startNewTask(chatID int64) error {
	b.setConversation(chatID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(chatID, "🆕 Ny oppgave.\n<b>Steg 1:</b> Hva står på agendaen?", cancelKeyboard())
}

func (b *Bot) continueNewTask(ctx context.Context, chatID int64, state *conversationState, text string) error {
	text = strings.TrimSpace(text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "Oppgaven trenger en tittel.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(chatID, "⏰ <b>Steg 2:</b> Når? F.eks. <code>2026-10-20 18:00</code>, <code>20.10 18:00</code> eller <code>i morgen 09:00</code>.", cancelKeyboard())
	case stageDueDate:
		due, err := parseDueInput(text, b.taskSvc.Now(), b.taskSvc.Location())
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Den datoen forstår jeg ikke. Prøv <code>2026-10-20 18:00</code>.", cancelKeyboard())
		}
		state.input.DueDate = due
		state.stage = stageRecurrence
		return b.sendWithReplyMarkup(chatID, "🔁 <b>Steg 3:</b> Gjenta oppgave?", recurrenceKeyboard())
	case stageRecurrence:
		recurrence, ok := parseRecurrenceInput(text)
		if !ok {
			return b.sendWithReplyMarkup(chatID, "Velg «Hver uke», «Hver 2. uke» eller «Nei».", recurrenceKeyboard())
		}
		state.input.Recurrence = recurrence
		b.clearConversation(chatID)
		return b.finishTaskCreation(ctx, chatID, state.input)
	}
	return nil
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, input service.TaskInput) error {
	task, err := b.taskSvc.AddTask(ctx, input)
	if errors.Is(err, service.ErrInvalidTask) {
		return b.sendText(chatID, "Oppgaven trenger både tittel og tidspunkt. Prøv igjen med /newtask.")
	}
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Klarte ikke å lagre oppgaven: %s", escape(err.Error())))
	}

	var summary strings.Builder
	summary.WriteString("✅ <b>Lagt til!</b>\n")
	summary.WriteString(fmt.Sprintf("• %s\n", escape(task.Title)))
	summary.WriteString(fmt.Sprintf("• ⏰ %s\n", task.DueDate.In(b.taskSvc.Location()).Format("02.01.2006 15:04")))
	if task.IsRecurring {
		summary.WriteString(fmt.Sprintf("• ♻️ %s\n", service.RecurrenceLabel(task.RecurrenceInterval)))
	}
	if err := b.sendText(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendTaskList(chatID)
}

func (b *Bot) startEditTask(chatID int64, args string) error {
	task, ok := b.taskByNumber(chatID, args)
	if !ok {
		return b.sendText(chatID, "Skriv nummeret fra /tasks, f.eks. /edit 2.")
	}
	b.setConversation(chatID, &conversationState{stage: stageEditTitle, taskID: task.ID})
	text := fmt.Sprintf("✏️ Rediger «%s».\nNy tittel? (eller «Hopp over»)", escape(task.Title))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) continueEditTask(ctx context.Context, chatID int64, state *conversationState, text string) error {
	text = strings.TrimSpace(text)
	switch state.stage {
	case stageEditTitle:
		if !isSkipInput(text) {
			if text == "" {
				return b.sendWithReplyMarkup(chatID, "Tittelen kan ikke være tom.", skipKeyboard())
			}
			state.patch.Title = &text
		}
		state.stage = stageEditDueDate
		return b.sendWithReplyMarkup(chatID, "⏰ Nytt tidspunkt? (eller «Hopp over»)", skipKeyboard())
	case stageEditDueDate:
		if !isSkipInput(text) {
			due, err := parseDueInput(text, b.taskSvc.Now(), b.taskSvc.Location())
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Den datoen forstår jeg ikke. Prøv <code>2026-10-20 18:00</code>.", skipKeyboard())
			}
			state.patch.DueDate = &due
		}
		state.stage = stageEditRecurrence
		return b.sendWithReplyMarkup(chatID, "🔁 Gjenta oppgave? (eller «Hopp over»)", editRecurrenceKeyboard())
	case stageEditRecurrence:
		if !isSkipInput(text) {
			recurrence, ok := parseRecurrenceInput(text)
			if !ok {
				return b.sendWithReplyMarkup(chatID, "Velg «Hver uke», «Hver 2. uke», «Nei» eller «Hopp over».", editRecurrenceKeyboard())
			}
			recurring := recurrence != ""
			state.patch.IsRecurring = &recurring
			state.patch.RecurrenceInterval = &recurrence
		}
		b.clearConversation(chatID)
		if state.patch.Title == nil && state.patch.DueDate == nil && state.patch.IsRecurring == nil {
			return b.sendText(chatID, "Ingenting endret.")
		}
		task, err := b.taskSvc.UpdateTask(ctx, state.taskID, state.patch)
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			return b.sendText(chatID, "Fant ikke oppgaven. Den kan ha blitt slettet.")
		case err != nil:
			return b.sendText(chatID, fmt.Sprintf("Klarte ikke å oppdatere: %s", escape(err.Error())))
		}
		if err := b.sendText(chatID, fmt.Sprintf("💖 Oppdatert: %s", escape(task.Title))); err != nil {
			return err
		}
		return b.sendTaskList(chatID)
	}
	return nil
}

func (b *Bot) handleToggleByNumber(ctx context.Context, chatID int64, args string) error {
	task, ok := b.taskByNumber(chatID, args)
	if !ok {
		return b.sendText(chatID, "Skriv nummeret fra /tasks, f.eks. /done 3.")
	}
	return b.toggleAndRefresh(ctx, chatID, task.ID)
}

func (b *Bot) handleDeleteByNumber(chatID int64, args string) error {
	task, ok := b.taskByNumber(chatID, args)
	if !ok {
		return b.sendText(chatID, "Skriv nummeret fra /tasks, f.eks. /delete 3.")
	}
	return b.askDeleteConfirmation(chatID, task)
}

func (b *Bot) toggleAndRefresh(ctx context.Context, chatID int64, taskID string) error {
	res, err := b.taskSvc.ToggleCompletion(ctx, taskID)
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return b.sendText(chatID, "Fant ikke oppgaven. Den kan ha blitt slettet.")
	case err != nil:
		return b.sendText(chatID, fmt.Sprintf("Feil: %s", escape(err.Error())))
	}

	var info string
	if res.Task.Completed {
		info = fmt.Sprintf("✅ «%s» er fullført!", escape(res.Task.Title))
	} else {
		info = fmt.Sprintf("↩️ «%s» er åpen igjen.", escape(res.Task.Title))
	}
	if res.Rollover != nil {
		info += fmt.Sprintf("\n♻️ Neste gang: %s", res.Rollover.DueDate.In(b.taskSvc.Location()).Format("02.01.2006 15:04"))
	}
	if err := b.sendText(chatID, info); err != nil {
		return err
	}
	return b.sendTaskList(chatID)
}

func (b *Bot) askDeleteConfirmation(chatID int64, task model.Task) error {
	text := fmt.Sprintf("Slette «%s»?", escape(task.Title))
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Ja, slett", cbConfirmDeletePrefix+task.ID),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Avbryt", cbCancel),
	))
	return b.sendWithReplyMarkup(chatID, text, markup)
}

func (b *Bot) deleteAndRefresh(ctx context.Context, chatID int64, taskID string) error {
	task, err := b.taskSvc.DeleteTask(ctx, taskID)
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		return b.sendText(chatID, "Fant ikke oppgaven. Den kan allerede være slettet.")
	case err != nil:
		return b.sendText(chatID, fmt.Sprintf("Feil: %s", escape(err.Error())))
	}
	if err := b.sendText(chatID, fmt.Sprintf("🗑 «%s» er slettet.", escape(task.Title))); err != nil {
		return err
	}
	return b.sendTaskList(chatID)
}

func (b *Bot) sendTaskList(chatID int64) error {
	board, _ := b.reminderSvc.Refresh()
	return b.sendBoard(chatID, board)
}

func (b *Bot) sendBoard(chatID int64, board service.Board) error {
	text, ordered := service.Summary(board)

	taskIDs := make([]string, len(ordered))
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, task := range ordered {
		taskIDs[i] = task.ID
		if len(rows) >= maxKeyboardRows {
			continue
		}
		label := fmt.Sprintf("✅ #%d · %s", i+1, shortTitle(task.Title, 20))
		if task.Completed {
			label = fmt.Sprintf("↩️ #%d · %s", i+1, shortTitle(task.Title, 20))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbTogglePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}
	if len(ordered) > maxKeyboardRows {
		text += fmt.Sprintf("\n\nKnapper vises for de første %d. Bruk /done &lt;nr&gt; eller /delete &lt;nr&gt; for resten.", maxKeyboardRows)
	}

	b.mu.Lock()
	b.listings[chatID] = taskIDs
	b.mu.Unlock()

	var markup interface{} = mainMenuKeyboard()
	if len(rows) > 0 {
		markup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	return b.sendLong(chatID, text, markup)
}

// taskByNumber resolves "#n" from the last list sent to the chat.
func (b *Bot) taskByNumber(chatID int64, args string) (model.Task, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(args), "#"))
	if err != nil || n < 1 {
		return model.Task{}, false
	}
	b.mu.Lock()
	listing := b.listings[chatID]
	b.mu.Unlock()
	if n > len(listing) {
		return model.Task{}, false
	}
	return b.taskSvc.Get(listing[n-1])
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	if !b.allowed(chatID) {
		b.ack(cb, "")
		return nil
	}
	b.rememberChat(chatID)

	data := cb.Data
	b.log.Debug("callback", zap.Int64("chat", chatID), zap.String("data", data))

	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		b.ack(cb, "")
		return b.toggleAndRefresh(ctx, chatID, strings.TrimPrefix(data, cbTogglePrefix))
	case strings.HasPrefix(data, cbDeletePrefix):
		b.ack(cb, "")
		task, ok := b.taskSvc.Get(strings.TrimPrefix(data, cbDeletePrefix))
		if !ok {
			return b.sendText(chatID, "Fant ikke oppgaven.")
		}
		return b.askDeleteConfirmation(chatID, task)
	case strings.HasPrefix(data, cbConfirmDeletePrefix):
		b.ack(cb, "")
		return b.deleteAndRefresh(ctx, chatID, strings.TrimPrefix(data, cbConfirmDeletePrefix))
	case strings.HasPrefix(data, cbSaveRecipePrefix):
		return b.saveCurrentRecipe(ctx, cb, chatID, strings.TrimPrefix(data, cbSaveRecipePrefix))
	case strings.HasPrefix(data, cbShareRecipePrefix):
		b.ack(cb, "")
		return b.shareFavorite(chatID, strings.TrimPrefix(data, cbShareRecipePrefix))
	case strings.HasPrefix(data, cbDeleteRecipePrefix):
		b.ack(cb, "")
		return b.deleteFavorite(ctx, chatID, strings.TrimPrefix(data, cbDeleteRecipePrefix))
	default:
		b.ack(cb, "")
		return nil
	}
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
