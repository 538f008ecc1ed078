package bot

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lifestyle-planner/internal/model"
	"lifestyle-planner/internal/service"
)

const generationFailedText = "Oida! Noe gikk galt i kjøkkenet. Prøv igjen? ✨"

// startRecipeGeneration runs generation in the background so task commands keep
// flowing while the model works. One generation per chat at a time.
func (b *Bot) startRecipeGeneration(ctx context.Context, chatID int64, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return b.sendText(chatID, "Fortell meg hva du har lyst på, f.eks. /recipe pasta-party.")
	}

	b.mu.Lock()
	if b.busy[chatID] {
		b.mu.Unlock()
		return b.sendText(chatID, "⏳ Jeg lager allerede en oppskrift til deg, et øyeblikk!")
	}
	b.busy[chatID] = true
	b.mu.Unlock()

	if err := b.sendText(chatID, "✨ Vis meg magi! Kokken jobber..."); err != nil {
		b.log.Warn("send progress", zap.Error(err))
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			b.mu.Lock()
			delete(b.busy, chatID)
			b.mu.Unlock()
		}()
		if err := b.generateRecipe(context.WithoutCancel(ctx), chatID, prompt); err != nil {
			b.log.Error("recipe flow", zap.Int64("chat", chatID), zap.Error(err))
		}
	}()
	return nil
}

func (b *Bot) generateRecipe(ctx context.Context, chatID int64, prompt string) error {
	if b.aiTimeout > 0 {
		var cancel context.CancelFunc
		// data and image calls share one deadline
		ctx, cancel = context.WithTimeout(ctx, 2*b.aiTimeout)
		defer cancel()
	}

	recipe, err := b.recipeSvc.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPrompt) {
			return b.sendText(chatID, "Fortell meg hva du har lyst på først.")
		}
		return b.sendText(chatID, generationFailedText)
	}

	b.mu.Lock()
	b.current[chatID] = recipe
	b.mu.Unlock()

	return b.sendRecipeCard(chatID, recipe)
}

func (b *Bot) sendRecipeCard(chatID int64, recipe model.Recipe) error {
	saveLabel := "💖 Lagre i favoritter"
	if b.recipeSvc.IsSaved(recipe.Title) {
		saveLabel = "💖 Allerede lagret"
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(saveLabel, cbSaveRecipePrefix+recipe.ID),
	))

	if photo, ok := decodeDataURL(recipe.ImageURL); ok {
		cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "recipe.png", Bytes: photo})
		cfg.Caption = fmt.Sprintf("🍰 %s", recipe.Title)
		if _, err := b.api.Send(cfg); err != nil {
			b.log.Warn("send recipe photo", zap.Error(err))
		}
	}

	return b.sendWithReplyMarkup(chatID, formatRecipe(recipe), markup)
}

func (b *Bot) saveCurrentRecipe(ctx context.Context, cb *tgbotapi.CallbackQuery, chatID int64, recipeID string) error {
	b.mu.Lock()
	recipe, ok := b.current[chatID]
	b.mu.Unlock()
	if !ok || recipe.ID != recipeID {
		b.ack(cb, "Oppskriften er ikke lenger tilgjengelig")
		return nil
	}

	saved, err := b.recipeSvc.Save(ctx, recipe)
	if err != nil {
		b.ack(cb, "")
		return b.sendText(chatID, fmt.Sprintf("Klarte ikke å lagre: %s", escape(err.Error())))
	}
	if !saved {
		b.ack(cb, "Allerede lagret")
		return nil
	}
	b.ack(cb, "Lagret! ✨")
	return nil
}

func (b *Bot) sendFavorites(chatID int64) error {
	recipes := b.recipeSvc.List()
	if len(recipes) == 0 {
		return b.sendText(chatID, "💖 Ingen favoritter ennå. Lag en oppskrift med /recipe og trykk på hjertet!")
	}

	ids := make([]string, len(recipes))
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("💖 <b>Favoritter</b> (%d)\n\n", len(recipes)))
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, recipe := range recipes {
		ids[i] = recipe.ID
		builder.WriteString(fmt.Sprintf("<b>#%d</b> %s", i+1, escape(recipe.Title)))
		if recipe.PrepTime != "" {
			builder.WriteString(fmt.Sprintf(" · ⏱ %s", escape(recipe.PrepTime)))
		}
		builder.WriteByte('\n')
		if recipe.Notes != "" {
			builder.WriteString(fmt.Sprintf("   📝 %s\n", escape(recipe.Notes)))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("📤 #%d · %s", i+1, shortTitle(recipe.Title, 20)), cbShareRecipePrefix+recipe.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeleteRecipePrefix+recipe.ID),
		))
	}
	builder.WriteString("\nLegg til et notat med /note &lt;nr&gt; &lt;tekst&gt;, eller endre med /recipeedit &lt;nr&gt;.")

	b.mu.Lock()
	b.favorites[chatID] = ids
	b.mu.Unlock()

	return b.sendLong(chatID, builder.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) shareFavorite(chatID int64, recipeID string) error {
	recipe, ok := b.recipeSvc.Get(recipeID)
	if !ok {
		return b.sendText(chatID, "Fant ikke oppskriften.")
	}
	msg := tgbotapi.NewMessage(chatID, service.ShareText(recipe))
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) deleteFavorite(ctx context.Context, chatID int64, recipeID string) error {
	recipe, err := b.recipeSvc.Delete(ctx, recipeID)
	switch {
	case errors.Is(err, service.ErrRecipeNotFound):
		return b.sendText(chatID, "Fant ikke oppskriften. Den kan allerede være slettet.")
	case err != nil:
		return b.sendText(chatID, fmt.Sprintf("Feil: %s", escape(err.Error())))
	}
	if err := b.sendText(chatID, fmt.Sprintf("🗑 «%s» er fjernet fra favoritter.", escape(recipe.Title))); err != nil {
		return err
	}
	return b.sendFavorites(chatID)
}

func (b *Bot) handleNote(ctx context.Context, chatID int64, args string) error {
	num, note, _ := strings.Cut(strings.TrimSpace(args), " ")
	recipeID, ok := b.favoriteByNumber(chatID, num)
	if !ok {
		return b.sendText(chatID, "Skriv nummeret fra /favorites og notatet, f.eks. /note 1 Mer hvitløk!")
	}

	note = strings.TrimSpace(note)
	recipe, err := b.recipeSvc.Update(ctx, recipeID, service.RecipePatch{Notes: &note})
	switch {
	case errors.Is(err, service.ErrRecipeNotFound):
		return b.sendText(chatID, "Fant ikke oppskriften.")
	case err != nil:
		return b.sendText(chatID, fmt.Sprintf("Feil: %s", escape(err.Error())))
	}
	if note == "" {
		return b.sendText(chatID, fmt.Sprintf("📝 Notatet på «%s» er fjernet.", escape(recipe.Title)))
	}
	return b.sendText(chatID, fmt.Sprintf("💖 Oppdatert! Notat på «%s» lagret.", escape(recipe.Title)))
}

func (b *Bot) startEditRecipe(chatID int64, args string) error {
	recipeID, ok := b.favoriteByNumber(chatID, args)
	if !ok {
		return b.sendText(chatID, "Skriv nummeret fra /favorites, f.eks. /recipeedit 1.")
	}
	recipe, ok := b.recipeSvc.Get(recipeID)
	if !ok {
		return b.sendText(chatID, "Fant ikke oppskriften.")
	}
	b.setConversation(chatID, &conversationState{stage: stageRecipeEditTitle, recipeID: recipeID})
	text := fmt.Sprintf("✏️ Rediger «%s».\nNy tittel? (eller «Hopp over»)", escape(recipe.Title))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) continueEditRecipe(ctx context.Context, chatID int64, state *conversationState, text string) error {
	text = strings.TrimSpace(text)
	switch state.stage {
	case stageRecipeEditTitle:
		if !isSkipInput(text) {
			if text == "" {
				return b.sendWithReplyMarkup(chatID, "Tittelen kan ikke være tom.", skipKeyboard())
			}
			state.recipePatch.Title = &text
		}
		state.stage = stageRecipeEditDescription
		return b.sendWithReplyMarkup(chatID, "📝 Ny beskrivelse? (eller «Hopp over»)", skipKeyboard())
	case stageRecipeEditDescription:
		if !isSkipInput(text) {
			state.recipePatch.Description = &text
		}
		b.clearConversation(chatID)
		if state.recipePatch.Title == nil && state.recipePatch.Description == nil {
			return b.sendText(chatID, "Ingenting endret.")
		}
		recipe, err := b.recipeSvc.Update(ctx, state.recipeID, state.recipePatch)
		switch {
		case errors.Is(err, service.ErrRecipeNotFound):
			return b.sendText(chatID, "Fant ikke oppskriften. Den kan ha blitt slettet.")
		case errors.Is(err, service.ErrInvalidRecipe):
			return b.sendText(chatID, "Du har allerede en favoritt med den tittelen. Prøv igjen med /recipeedit.")
		case err != nil:
			return b.sendText(chatID, fmt.Sprintf("Feil: %s", escape(err.Error())))
		}
		if err := b.sendText(chatID, fmt.Sprintf("💖 Oppdatert! «%s»", escape(recipe.Title))); err != nil {
			return err
		}
		return b.sendFavorites(chatID)
	}
	return nil
}

// favoriteByNumber resolves "#n" from the last favorites list sent to the chat.
func (b *Bot) favoriteByNumber(chatID int64, arg string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(arg), "#"))
	if err != nil || n < 1 {
		return "", false
	}
	b.mu.Lock()
	listing := b.favorites[chatID]
	b.mu.Unlock()
	if n > len(listing) {
		return "", false
	}
	return listing[n-1], true
}

func formatRecipe(recipe model.Recipe) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🍰 <b>%s</b>\n", escape(recipe.Title)))
	if recipe.Description != "" {
		b.WriteString(fmt.Sprintf("<i>%s</i>\n", escape(recipe.Description)))
	}
	if recipe.PrepTime != "" {
		b.WriteString(fmt.Sprintf("⏱ %s\n", escape(recipe.PrepTime)))
	}
	b.WriteString("\n<b>Ingredienser</b>\n")
	for _, ing := range recipe.Ingredients {
		b.WriteString(fmt.Sprintf("• %s %s\n", escape(ing.Amount), escape(ing.Item)))
	}
	b.WriteString("\n<b>Slik gjør du</b>\n")
	for i, step := range recipe.Instructions {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, escape(step)))
	}
	if recipe.ImageURL == "" {
		b.WriteString("\n📷 Bildet uteble denne gangen.")
	}
	return strings.TrimSpace(b.String())
}

// decodeDataURL extracts the bytes of a base64 data URL.
func decodeDataURL(url string) ([]byte, bool) {
	if !strings.HasPrefix(url, "data:") {
		return nil, false
	}
	_, payload, ok := strings.Cut(url, ";base64,")
	if !ok {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}
