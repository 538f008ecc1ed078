package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"lifestyle-planner/internal/model"
	"lifestyle-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDueDate
	stageRecurrence
	stageEditTitle
	stageEditDueDate
	stageEditRecurrence
	stageRecipePrompt
	stageRecipeEditTitle
	stageRecipeEditDescription
)

type conversationState struct {
	stage  conversationStage
	input  service.TaskInput
	taskID string
	patch  service.TaskPatch

	recipeID    string
	recipePatch service.RecipePatch
}

// sender is the part of *tgbotapi.BotAPI the bot talks through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot aggregates the Telegram API with the planner services.
type Bot struct {
	api         sender
	stop        func()
	taskSvc     *service.TaskService
	recipeSvc   *service.RecipeService
	reminderSvc *service.ReminderService
	log         *zap.Logger
	ownerChatID int64
	aiTimeout   time.Duration

	mu            sync.Mutex
	conversations map[int64]*conversationState
	// listings maps "#n" in the last task list sent to a chat to task ids.
	listings  map[int64][]string
	favorites map[int64][]string
	current   map[int64]model.Recipe
	busy      map[int64]bool
	lastChat  int64
	wg        sync.WaitGroup
}

// Options carries the bot's runtime settings.
type Options struct {
	OwnerChatID int64
	AITimeout   time.Duration
}

func New(token string, taskSvc *service.TaskService, recipeSvc *service.RecipeService, reminderSvc *service.ReminderService, opts Options, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", zap.String("account", api.Self.UserName))

	b := newBot(api, taskSvc, recipeSvc, reminderSvc, opts, log)
	b.stop = api.StopReceivingUpdates
	return b, nil
}

func newBot(api sender, taskSvc *service.TaskService, recipeSvc *service.RecipeService, reminderSvc *service.ReminderService, opts Options, log *zap.Logger) *Bot {
	return &Bot{
		api:           api,
		stop:          func() {},
		taskSvc:       taskSvc,
		recipeSvc:     recipeSvc,
		reminderSvc:   reminderSvc,
		log:           log.Named("bot"),
		ownerChatID:   opts.OwnerChatID,
		aiTimeout:     opts.AITimeout,
		conversations: make(map[int64]*conversationState),
		listings:      make(map[int64][]string),
		favorites:     make(map[int64][]string),
		current:       make(map[int64]model.Recipe),
		busy:          make(map[int64]bool),
		lastChat:      opts.OwnerChatID,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	api, ok := b.api.(*tgbotapi.BotAPI)
	if !ok {
		return fmt.Errorf("bot has no telegram api")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.stop()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}

	b.wg.Wait()
	return ctx.Err()
}

// HandleUpdate dispatches a single update. Errors are logged, not returned.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("handle callback", zap.Error(err))
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", zap.Error(err))
		}
	}
}

func (b *Bot) allowed(chatID int64) bool {
	return b.ownerChatID == 0 || chatID == b.ownerChatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || !b.allowed(msg.Chat.ID) {
		return nil
	}
	b.rememberChat(msg.Chat.ID)

	if !msg.IsCommand() && isCancelInput(msg.Text) {
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Avbrutt. Hva vil du gjøre nå?")
	}

	if msg.IsCommand() {
		b.log.Info("command", zap.Int64("chat", msg.Chat.ID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if state := b.getConversation(msg.Chat.ID); state != nil {
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "Jeg skjønte ikke helt. Skriv /newtask for en ny oppgave, /recipe for en oppskrift eller /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "tasks":
		return b.sendTaskList(msg.Chat.ID)
	case "newtask":
		return b.startNewTask(msg.Chat.ID)
	case "edit":
		return b.startEditTask(msg.Chat.ID, args)
	case "done":
		return b.handleToggleByNumber(ctx, msg.Chat.ID, args)
	case "delete":
		return b.handleDeleteByNumber(msg.Chat.ID, args)
	case "recipe":
		if args == "" {
			b.setConversation(msg.Chat.ID, &conversationState{stage: stageRecipePrompt})
			return b.sendWithReplyMarkup(msg.Chat.ID, "🍳 Hva har du lyst til å lage i dag? F.eks. «super-tasty smoothie bowl».", cancelKeyboard())
		}
		return b.startRecipeGeneration(ctx, msg.Chat.ID, args)
	case "favorites":
		return b.sendFavorites(msg.Chat.ID)
	case "note":
		return b.handleNote(ctx, msg.Chat.ID, args)
	case "recipeedit":
		return b.startEditRecipe(msg.Chat.ID, args)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Avbrutt.")
	default:
		return b.sendText(msg.Chat.ID, "Den kommandoen kjenner jeg ikke. Ta en titt på /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "Queen"
	}
	text := fmt.Sprintf("👋 Hei, %s!\n<b>Make today amazing!</b> Jeg holder styr på planene dine og finner på noe godt å lage.\n\n%s",
		escape(name), helpText)
	if overdue := b.reminderSvc.Latest().Overdue; overdue > 0 {
		text += "\n\n🔔 " + service.OverdueNotice(overdue)
	}
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "Kommandoer:\n" +
	"• /tasks — dagens, morgendagens og senere planer\n" +
	"• /newtask — legg til en oppgave (kan gjentas hver uke eller hver 2. uke)\n" +
	"• /done &lt;nr&gt; — marker som fullført / ikke fullført\n" +
	"• /edit &lt;nr&gt; — endre tittel, tidspunkt eller gjentakelse\n" +
	"• /delete &lt;nr&gt; — slett en oppgave\n" +
	"• /recipe &lt;ønske&gt; — lag en oppskrift med AI\n" +
	"• /favorites — dine lagrede oppskrifter\n" +
	"• /note &lt;nr&gt; &lt;tekst&gt; — personlig notat på en favoritt\n" +
	"• /recipeedit &lt;nr&gt; — endre tittel eller beskrivelse på en favoritt\n" +
	"• /cancel — avbryt det du holder på med"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Hjelp</b>\n"+helpText)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(msg.Text)) {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTask(msg.Chat.ID)
	case strings.ToLower(menuLabelTasks):
		return true, b.sendTaskList(msg.Chat.ID)
	case strings.ToLower(menuLabelRecipe):
		b.setConversation(msg.Chat.ID, &conversationState{stage: stageRecipePrompt})
		return true, b.sendWithReplyMarkup(msg.Chat.ID, "🍳 Hva har du lyst til å lage i dag?", cancelKeyboard())
	case strings.ToLower(menuLabelFavorites):
		return true, b.sendFavorites(msg.Chat.ID)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	switch state.stage {
	case stageTitle, stageDueDate, stageRecurrence:
		return b.continueNewTask(ctx, msg.Chat.ID, state, msg.Text)
	case stageEditTitle, stageEditDueDate, stageEditRecurrence:
		return b.continueEditTask(ctx, msg.Chat.ID, state, msg.Text)
	case stageRecipeEditTitle, stageRecipeEditDescription:
		return b.continueEditRecipe(ctx, msg.Chat.ID, state, msg.Text)
	case stageRecipePrompt:
		b.clearConversation(msg.Chat.ID)
		return b.startRecipeGeneration(ctx, msg.Chat.ID, msg.Text)
	default:
		b.clearConversation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Dialogen ble nullstilt. Prøv igjen med /newtask.")
	}
}

// NotifyOverdue pushes the overdue badge to the owner chat.
func (b *Bot) NotifyOverdue(board service.Board) error {
	chatID := b.notifyChat()
	if chatID == 0 || board.Overdue == 0 {
		return nil
	}
	return b.sendText(chatID, fmt.Sprintf("🔔 <b>Pst! Noe venter på deg...</b>\n%s", service.OverdueNotice(board.Overdue)))
}

// SendDigest sends the whole board to the owner chat.
func (b *Bot) SendDigest(board service.Board) error {
	chatID := b.notifyChat()
	if chatID == 0 {
		return nil
	}
	return b.sendBoard(chatID, board)
}

func (b *Bot) notifyChat() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastChat
}

func (b *Bot) rememberChat(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastChat = chatID
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// sendLong splits text on line breaks into messages Telegram accepts. The markup
// goes on the last one.
func (b *Bot) sendLong(chatID int64, text string, markup interface{}) error {
	chunks := splitMessage(text, maxMessageRunes)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == len(chunks)-1 {
			msg.ReplyMarkup = markup
		}
		if _, err := b.api.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func splitMessage(text string, limit int) []string {
	var chunks []string
	var current []rune
	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			if len(current) > 0 {
				chunks = append(chunks, string(current))
				current = nil
			}
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if len(current) > 0 && len(current)+len(runes) > limit {
			chunks = append(chunks, string(current))
			current = nil
		}
		current = append(current, runes...)
	}
	if len(current) > 0 || len(chunks) == 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.log.Warn("callback ack", zap.Error(err))
	}
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func escape(s string) string {
	return html.EscapeString(s)
}
