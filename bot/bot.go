package bot

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"tummensabot/mensa"
	"tummensabot/model"

	"gopkg.in/telebot.v3"
	"gorm.io/gorm"
)

// telegramAPI is the slice of the telebot surface the delivery code
// needs, so tests can substitute a fake.
type telegramAPI interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

type Config struct {
	Token        string
	WebhookURL   string // empty = long polling
	ListenAddr   string
	DeveloperIDs []int64
}

type Bot struct {
	B     *telebot.Bot
	Store *model.Store
	Menus *mensa.Manager

	api          telegramAPI
	developerIDs []int64
	retryDelay   time.Duration
}

func NewBot(cfg Config, db *gorm.DB) (*Bot, error) {
	var poller telebot.Poller = &telebot.LongPoller{Timeout: 10 * time.Second}
	if cfg.WebhookURL != "" {
		poller = &telebot.Webhook{
			Listen:   cfg.ListenAddr,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	}

	b, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.Token,
		Poller: poller,
	})
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		B:            b,
		Store:        model.NewStore(db),
		Menus:        mensa.NewManager(),
		api:          b,
		developerIDs: cfg.DeveloperIDs,
		retryDelay:   5 * time.Second,
	}
	bot.registerHandlers()
	return bot, nil
}

func (bot *Bot) Start() {
	bot.B.Start()
}

func (bot *Bot) registerHandlers() {
	bot.B.Handle("/start", bot.handleStart)
	bot.B.Handle("/about", bot.handleAbout)
	bot.B.Handle(telebot.OnCallback, bot.handleCallback)

	// any other message falls back to the start reply
	bot.B.Handle(telebot.OnText, bot.handleStart)
}

func chatInfo(chat *telebot.Chat) model.Chat {
	return model.Chat{
		ID:        chat.ID,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
		Username:  chat.Username,
		Title:     chat.Title,
	}
}

// --- Handlers ---

func (bot *Bot) handleStart(c telebot.Context) error {
	if _, _, err := bot.Store.CheckUser(chatInfo(c.Chat()), 0); err != nil {
		log.Printf("bot: registering chat %d: %v", c.Chat().ID, err)
	}
	msg := "Bitte über das Menü eine Mensa wählen. Informationen über diesen Bot gibt's hier /about."
	bot.deliver(c.Chat().ID, msg, defaultMarkup(), 0)
	return nil
}

func (bot *Bot) handleAbout(c telebot.Context) error {
	if _, _, err := bot.Store.CheckUser(chatInfo(c.Chat()), 0); err != nil {
		log.Printf("bot: registering chat %d: %v", c.Chat().ID, err)
	}
	msg := "Dieser Bot wurde erstellt von @Alwinius, und wird weiterentwickelt von @markuspi.\n" +
		"Der Quellcode ist unter https://github.com/Alwinius/tummensabot verfügbar.\n" +
		"Weitere interessante Bots: \n - @tummoodlebot\n - @mydealz\\_bot\n - @tumroomsbot\n - @aachenmensabot"
	bot.deliver(c.Chat().ID, msg, defaultMarkup(), 0)
	return nil
}

func (bot *Bot) handleCallback(c telebot.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return nil
	}

	// stop the loading indicator
	if err := c.Respond(); err != nil {
		log.Printf("bot: answering callback: %v", err)
	}

	data := strings.TrimSpace(cb.Data)
	args := strings.Split(data, "$")
	chat := chatInfo(cb.Message.Chat)
	messageID := cb.Message.ID

	switch {
	case args[0] == "page" && len(args) > 1:
		return bot.showPage(chat, args[1], messageID)
	case isMensaID(args[0]):
		id, _ := strconv.Atoi(args[0])
		return bot.showMenu(chat, id, messageID)
	case args[0] == "5" && len(args) > 1:
		return bot.toggleNotifications(chat, args[1] == "1", messageID)
	default:
		return bot.unknownCommand(chat, data, messageID)
	}
}

func isMensaID(arg string) bool {
	id, err := strconv.Atoi(arg)
	return err == nil && id > 400
}

func (bot *Bot) showPage(chat model.Chat, pageArg string, messageID int) error {
	page, err := strconv.Atoi(pageArg)
	if err != nil {
		return bot.unknownCommand(chat, "page$"+pageArg, messageID)
	}
	page = ((page % len(navPages)) + len(navPages)) % len(navPages)

	noti, presel, err := bot.Store.CheckUser(chat, 0)
	if err != nil {
		log.Printf("bot: updating chat %d: %v", chat.ID, err)
	}

	enable := noti <= 0 || noti != presel
	bot.deliver(chat.ID, pageOverview(page), makeInlineMarkup(page, true, enable), messageID)
	return nil
}

func (bot *Bot) showMenu(chat model.Chat, mensaID int, messageID int) error {
	noti, _, err := bot.Store.CheckUser(chat, mensaID)
	if err != nil {
		log.Printf("bot: updating chat %d: %v", chat.ID, err)
	}

	var msg string
	menu, err := bot.Menus.GetMenu(mensaID)
	if err != nil {
		log.Printf("bot: getting menu for %d: %v", mensaID, err)
		msg = "Der Speiseplan ist momentan nicht verfügbar, bitte später erneut versuchen."
	} else {
		msg = menu.MealsMessage(mensa.FilterNone)
	}

	enable := noti <= 0 || noti != mensaID
	bot.deliver(chat.ID, msg, makeInlineMarkup(pageByID(mensaID), true, enable), messageID)
	return nil
}

func (bot *Bot) toggleNotifications(chat model.Chat, enable bool, messageID int) error {
	_, presel, err := bot.Store.CheckUser(chat, 0)
	if err != nil {
		log.Printf("bot: updating chat %d: %v", chat.ID, err)
	}

	var msg string
	if enable {
		mensaID, err := bot.Store.EnableNotifications(chat.ID)
		if errors.Is(err, model.ErrNoSelection) {
			bot.deliver(chat.ID, "Bitte zuerst über das Menü eine Mensa wählen.", defaultMarkup(), messageID)
			return nil
		}
		if err != nil {
			log.Printf("bot: enabling notifications for %d: %v", chat.ID, err)
			return nil
		}
		msg = "Auto-Update aktiviert für " + mensa.MensaName(mensaID)
	} else {
		if err := bot.Store.DisableNotifications(chat.ID); err != nil {
			log.Printf("bot: disabling notifications for %d: %v", chat.ID, err)
			return nil
		}
		msg = "Auto-Update deaktiviert"
	}

	bot.deliver(chat.ID, msg, makeInlineMarkup(pageByID(presel), true, !enable), messageID)
	return nil
}

func (bot *Bot) unknownCommand(chat model.Chat, data string, messageID int) error {
	log.Printf("bot: unknown inline command %q from chat %d", data, chat.ID)
	bot.deliver(chat.ID, "Kommando nicht erkannt", defaultMarkup(), messageID)
	bot.notifyDevelopers("Inlinekommando nicht erkannt.\n\nData: " + data + "\nChat: " + strconv.FormatInt(chat.ID, 10))
	return nil
}

// notifyDevelopers reports an incident to the configured developer chats.
func (bot *Bot) notifyDevelopers(msg string) {
	for _, id := range bot.developerIDs {
		if _, err := bot.api.Send(telebot.ChatID(id), msg); err != nil {
			log.Printf("bot: notifying developer %d: %v", id, err)
		}
	}
}
