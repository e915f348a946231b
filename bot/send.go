package bot

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gopkg.in/telebot.v3"
)

// maxSendAttempts bounds in-place retries on transient delivery failures.
const maxSendAttempts = 3

type deliveryOutcome int

const (
	outcomeOK deliveryOutcome = iota
	outcomeNotModified // edit with unchanged content, counts as delivered
	outcomePermanent   // recipient unreachable, demote
	outcomeTransient   // retry after a delay
	outcomeMigrated    // chat id changed, rewrite and stop
)

// classifyDelivery sorts a send/edit error into the outcome that decides
// the subscriber's state transition. Unknown errors (network, timeouts)
// count as transient.
func classifyDelivery(err error) (deliveryOutcome, int64) {
	if err == nil {
		return outcomeOK, 0
	}

	var group telebot.GroupError
	if errors.As(err, &group) {
		return outcomeMigrated, group.MigratedTo
	}

	var flood telebot.FloodError
	if errors.As(err, &flood) {
		return outcomeTransient, 0
	}

	var apiErr *telebot.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 400 && strings.Contains(apiErr.Description, "message is not modified") {
			// user tapped the same button twice, not an issue
			return outcomeNotModified, 0
		}
		switch apiErr.Code {
		case 400, 401, 403:
			return outcomePermanent, 0
		}
	}
	return outcomeTransient, 0
}

// deliver sends a message to a chat, editing the previous one when a
// message handle is known. Permanent failures demote the subscriber and
// inform the developer channel; transient failures are retried in place a
// bounded number of times and then only logged, leaving the subscriber
// state untouched.
func (bot *Bot) deliver(chatID int64, text string, markup *telebot.ReplyMarkup, messageID int) {
	for attempt := 0; attempt < maxSendAttempts; attempt++ {
		var msg *telebot.Message
		var err error
		if messageID == 0 {
			msg, err = bot.api.Send(telebot.ChatID(chatID), text, markup, telebot.ModeMarkdown)
		} else {
			ref := telebot.StoredMessage{ChatID: chatID, MessageID: strconv.Itoa(messageID)}
			msg, err = bot.api.Edit(ref, text, markup, telebot.ModeMarkdown)
		}

		outcome, migratedTo := classifyDelivery(err)
		switch outcome {
		case outcomeOK:
			if err := bot.Store.SetMessageID(chatID, msg.ID); err != nil {
				log.Printf("bot: recording message id for %d: %v", chatID, err)
			}
			return

		case outcomeNotModified:
			return

		case outcomePermanent:
			log.Printf("bot: chat %d unreachable, disabling notifications: %v", chatID, err)
			if err := bot.Store.MarkUnreachable(chatID); err != nil {
				log.Printf("bot: demoting chat %d: %v", chatID, err)
			}
			bot.notifyDevelopers(fmt.Sprintf("Error while sending message to chat %d\n\n%v", chatID, err))
			return

		case outcomeMigrated:
			log.Printf("bot: chat %d migrated to %d", chatID, migratedTo)
			if err := bot.Store.Migrate(chatID, migratedTo); err != nil {
				log.Printf("bot: migrating chat %d: %v", chatID, err)
			}
			return

		case outcomeTransient:
			log.Printf("bot: delivery to chat %d failed, retrying: %v", chatID, err)
			time.Sleep(bot.retryDelay)
		}
	}
	log.Printf("bot: giving up on chat %d after %d attempts", chatID, maxSendAttempts)
}
