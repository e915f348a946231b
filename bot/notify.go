package bot

import (
	"log"

	"tummensabot/mensa"
)

// SendNotifications runs one broadcast pass: fresh menus are fetched for
// every cafeteria, then each subscribed chat gets its plan, editing the
// previously delivered message where possible. A failing cafeteria or
// chat never aborts the pass.
func (bot *Bot) SendNotifications() {
	log.Println("Starting notification broadcast")

	// clear cache to ensure latest results
	bot.Menus.ClearCache()

	plans := make(map[int]*mensa.Menu)
	for mensaID, name := range mensa.Mensen {
		menu, err := bot.Menus.GetMenu(mensaID)
		if err != nil {
			log.Printf("bot: skipping %s (#%d): %v", name, mensaID, err)
			continue
		}
		plans[mensaID] = menu
	}

	users, err := bot.Store.Subscribed()
	if err != nil {
		log.Printf("bot: listing subscribers: %v", err)
		return
	}

	markup := makeInlineMarkup(0, true, false)
	for _, user := range users {
		if err := bot.Store.IncrementCounter(user.ID); err != nil {
			log.Printf("bot: counting interaction for %d: %v", user.ID, err)
		}

		menu := plans[user.Notifications]
		if menu == nil {
			log.Printf("bot: no plan for %s (#%d), skipping", user.FirstName, user.ID)
			continue
		}

		log.Printf("Sending plan to %s (#%d)", user.FirstName, user.ID)
		bot.deliver(user.ID, menu.MealsMessage(mensa.FilterNone), markup, user.MessageID)
	}
}
