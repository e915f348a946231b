package bot

import (
	"fmt"
	"strings"

	"tummensabot/mensa"

	"gopkg.in/telebot.v3"
)

// Cafeterias are grouped into three keyboard pages. Button payloads are
// "{id}${name}" for selections, "5$1"/"5$0" for the subscription toggle
// and "page${n}" for paging.
var navPages = [][][]int{
	{{421, 411}, {422, 412}, {423, 432}}, // Mensa
	{{450, 418}, {455, 415}, {416, 424}}, // StuBistro
	{{512, 526}, {527, 524}, {532}},      // StuCafé
}

var navPageTitles = []string{"Mensa", "StuBistro", "StuCafé"}

func pageByID(mensaID int) int {
	for page, content := range navPages {
		for _, row := range content {
			for _, id := range row {
				if id == mensaID {
					return page
				}
			}
		}
	}
	return 0
}

func makeInlineMarkup(page int, showNotiBtn, enable bool) *telebot.ReplyMarkup {
	var rows [][]telebot.InlineButton

	if showNotiBtn {
		btn := telebot.InlineButton{Text: "Auto-Update deaktivieren", Data: "5$0"}
		if enable {
			btn = telebot.InlineButton{Text: "Auto-Update aktivieren", Data: "5$1"}
		}
		rows = append(rows, []telebot.InlineButton{btn})
	}

	for _, row := range navPages[page] {
		var btns []telebot.InlineButton
		for _, id := range row {
			name := mensa.Mensen[id]
			btns = append(btns, telebot.InlineButton{
				Text: name,
				Data: fmt.Sprintf("%d$%s", id, name),
			})
		}
		rows = append(rows, btns)
	}

	prev := (page - 1 + len(navPages)) % len(navPages)
	next := (page + 1) % len(navPages)
	rows = append(rows, []telebot.InlineButton{
		{Text: "<<", Data: fmt.Sprintf("page$%d", prev)},
		{Text: ">>", Data: fmt.Sprintf("page$%d", next)},
	})

	return &telebot.ReplyMarkup{InlineKeyboard: rows}
}

func defaultMarkup() *telebot.ReplyMarkup {
	return makeInlineMarkup(0, false, false)
}

func pageOverview(page int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Seite %d / %d\n", page+1, len(navPages))
	for i, title := range navPageTitles {
		icon := "▫"
		if i == page {
			icon = "▪️"
		}
		fmt.Fprintf(&b, "\n%s %s", icon, title)
	}
	return b.String()
}
