package mensa

import (
	"bytes"
	"log"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ParseMenu extracts the meal plan from the raw upstream HTML. Malformed
// or incomplete list items are skipped, never fatal: a page without any
// parsable meals yields a closed menu.
func ParseMenu(content []byte, mensaID int, day time.Time) *Menu {
	menu := &Menu{
		MensaID: mensaID,
		Mensa:   MensaName(mensaID),
		Day:     day.Format("02.01.2006"),
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		// html.Parse is extremely tolerant; treat a hard failure like
		// an empty page.
		log.Printf("mensa: parsing page for %d failed: %v", mensaID, err)
		return menu
	}

	lastTyp := ""
	for _, item := range elementsByClass(doc, "c-schedule__list-item") {
		typ := nodeText(firstByClass(item, "stwm-artname"))
		if typ == "" {
			typ = lastTyp
		}
		lastTyp = typ

		name := ownText(firstByClass(item, "js-schedule-dish-description"))
		if name == "" {
			log.Printf("mensa: skipping meal without name (mensa %d, %s)", mensaID, menu.Day)
			continue
		}

		meal := newMeal(name, typ)

		if icon := firstSpanBelow(firstByClass(item, "c-schedule__icon")); icon != nil {
			if hasClass(icon, "vegan") {
				meal.Categories[Vegan] = true
			}
			if hasClass(icon, "fleischlos") {
				meal.Categories[Veggy] = true
			}
		}

		if sup := firstByClass(firstByClass(item, "c-schedule__marker--type"), "u-text-sup"); sup != nil {
			marker := nodeText(sup)
			if strings.Contains(marker, "S") {
				meal.Categories[Pork] = true
			}
			if strings.Contains(marker, "R") {
				meal.Categories[Beef] = true
			}
		}

		if sup := firstByClass(firstByClass(item, "c-schedule__marker--allergen"), "u-text-sup"); sup != nil {
			for _, code := range strings.Split(strings.Trim(nodeText(sup), "[]"), ",") {
				if code = strings.TrimSpace(code); code != "" {
					meal.Allergens[code] = true
				}
			}
			// the fish marker on the salad bar is misleading
			if meal.Allergens["Fi"] && !strings.Contains(name, "Salatbar") {
				meal.Categories[Fish] = true
			}
		}

		menu.Meals = append(menu.Meals, meal)
	}
	return menu
}

// ---- DOM helpers -----------------------------------------------------------

func hasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func isSpan(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "span"
}

// elementsByClass collects all descendants carrying the given class, in
// document order. Matching nodes are not descended into further.
func elementsByClass(n *html.Node, class string) []*html.Node {
	if n == nil {
		return nil
	}
	if hasClass(n, class) {
		return []*html.Node{n}
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, elementsByClass(c, class)...)
	}
	return out
}

func firstByClass(n *html.Node, class string) *html.Node {
	if n == nil {
		return nil
	}
	if hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func firstMatch(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstMatch(c, match); found != nil {
			return found
		}
	}
	return nil
}

// firstSpanBelow finds the first span descendant, excluding the node itself.
func firstSpanBelow(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstMatch(c, isSpan); found != nil {
			return found
		}
	}
	return nil
}

// nodeText collects all text below a node, whitespace-trimmed.
func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// ownText collects only the direct text children of a node, so nested
// markup (price spans etc.) does not leak into meal names.
func ownText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
