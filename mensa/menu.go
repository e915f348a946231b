package mensa

import (
	"fmt"
	"strings"
)

// Category classifies a meal by its main ingredient or diet suitability.
type Category int

const (
	Beef Category = iota
	Pork
	Veggy
	Vegan
	Fish
)

func (c Category) Emoji() string {
	switch c {
	case Beef:
		return "🐄"
	case Pork:
		return "🐷"
	case Veggy:
		return "🥕"
	case Vegan:
		return "🥑"
	case Fish:
		return "🐟"
	}
	return ""
}

// FilterMode restricts which meals MealsMessage lists.
type FilterMode string

const (
	FilterNone       FilterMode = "none"
	FilterVegetarian FilterMode = "vegetarian"
	FilterVegan      FilterMode = "vegan"
)

// Meal is a single dish on a daily menu. Immutable once parsed.
type Meal struct {
	Name       string
	Typ        string // section heading, e.g. "Hauptgericht"
	Categories map[Category]bool
	Allergens  map[string]bool
}

func newMeal(name, typ string) *Meal {
	return &Meal{
		Name:       name,
		Typ:        typ,
		Categories: make(map[Category]bool),
		Allergens:  make(map[string]bool),
	}
}

func (m *Meal) IsMeatless() bool {
	return m.Categories[Vegan] || m.Categories[Veggy]
}

func (m *Meal) IsVegan() bool {
	return m.Categories[Vegan]
}

func (m *Meal) matches(mode FilterMode) bool {
	switch mode {
	case FilterVegetarian:
		return m.IsMeatless()
	case FilterVegan:
		return m.IsVegan()
	}
	return true
}

// String renders the meal name followed by its category emojis.
func (m *Meal) String() string {
	var b strings.Builder
	b.WriteString(m.Name)
	// fixed order, map iteration is not stable
	for _, c := range []Category{Vegan, Veggy, Pork, Beef, Fish} {
		if m.Categories[c] {
			b.WriteString(c.Emoji())
		}
	}
	return b.String()
}

// Menu is the parsed meal plan of one cafeteria for one day. Meals keep
// source document order; consecutive equal Typ values form one section.
type Menu struct {
	MensaID int
	Mensa   string
	Day     string // display format, e.g. "02.01.2006"
	Meals   []*Meal
}

// IsClosed reports whether the cafeteria is closed that day (no meals).
func (m *Menu) IsClosed() bool {
	return len(m.Meals) == 0
}

// Filtered returns the meals matching the given filter mode.
func (m *Menu) Filtered(mode FilterMode) []*Meal {
	var meals []*Meal
	for _, meal := range m.Meals {
		if meal.matches(mode) {
			meals = append(meals, meal)
		}
	}
	return meals
}

// MealsMessage renders the menu as a Markdown chat message. Section
// headings always follow the full meal list; the filter only restricts
// which meal lines appear under them.
func (m *Menu) MealsMessage(mode FilterMode) string {
	if m.IsClosed() {
		return fmt.Sprintf("%s ist am %s geschlossen", m.Mensa, m.Day)
	}

	if len(m.Filtered(mode)) == 0 {
		return "Keine Essen entsprechen dem gewählten Filter."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s* am *%s*\n", m.Mensa, m.Day)

	lastTyp := ""
	for _, meal := range m.Meals {
		if meal.Typ != lastTyp {
			fmt.Fprintf(&b, "\n*%s*:", meal.Typ)
			lastTyp = meal.Typ
		}
		if meal.matches(mode) {
			b.WriteString("\n" + meal.String())
		}
	}

	if mode == FilterNone || mode == FilterVegetarian {
		b.WriteString("\n🥑 = vegan, 🥕 = vegetarisch")
	}
	if mode == FilterNone {
		b.WriteString("\n🐷 = Schwein, 🐄 = Rind, 🐟 = Fisch")
	}
	return b.String()
}
