// Package mensa retrieves, parses and caches the daily menus published by
// the Studentenwerk München for its cafeterias.
package mensa

import (
	"fmt"
	"time"
)

// Mensen is the fixed set of supported cafeterias.
var Mensen = map[int]string{
	421: "Mensa Arcisstr.",
	411: "Mensa Leopoldstr.",
	422: "Mensa Garching",
	412: "Mensa Martinsried",
	423: "Mensa Weihenstephan",
	432: "Mensa Pasing",

	450: "StuBistro Arcisstr.",
	418: "StuBistro Goethestr.",
	455: "StuBistro Akademiestr.",
	415: "StuBistro Martinsried",
	416: "StuBistro Schellingstr.",
	424: "StuBistro Oettingenstr.",

	512: "StuCafé Adalbertstr.",
	526: "StuCafé Akademie",
	527: "StuCafé Bolzmannstr.",
	524: "StuCafé Garching",
	532: "StuCafé Karlstr.",
}

const mealURLTemplate = "https://www.studentenwerk-muenchen.de/mensa/speiseplan/speiseplan_%s_%d_-de.html"

func mealURL(day time.Time, mensaID int) string {
	return fmt.Sprintf(mealURLTemplate, day.Format("2006-01-02"), mensaID)
}

// MensaName returns the display name of a cafeteria, or "???" for ids
// outside the enumeration.
func MensaName(mensaID int) string {
	if name, ok := Mensen[mensaID]; ok {
		return name
	}
	return "???"
}
