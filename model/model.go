package model

import (
	"time"
)

// Notification states stored in User.Notifications. Any positive value is
// the cafeteria id the chat is subscribed to.
const (
	NotificationsOff    = 0
	NotificationsFailed = -1 // delivery failed permanently, cleared only by re-enabling
)

// User is one chat known to the bot, created lazily on first interaction.
// Rows are never deleted; unreachable chats are demoted, not removed.
type User struct {
	ID        int64 `gorm:"primaryKey"` // Telegram chat ID, rewritten on migration
	CreatedAt time.Time
	UpdatedAt time.Time

	// Profile, refreshed on every interaction
	FirstName string
	LastName  string
	Username  string
	Title     string

	CurrentSelection int `gorm:"default:0"` // chosen cafeteria, 0 = none
	Notifications    int `gorm:"default:0"`
	MessageID        int // last message sent to this chat, edited on updates
	Counter          int // interaction count
}

// Subscribed reports whether the user currently receives daily updates.
func (u *User) Subscribed() bool {
	return u.Notifications > 0
}
