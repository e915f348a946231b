package model

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNoSelection is returned when notifications are enabled before any
// cafeteria has been selected.
var ErrNoSelection = errors.New("no cafeteria selected")

// Chat carries the profile fields of an incoming chat event.
type Chat struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Title     string
}

// Store holds the persistent per-chat state. One instance is constructed
// at process start and shared by the handlers and the broadcast.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// CheckUser registers an unknown chat with defaults, or refreshes a known
// one: profile fields are updated, the interaction counter is bumped and a
// non-zero sel becomes the current selection. It returns the chat's
// notification state and current selection.
func (s *Store) CheckUser(chat Chat, sel int) (noti, presel int, err error) {
	var user User
	res := s.DB.Where("id = ?", chat.ID).First(&user)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		user = User{
			ID:        chat.ID,
			FirstName: chat.FirstName,
			LastName:  chat.LastName,
			Username:  chat.Username,
			Title:     chat.Title,
		}
		if err := s.DB.Create(&user).Error; err != nil {
			return 0, 0, fmt.Errorf("creating user %d: %w", chat.ID, err)
		}
		return 0, 0, nil
	}
	if res.Error != nil {
		return 0, 0, fmt.Errorf("loading user %d: %w", chat.ID, res.Error)
	}

	if sel != 0 {
		user.CurrentSelection = sel
	}
	user.Counter++
	user.FirstName = chat.FirstName
	user.LastName = chat.LastName
	user.Username = chat.Username
	user.Title = chat.Title
	if err := s.DB.Save(&user).Error; err != nil {
		return 0, 0, fmt.Errorf("updating user %d: %w", chat.ID, err)
	}
	return user.Notifications, user.CurrentSelection, nil
}

// EnableNotifications subscribes the chat to its currently selected
// cafeteria. Fails with ErrNoSelection when nothing has been selected yet;
// a previous permanent delivery failure is cleared by re-enabling.
func (s *Store) EnableNotifications(chatID int64) (int, error) {
	var user User
	if err := s.DB.Where("id = ?", chatID).First(&user).Error; err != nil {
		return 0, fmt.Errorf("loading user %d: %w", chatID, err)
	}
	if user.CurrentSelection == 0 {
		return 0, ErrNoSelection
	}
	user.Notifications = user.CurrentSelection
	if err := s.DB.Save(&user).Error; err != nil {
		return 0, fmt.Errorf("updating user %d: %w", chatID, err)
	}
	return user.Notifications, nil
}

// DisableNotifications unsubscribes the chat. Idempotent.
func (s *Store) DisableNotifications(chatID int64) error {
	return s.DB.Model(&User{}).Where("id = ?", chatID).
		Update("notifications", NotificationsOff).Error
}

// MarkUnreachable demotes a chat after a permanent delivery failure. The
// state is terminal until the user enables notifications again.
func (s *Store) MarkUnreachable(chatID int64) error {
	return s.DB.Model(&User{}).Where("id = ?", chatID).
		Update("notifications", NotificationsFailed).Error
}

// Migrate rewrites a chat's identity in place, preserving all other
// state. Telegram sends this when a group becomes a supergroup.
func (s *Store) Migrate(oldID, newID int64) error {
	return s.DB.Model(&User{}).Where("id = ?", oldID).
		Update("id", newID).Error
}

// SetMessageID records the handle of the last delivered message so the
// next update can edit it instead of sending a new one.
func (s *Store) SetMessageID(chatID int64, messageID int) error {
	return s.DB.Model(&User{}).Where("id = ?", chatID).
		Update("message_id", messageID).Error
}

// IncrementCounter bumps the interaction counter without touching the
// profile, used by the broadcast.
func (s *Store) IncrementCounter(chatID int64) error {
	return s.DB.Model(&User{}).Where("id = ?", chatID).
		Update("counter", gorm.Expr("counter + 1")).Error
}

// Get loads a single user.
func (s *Store) Get(chatID int64) (*User, error) {
	var user User
	if err := s.DB.Where("id = ?", chatID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Subscribed lists every chat with active notifications.
func (s *Store) Subscribed() ([]User, error) {
	var users []User
	if err := s.DB.Where("notifications > 0").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
