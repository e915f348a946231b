package bot

import (
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"tummensabot/mensa"
	"tummensabot/model"

	"github.com/glebarez/sqlite"
	"gopkg.in/telebot.v3"
	"gorm.io/gorm"
)

type apiCall struct {
	chatID int64
	text   string
	edit   bool
}

// fakeAPI scripts delivery outcomes per chat and records every attempt.
type fakeAPI struct {
	calls  []apiCall
	errs   map[int64][]error
	nextID int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{errs: make(map[int64][]error)}
}

func (f *fakeAPI) fail(chatID int64, errs ...error) {
	f.errs[chatID] = append(f.errs[chatID], errs...)
}

func (f *fakeAPI) pop(chatID int64) error {
	queue := f.errs[chatID]
	if len(queue) == 0 {
		return nil
	}
	f.errs[chatID] = queue[1:]
	return queue[0]
}

func (f *fakeAPI) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	chatID, _ := strconv.ParseInt(to.Recipient(), 10, 64)
	text, _ := what.(string)
	f.calls = append(f.calls, apiCall{chatID: chatID, text: text})
	if err := f.pop(chatID); err != nil {
		return nil, err
	}
	f.nextID++
	return &telebot.Message{ID: f.nextID}, nil
}

func (f *fakeAPI) Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	_, chatID := msg.MessageSig()
	text, _ := what.(string)
	f.calls = append(f.calls, apiCall{chatID: chatID, text: text, edit: true})
	if err := f.pop(chatID); err != nil {
		return nil, err
	}
	f.nextID++
	return &telebot.Message{ID: f.nextID}, nil
}

func (f *fakeAPI) callsTo(chatID int64) []apiCall {
	var out []apiCall
	for _, c := range f.calls {
		if c.chatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

type staticFetcher struct{}

func (staticFetcher) Fetch(mensaID int, day time.Time) ([]byte, time.Time, error) {
	page := `<html><body><ul class="c-schedule__list">` +
		`<li class="c-schedule__list-item">` +
		`<span class="stwm-artname">Hauptgericht</span>` +
		`<span class="js-schedule-dish-description">Pasta</span>` +
		`</li></ul></body></html>`
	return []byte(page), day, nil
}

const developerChat int64 = 9999

func testBot(t *testing.T, api telegramAPI) *Bot {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return &Bot{
		Store:        model.NewStore(db),
		Menus:        mensa.NewManagerWith(staticFetcher{}),
		api:          api,
		developerIDs: []int64{developerChat},
	}
}

func addUser(t *testing.T, bot *Bot, id int64, selection, notifications, messageID int) {
	t.Helper()
	if _, _, err := bot.Store.CheckUser(model.Chat{ID: id, FirstName: "User"}, 0); err != nil {
		t.Fatalf("creating user %d: %v", id, err)
	}
	err := bot.Store.DB.Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"current_selection": selection,
		"notifications":     notifications,
		"message_id":        messageID,
	}).Error
	if err != nil {
		t.Fatalf("seeding user %d: %v", id, err)
	}
}

func TestClassifyDelivery(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want deliveryOutcome
	}{
		{"success", nil, outcomeOK},
		{"unauthorized", &telebot.Error{Code: 401, Description: "Unauthorized"}, outcomePermanent},
		{"blocked", &telebot.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}, outcomePermanent},
		{"bad request", &telebot.Error{Code: 400, Description: "Bad Request: chat not found"}, outcomePermanent},
		{"not modified", &telebot.Error{Code: 400, Description: "Bad Request: message is not modified"}, outcomeNotModified},
		{"server error", &telebot.Error{Code: 502, Description: "Bad Gateway"}, outcomeTransient},
		{"flood", telebot.FloodError{RetryAfter: 5}, outcomeTransient},
		{"network", errors.New("dial tcp: i/o timeout"), outcomeTransient},
		{"migrated", telebot.GroupError{MigratedTo: 42}, outcomeMigrated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := classifyDelivery(tt.err)
			if got != tt.want {
				t.Errorf("classifyDelivery(%s) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}

	if _, migratedTo := classifyDelivery(telebot.GroupError{MigratedTo: 42}); migratedTo != 42 {
		t.Errorf("migration target = %d, want 42", migratedTo)
	}
}

func TestDeliverStoresMessageHandle(t *testing.T) {
	api := newFakeAPI()
	bot := testBot(t, api)
	addUser(t, bot, 1, 421, 421, 0)

	bot.deliver(1, "hello", defaultMarkup(), 0)

	calls := api.callsTo(1)
	if len(calls) != 1 || calls[0].edit {
		t.Fatalf("expected one fresh send, got %v", calls)
	}
	user, _ := bot.Store.Get(1)
	if user.MessageID == 0 {
		t.Error("message handle not recorded")
	}
}

func TestDeliverEditsWhenHandleKnown(t *testing.T) {
	api := newFakeAPI()
	bot := testBot(t, api)
	addUser(t, bot, 1, 421, 421, 55)

	bot.deliver(1, "hello", defaultMarkup(), 55)

	calls := api.callsTo(1)
	if len(calls) != 1 || !calls[0].edit {
		t.Fatalf("expected one edit, got %v", calls)
	}
}

func TestDeliverPermanentFailureDemotes(t *testing.T) {
	api := newFakeAPI()
	bot := testBot(t, api)
	addUser(t, bot, 1, 421, 421, 0)
	addUser(t, bot, 2, 422, 422, 0)
	api.fail(1, &telebot.Error{Code: 401, Description: "Unauthorized"})

	bot.deliver(1, "hello", defaultMarkup(), 0)

	user, _ := bot.Store.Get(1)
	if user.Notifications != model.NotificationsFailed {
		t.Errorf("notifications = %d, want %d", user.Notifications, model.NotificationsFailed)
	}
	other, _ := bot.Store.Get(2)
	if other.Notifications != 422 {
		t.Errorf("other subscriber touched: %d", other.Notifications)
	}
	if len(api.callsTo(developerChat)) != 1 {
		t.Error("developer channel should be informed once")
	}
	if len(api.callsTo(1)) != 1 {
		t.Error("permanent failures must not be retried")
	}
}

func TestDeliverNotModifiedCountsAsDelivered(t *testing.T) {
	api := newFakeAPI()
	bot := testBot(t, api)
	addUser(t, bot, 1, 421, 421, 55)
	api.fail(1, &telebot.Error{Code: 400, Description: "Bad Request: message is not modified"})

	bot.deliver(1, "hello", defaultMarkup(), 55)

	user, _ := bot.Store.Get(1)
	if user.Notifications != 421 {
		t.Errorf("same-content edit demoted the subscriber: %d", user.Notifications)
	}
	if user.MessageID != 55 {
		t.Errorf("message handle changed: %d", user.MessageID)
	}
	if len(api.callsTo(developerChat)) != 0 {
		t.Error("no developer message expected")
	}
}

func TestDeliverTransientFailureRetriesThenGivesUp(t *testing.T) {
	api := newFakeAPI()
	bot := testBot(t, api)
	addUser(t, bot, 1, 421, 421, 0)
	api.fail(1,
		errors.New("timeout"),
		errors.New("timeout"),
		errors.New("timeout"),
	)

	bot.deliver(1, "hello", defaultMarkup(), 0)

	if got := len(api.callsTo(1)); got != maxSendAttempts {
		t.Errorf("attempts = %d, want %d", got, maxSendAttempts)
	}
	user, _ := bot.Store.Get(1)
	if user.Notifications != 421 {
		t.Errorf("exhausted retries must not demote, got %d", user.Notifications)
	}
}

func TestDeliverTransientFailureRecovers(t *testing.T) {
	api := newFakeAPI()
	bot := testBot(t, api)
	addUser(t, bot, 1, 421, 421, 0)
	api.fail(1, errors.New("timeout"))

	bot.deliver(1, "hello", defaultMarkup(), 0)

	if got := len(api.callsTo(1)); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	user, _ := bot.Store.Get(1)
	if user.MessageID == 0 {
		t.Error("recovered delivery should record the handle")
	}
}

func TestDeliverChatMigration(t *testing.T) {
	api := newFakeAPI()
	bot := testBot(t, api)
	addUser(t, bot, 1, 421, 421, 55)
	api.fail(1, telebot.GroupError{MigratedTo: 42})

	bot.deliver(1, "hello", defaultMarkup(), 55)

	if _, err := bot.Store.Get(1); err == nil {
		t.Error("old chat id should be gone")
	}
	user, err := bot.Store.Get(42)
	if err != nil {
		t.Fatalf("migrated user missing: %v", err)
	}
	if user.Notifications != 421 || user.CurrentSelection != 421 {
		t.Errorf("migration lost subscription state: %+v", user)
	}
}
