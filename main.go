package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"tummensabot/bot"
	"tummensabot/model"

	"github.com/glebarez/sqlite"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

type Config struct {
	BotToken         string  `json:"bot_token"`
	WebhookURL       string  `json:"webhook_url"`
	ListenAddr       string  `json:"listen_addr"`
	DBPath           string  `json:"db_path"`
	AdminID          int64   `json:"admin_id"`
	DeveloperIDs     []int64 `json:"developer_ids"`
	NotificationHour int     `json:"notification_hour"`
}

func loadConfig() Config {
	config := Config{
		DBPath:           "mensausers.sqlite",
		NotificationHour: 16,
	}

	file, err := os.Open("config.json")
	if err == nil {
		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			log.Printf("config.json konnte nicht gelesen werden: %v", err)
		}
		file.Close()
	}

	// BOT_TOKEN environment variable wins over config.json
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		config.BotToken = token
	}
	if config.BotToken == "" {
		log.Fatal("BOT_TOKEN Umgebungsvariable nicht gesetzt, und kein bot_token in config.json")
	}

	// developer notifications fall back to the admin chat
	if len(config.DeveloperIDs) == 0 && config.AdminID != 0 {
		config.DeveloperIDs = []int64{config.AdminID}
	}
	return config
}

func usage() {
	fmt.Fprintf(os.Stderr, "TUMMensaBot\nUsage: %s <daemon|notifications>\n", os.Args[0])
	os.Exit(1)
}

func main() {
	mode := "daemon"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	switch mode {
	case "daemon", "notifications":
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintln(os.Stderr, "Unknown parameter:", mode)
		os.Exit(1)
	}

	config := loadConfig()

	db, err := gorm.Open(sqlite.Open(config.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	// Auto migrate
	if err := db.AutoMigrate(&model.User{}); err != nil {
		log.Fatal(err)
	}

	b, err := bot.NewBot(bot.Config{
		Token:        config.BotToken,
		WebhookURL:   config.WebhookURL,
		ListenAddr:   config.ListenAddr,
		DeveloperIDs: config.DeveloperIDs,
	}, db)
	if err != nil {
		log.Fatal(err)
	}

	if mode == "notifications" {
		// one broadcast pass, then exit
		b.SendNotifications()
		return
	}

	// Scheduler: one broadcast per day at the configured hour
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * *", config.NotificationHour), b.SendNotifications); err != nil {
		log.Fatal(err)
	}
	c.Start()

	log.Printf("Bot started, daily update at %02d:00...", config.NotificationHour)
	b.Start()
}
