package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"safetycarbot/pkg/commands"
	"safetycarbot/pkg/generator"
	"safetycarbot/pkg/notification"
	"safetycarbot/pkg/pubsub"
	"safetycarbot/pkg/settings"
	"safetycarbot/pkg/telemetry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	commandRun      = "run"
	commandStop     = "stop"
	commandStatus   = "status"
	commandSettings = "settings"
	commandSet      = "set"
	commandNotify   = "notify"
	commandHelp     = "help"
)

var (
	bot *tgbotapi.BotAPI

	generatorMu     sync.Mutex
	activeGenerator *generator.Generator
	cancelGenerator context.CancelFunc

	settingsManager *settings.Manager
	feed            *telemetry.Client
	sender          *commands.Sender
	pubsubMgr       *pubsub.PubSub
	dryRunSink      *commands.LogSink
)

func main() {
	var err error
	// get token from env
	token := os.Getenv("TELEGRAM_TOKEN")
	bot, err = tgbotapi.NewBotAPI(token)
	if err != nil {
		// Abort if something is wrong
		log.Panic(err)
	}

	// Set this to true to log all interactions with telegram servers
	bot.Debug = false

	simulatorURL := os.Getenv("SIMULATOR_URL")
	if simulatorURL == "" {
		simulatorURL = "http://localhost:8180"
	}
	dbName := os.Getenv("SETTINGS_DB")
	if dbName == "" {
		dbName = settings.DbName
	}

	settingsManager, err = settings.NewManager(dbName)
	if err != nil {
		log.Panic(err)
	}
	defer settingsManager.Close()

	pubsubMgr = pubsub.NewPubSub()
	feed = telemetry.NewClient(simulatorURL)

	dryRun, _ := strconv.ParseBool(os.Getenv("DRY_RUN"))
	if dryRun {
		log.Println("Dry run enabled, race control commands will only be logged")
		dryRunSink = &commands.LogSink{}
		sender = commands.NewSender(dryRunSink)
	} else {
		sender = commands.NewSender(commands.NewHTTPSink(simulatorURL))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	// Create a new cancellable background context. Calling `cancel()` leads to the cancellation of the context
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)

	go telemetry.Reconnect(ctx, feed.Run, 5*time.Second)

	exitChan := make(chan bool)
	notifier := notification.NewManager(ctx, bot, settingsManager, pubsubMgr)
	go notifier.Start(exitChan)

	// `updates` is a golang channel which receives telegram updates
	updates := bot.GetUpdatesChan(u)

	// Pass cancellable context to goroutine
	go receiveUpdates(ctx, updates)

	// Tell the user the bot is online
	log.Println("Start listening for updates. Press Ctrl-C to stop it")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// lock the main thread until we receive a signal
	<-sigs

	stopGenerator()
	close(exitChan)
	cancel()
}

func receiveUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	// `for {` means the loop is infinite until we manually stop it
	for {
		select {
		// stop looping if ctx is cancelled
		case <-ctx.Done():
			return
		// receive update from channel and then handle it
		case update := <-updates:
			handleUpdate(ctx, update)
		}
	}
}

func handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		handleMessage(ctx, update.Message)
	}
}

func handleMessage(ctx context.Context, message *tgbotapi.Message) {
	user := message.From
	text := message.Text

	if user == nil {
		return
	}

	// Print to console
	log.Printf("%s wrote %s", user.FirstName, text)

	var err error
	if message.IsCommand() {
		err = handleCommand(ctx, message)
	}

	if err != nil {
		log.Printf("An error occured: %s", err.Error())
	}
}

// When we get a command, we react accordingly
func handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatId := message.Chat.ID

	switch message.Command() {
	case commandRun:
		return startGenerator(chatId)
	case commandStop:
		stopGenerator()
		return reply(chatId, "Generator stopped")
	case commandStatus:
		return sendStatus(chatId)
	case commandSettings:
		return sendSettings(chatId)
	case commandSet:
		return applySetting(chatId, message.CommandArguments())
	case commandNotify:
		return toggleNotifications(chatId, message.From)
	case commandHelp:
		return reply(chatId, helpText())
	}
	return nil
}

func startGenerator(chatId int64) error {
	generatorMu.Lock()
	defer generatorMu.Unlock()

	if activeGenerator != nil && activeGenerator.State() != generator.StateStopped {
		return reply(chatId, "Generator already running, use /stop first")
	}

	cfg, err := settingsManager.Load()
	if err != nil {
		return reply(chatId, "Settings are invalid: "+err.Error())
	}

	gen, err := generator.New(cfg, feed, sender, pubsubMgr)
	if err != nil {
		return reply(chatId, "Settings are invalid: "+err.Error())
	}

	runCtx, cancel := context.WithCancel(context.Background())
	activeGenerator = gen
	cancelGenerator = cancel
	go func() {
		if err := gen.Run(runCtx); err != nil {
			log.Printf("Generator stopped with error: %s", err.Error())
		}
	}()

	return reply(chatId, "Generator started, waiting for the race session")
}

func stopGenerator() {
	generatorMu.Lock()
	defer generatorMu.Unlock()
	if cancelGenerator != nil {
		cancelGenerator()
		cancelGenerator = nil
	}
}

func toggleNotifications(chatId int64, user *tgbotapi.User) error {
	enabled, err := settingsManager.ToggleDeploySubscription(
		strconv.FormatInt(user.ID, 10),
		user.FirstName,
		strconv.FormatInt(chatId, 10),
	)
	if err != nil {
		return err
	}
	if enabled {
		return reply(chatId, "You will be notified when the safety car is deployed")
	}
	return reply(chatId, "Deploy notifications disabled")
}

func reply(chatId int64, text string) error {
	msg := tgbotapi.NewMessage(chatId, text)
	_, err := bot.Send(msg)
	return err
}

func helpText() string {
	return "Commands:\n" +
		"/run - start monitoring the race\n" +
		"/stop - stop the generator\n" +
		"/status - show the generator state\n" +
		"/settings - show the current settings\n" +
		"/set <name> <value> - change a setting\n" +
		"/notify - toggle deploy notifications\n" +
		"/help - this message"
}
