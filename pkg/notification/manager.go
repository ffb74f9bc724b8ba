package notification

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"safetycarbot/pkg/pubsub"
	"safetycarbot/pkg/settings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nikoksr/notify"
)

// Lister provides the telegram users subscribed to deploy announcements.
type Lister interface {
	ListDeploySubscribers() ([]settings.TelegramUser, error)
}

// Manager listens for safety car deployments and fans them out to the
// subscribed telegram chats.
type Manager struct {
	ctx    context.Context
	lister Lister
	bot    *tgbotapi.BotAPI
	pubsub *pubsub.PubSub
}

func NewManager(ctx context.Context, bot *tgbotapi.BotAPI, lister Lister, ps *pubsub.PubSub) *Manager {
	return &Manager{
		ctx:    ctx,
		bot:    bot,
		lister: lister,
		pubsub: ps,
	}
}

type deployNotice struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (m *Manager) Start(exitChan <-chan bool) {
	deployedChan := m.pubsub.Subscribe(pubsub.TopicSafetyCarDeployed)
	for {
		select {
		case <-exitChan:
			return
		case payload := <-deployedChan:
			var notice deployNotice
			if err := json.Unmarshal([]byte(payload), &notice); err != nil {
				log.Printf("Error decoding deploy notice: %s", err.Error())
				continue
			}
			m.handleNotification(notice)
		}
	}
}

func (m *Manager) handleNotification(notice deployNotice) {
	recipients, err := m.lister.ListDeploySubscribers()
	if err != nil {
		log.Printf("Error listing deploy subscribers: %s", err.Error())
		return
	}
	log.Printf("Sending deploy notification (%s) to %d telegram users\n", notice.Reason, len(recipients))
	if err := m.sendNotification(recipients, notice); err != nil {
		log.Printf("Error notifying users: %s", err.Error())
	}
}

func (m *Manager) sendNotification(tusers []settings.TelegramUser, notice deployNotice) error {
	if len(tusers) == 0 {
		return nil
	}

	tg := Telegram{}
	tg.SetClient(m.bot)

	for _, tuser := range tusers {
		chatId, _ := strconv.ParseInt(tuser.ChatID, 0, 64)
		tg.AddReceivers(chatId)
	}

	body := notice.Message
	if body == "" {
		body = "Safety car deployed"
	}
	body += " (" + notice.Reason + ")"

	n := notify.NewWithServices(&tg)
	return n.Send(m.ctx, "Safety car deployed:", body)
}
