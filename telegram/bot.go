package telegram

import (
	"fmt"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"stationsim/internal"
)

// TgBot pushes simulation events to subscribed chats. Subscriptions are
// kept in memory for the lifetime of the process.
type TgBot struct {
	api           *tgbotapi.BotAPI
	mux           sync.Mutex
	subscriptions map[int]int64
	event         chan MessageContent
	send          chan MessageContent
}

type MessageContent struct {
	ChatID int64
	Text   string
}

func NewBot(apiKey string) (*TgBot, error) {
	tgBot := &TgBot{
		subscriptions: make(map[int]int64),
		event:         make(chan MessageContent, 100),
		send:          make(chan MessageContent, 100),
	}
	api, err := tgbotapi.NewBotAPI(apiKey)
	if err != nil {
		return nil, err
	}
	tgBot.api = api
	return tgBot, nil
}

func (b *TgBot) Start() {
	go b.sendPump()
	go b.eventPump()
	go b.updatesPump()
}

// updatesPump listens for chat commands
func (b *TgBot) updatesPump() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		log.Printf("bot: error getting updates: %v", err)
		return
	}
	for update := range updates {
		if update.Message == nil {
			continue
		}
		if !update.Message.IsCommand() {
			continue
		}
		switch update.Message.Command() {
		case "start":
			b.mux.Lock()
			b.subscriptions[update.Message.From.ID] = update.Message.Chat.ID
			b.mux.Unlock()
			msg := fmt.Sprintf("Hello *%v*, you are now subscribed to simulation events", update.Message.From.UserName)
			b.send <- MessageContent{ChatID: update.Message.Chat.ID, Text: msg}
		case "stop":
			b.mux.Lock()
			delete(b.subscriptions, update.Message.From.ID)
			b.mux.Unlock()
			b.send <- MessageContent{ChatID: update.Message.Chat.ID, Text: "Your subscription has been removed"}
		}
	}
}

// eventPump sending events to all subscribers
func (b *TgBot) eventPump() {
	for {
		if event, ok := <-b.event; ok {
			b.mux.Lock()
			chats := make([]int64, 0, len(b.subscriptions))
			for _, chatId := range b.subscriptions {
				chats = append(chats, chatId)
			}
			b.mux.Unlock()
			for _, chatId := range chats {
				b.sendMessage(chatId, event.Text)
			}
		}
	}
}

// sendPump sending messages to users
func (b *TgBot) sendPump() {
	for {
		if event, ok := <-b.send; ok {
			b.sendMessage(event.ChatID, event.Text)
		}
	}
}

// sendMessage common routine to send a message via bot API
func (b *TgBot) sendMessage(id int64, text string) {
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = "MarkdownV2"
	_, err := b.api.Send(msg)
	if err != nil {
		// maybe error was while parsing, so we can send a message about this error
		msg = tgbotapi.NewMessage(id, fmt.Sprintf("Error: %v", err))
		_, err = b.api.Send(msg)
		if err != nil {
			log.Printf("bot: error sending message: %v", err)
		}
	}
}

// OnSimulationEvent formats the event and queues it for every subscriber.
func (b *TgBot) OnSimulationEvent(event *internal.EventMessage) {
	var text string
	switch event.Type {
	case internal.EventTransactionStart:
		text = fmt.Sprintf("*%v*: Connector %v: transaction %v started\nTag: `%v`", event.StationId, event.ConnectorId, event.TransactionId, event.IdTag)
	case internal.EventTransactionStop:
		text = fmt.Sprintf("*%v*: Connector %v: transaction %v stopped\nReason: `%v`", event.StationId, event.ConnectorId, event.TransactionId, event.Info)
	case internal.EventFirmwareStatus:
		text = fmt.Sprintf("*%v*: firmware status `%v`", event.StationId, event.Status)
	case internal.EventStationFault:
		text = fmt.Sprintf("*%v*: fault on connector %v: `%v`", event.StationId, event.ConnectorId, event.Info)
	default:
		return
	}
	select {
	case b.event <- MessageContent{Text: text}:
	default:
		log.Println("bot: event queue is full")
	}
}
