package bot

import (
	"Painter/core"
	"Painter/lib/sl"
	"context"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"log/slog"
	"strings"
)

const stylesPerRow = 2

type Handler interface {
	Handle(ev Event)
}

type TgBot struct {
	conf        *core.Config
	api         *tgbotapi.BotAPI
	handler     Handler
	dispatcher  *Dispatcher
	botUsername string
	log         *slog.Logger
}

var _ core.Messenger = (*TgBot)(nil)

func NewTgBot(conf *core.Config, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		conf:        conf,
		dispatcher:  NewDispatcher(),
		botUsername: conf.Username,
		log:         log.With(sl.Module("tgbot")),
	}

	api, err := tgbotapi.NewBotAPI(conf.TelegramApiKey)
	if err != nil {
		return nil, fmt.Errorf("creating bot api: %w", err)
	}
	tgBot.api = api
	if tgBot.botUsername == "" {
		tgBot.botUsername = api.Self.UserName
	}

	return tgBot, nil
}

// SetHandler set the dialog that receives incoming events
func (t *TgBot) SetHandler(handler Handler) {
	t.handler = handler
}

// Start reads updates until ctx is done
func (t *TgBot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("getting updates: %w", err)
	}
	t.log.With(slog.String("username", t.botUsername)).Info("receiving updates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop stops receiving updates and waits for queued events
func (t *TgBot) Stop() {
	t.api.StopReceivingUpdates()
	t.dispatcher.Wait()
}

func (t *TgBot) handleUpdate(update tgbotapi.Update) {
	ev, ok := eventFromUpdate(update, t.botUsername)
	if !ok || t.handler == nil {
		return
	}

	t.log.With(
		sl.User(ev.UserId),
		slog.String("from", ev.UserName),
		slog.String("command", ev.Command),
		sl.Short("text", ev.Text+ev.Data),
	).Debug("incoming")

	t.dispatcher.Dispatch(ev.UserId, func() {
		t.handler.Handle(ev)
	})
}

// eventFromUpdate converts an update to an event; in group chats only
// commands, mentions and replies to the bot are taken.
func eventFromUpdate(update tgbotapi.Update, botUsername string) (Event, bool) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.From == nil {
			return Event{}, false
		}
		ev := Event{
			UserId:     int64(cb.From.ID),
			UserName:   cb.From.UserName,
			CallbackId: cb.ID,
			Data:       cb.Data,
		}
		if cb.Message != nil && cb.Message.Chat != nil {
			ev.ChatId = cb.Message.Chat.ID
		} else {
			ev.ChatId = ev.UserId
		}
		return ev, true
	}

	incoming := update.Message
	if incoming == nil || incoming.From == nil || incoming.Chat == nil {
		return Event{}, false
	}
	if !incoming.IsCommand() && !incoming.Chat.IsPrivate() &&
		!isMentioned(incoming.Text, botUsername) && !isReplyToBot(incoming, botUsername) {
		return Event{}, false
	}

	ev := Event{
		UserId:    int64(incoming.From.ID),
		ChatId:    incoming.Chat.ID,
		MessageId: incoming.MessageID,
		UserName:  incoming.From.UserName,
	}
	if incoming.IsCommand() {
		ev.Command = strings.ToLower(incoming.Command())
		ev.Text = strings.TrimSpace(incoming.CommandArguments())
	} else {
		text := incoming.Text
		if botUsername != "" {
			text = strings.ReplaceAll(text, "@"+botUsername, "")
		}
		ev.Text = strings.TrimSpace(text)
	}
	return ev, true
}

func (t *TgBot) SendText(chatId int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatId, text)
	msg.ReplyToMessageID = replyTo
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

func (t *TgBot) SendStyleMenu(chatId int64, replyTo int, text string, styles []core.StyleOption) error {
	msg := tgbotapi.NewMessage(chatId, text)
	msg.ReplyToMessageID = replyTo
	msg.ReplyMarkup = styleKeyboard(styles)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("sending style menu: %w", err)
	}
	return nil
}

func (t *TgBot) SendPhoto(chatId int64, replyTo int, path string) error {
	msg := tgbotapi.NewPhotoUpload(chatId, path)
	msg.ReplyToMessageID = replyTo
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("sending photo %s: %w", path, err)
	}
	return nil
}

func (t *TgBot) AnswerCallback(callbackId, text string) error {
	if _, err := t.api.AnswerCallbackQuery(tgbotapi.NewCallback(callbackId, text)); err != nil {
		return fmt.Errorf("answering callback: %w", err)
	}
	return nil
}

func (t *TgBot) SendChatAction(chatId int64, action string) error {
	if _, err := t.api.Send(tgbotapi.NewChatAction(chatId, action)); err != nil {
		return fmt.Errorf("sending chat action: %w", err)
	}
	return nil
}

func styleKeyboard(styles []core.StyleOption) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(styles); i += stylesPerRow {
		end := min(i+stylesPerRow, len(styles))
		var row []tgbotapi.InlineKeyboardButton
		for _, style := range styles[i:end] {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(style.Label(), string(style.Name)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// detect if we are mentioned in the message
func isMentioned(text, botUsername string) bool {
	if botUsername != "" {
		return strings.Contains(text, "@"+botUsername)
	}
	return false
}

// detect if message is a reply to a message from the bot
func isReplyToBot(message *tgbotapi.Message, botUsername string) bool {
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		return message.ReplyToMessage.From.UserName == botUsername
	}
	return false
}
