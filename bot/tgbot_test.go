package bot

import (
	"Painter/core"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandEntity(length int) *[]tgbotapi.MessageEntity {
	return &[]tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
}

func TestEventFromUpdate_Command(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: 7, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: 70, Type: "private"},
		Text:      "/positive a red fox",
		Entities:  commandEntity(len("/positive")),
	}}

	ev, ok := eventFromUpdate(update, "painter_bot")
	require.True(t, ok)
	assert.Equal(t, int64(7), ev.UserId)
	assert.Equal(t, int64(70), ev.ChatId)
	assert.Equal(t, 10, ev.MessageId)
	assert.Equal(t, "positive", ev.Command)
	assert.Equal(t, "a red fox", ev.Text)
	assert.False(t, ev.IsCallback())
}

func TestEventFromUpdate_Text(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 11,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: 7, Type: "private"},
		Text:      "  a lighthouse  ",
	}}

	ev, ok := eventFromUpdate(update, "painter_bot")
	require.True(t, ok)
	assert.Empty(t, ev.Command)
	assert.Equal(t, "a lighthouse", ev.Text)
}

func TestEventFromUpdate_GroupChat(t *testing.T) {
	plain := tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: -100, Type: "group"},
		Text: "just talking",
	}}
	_, ok := eventFromUpdate(plain, "painter_bot")
	assert.False(t, ok)

	mention := tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7},
		Chat: &tgbotapi.Chat{ID: -100, Type: "group"},
		Text: "@painter_bot a castle",
	}}
	ev, ok := eventFromUpdate(mention, "painter_bot")
	require.True(t, ok)
	assert.Equal(t, "a castle", ev.Text)

	reply := tgbotapi.Update{Message: &tgbotapi.Message{
		From:           &tgbotapi.User{ID: 7},
		Chat:           &tgbotapi.Chat{ID: -100, Type: "group"},
		Text:           "a dragon",
		ReplyToMessage: &tgbotapi.Message{From: &tgbotapi.User{ID: 1, UserName: "painter_bot"}},
	}}
	_, ok = eventFromUpdate(reply, "painter_bot")
	assert.True(t, ok)
}

func TestEventFromUpdate_Callback(t *testing.T) {
	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 70}},
		Data:    "ANIME",
	}}

	ev, ok := eventFromUpdate(update, "")
	require.True(t, ok)
	assert.True(t, ev.IsCallback())
	assert.Equal(t, int64(70), ev.ChatId)
	assert.Equal(t, "ANIME", ev.Data)
}

func TestEventFromUpdate_Ignored(t *testing.T) {
	_, ok := eventFromUpdate(tgbotapi.Update{}, "")
	assert.False(t, ok)

	_, ok = eventFromUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x"}}, "")
	assert.False(t, ok)
}

func TestStyleKeyboard(t *testing.T) {
	markup := styleKeyboard(core.DefaultStyles())

	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Len(t, markup.InlineKeyboard[1], 2)
	assert.Equal(t, "Kandinsky", markup.InlineKeyboard[0][0].Text)
	require.NotNil(t, markup.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "ANIME", *markup.InlineKeyboard[1][0].CallbackData)

	odd := styleKeyboard(core.DefaultStyles()[:3])
	require.Len(t, odd.InlineKeyboard, 2)
	assert.Len(t, odd.InlineKeyboard[1], 1)
}
