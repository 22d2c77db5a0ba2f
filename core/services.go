package core

import (
	"context"
	"image"
)

type GenerationRequest struct {
	Positive string
	Negative string
	Style    Style
	Images   int
	Width    int
	Height   int
}

// Generator runs one generation in strict order:
// ResolveModel, Submit, Poll, Persist
type Generator interface {
	ResolveModel(ctx context.Context) (string, error)
	Submit(ctx context.Context, req GenerationRequest, modelId string) (string, error)
	Poll(ctx context.Context, jobId string) ([]image.Image, error)
	Persist(images []image.Image, dir string) ([]string, error)
}

// Messenger is the outbound side of the chat transport
type Messenger interface {
	SendText(chatId int64, replyTo int, text string) error
	SendStyleMenu(chatId int64, replyTo int, text string, styles []StyleOption) error
	SendPhoto(chatId int64, replyTo int, path string) error
	AnswerCallback(callbackId string, text string) error
	SendChatAction(chatId int64, action string) error
}
