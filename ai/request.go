package ai

import "Painter/core"

const (
	defaultImages = 1
	defaultWidth  = 1024
	defaultHeight = 1024
)

// GenerateParams is the json blob sent in the "params" part of a run request
type GenerateParams struct {
	Type                 string        `json:"type"`
	NumImages            int           `json:"numImages"`
	Width                int           `json:"width"`
	Height               int           `json:"height"`
	Style                string        `json:"style"`
	NegativePromptUnclip string        `json:"negativePromptUnclip,omitempty"`
	GenerateParams       GenerateQuery `json:"generateParams"`
}

type GenerateQuery struct {
	Query string `json:"query"`
}

func NewParams(req core.GenerationRequest) *GenerateParams {
	p := &GenerateParams{
		Type:                 "GENERATE",
		NumImages:            req.Images,
		Width:                req.Width,
		Height:               req.Height,
		Style:                string(req.Style),
		NegativePromptUnclip: req.Negative,
		GenerateParams:       GenerateQuery{Query: req.Positive},
	}
	if p.NumImages <= 0 {
		p.NumImages = defaultImages
	}
	if p.Width <= 0 {
		p.Width = defaultWidth
	}
	if p.Height <= 0 {
		p.Height = defaultHeight
	}
	if p.Style == "" {
		p.Style = string(core.StyleDefault)
	}
	return p
}
