package panel

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/ailink"
	"github.com/stocklens/stocklens/internal/attachment"
	"github.com/stocklens/stocklens/internal/observability"
)

// Panel names.
const (
	NameMarket   = "market"
	NameImage    = "image"
	NameDeepDive = "deepdive"
)

// MarketGateway issues search-grounded queries.
type MarketGateway interface {
	MarketAnalysis(ctx context.Context, prompt string) (*ailink.MarketAnalysis, error)
}

// ImageGateway issues multimodal queries.
type ImageGateway interface {
	AnalyzeImage(ctx context.Context, prompt, imageBase64, mimeType string) (string, error)
}

// DeepDiveGateway issues long-form reasoning queries.
type DeepDiveGateway interface {
	DeepDive(ctx context.Context, prompt string) (string, error)
}

// Gateway is the full gateway surface; *ailink.Service implements it.
type Gateway interface {
	MarketGateway
	ImageGateway
	DeepDiveGateway
}

// ValidPrompt reports whether prompt is non-empty after trimming.
func ValidPrompt(prompt string) bool {
	return strings.TrimSpace(prompt) != ""
}

// MarketPanel drives search-grounded queries.
type MarketPanel = Controller[string, *ailink.MarketAnalysis]

// DeepDivePanel drives long-form reasoning queries.
type DeepDivePanel = Controller[string, string]

// NewMarket builds the market panel.
func NewMarket(gw MarketGateway) *MarketPanel {
	return New(NameMarket, ValidPrompt, gw.MarketAnalysis)
}

// NewDeepDive builds the deep-dive panel.
func NewDeepDive(gw DeepDiveGateway) *DeepDivePanel {
	return New(NameDeepDive, ValidPrompt, gw.DeepDive)
}

// ImageInput is one image-panel submission.
type ImageInput struct {
	Prompt string           `json:"prompt"`
	File   *attachment.File `json:"-"`
}

// ImagePanel drives multimodal queries. It owns the selected attachment,
// which is encoded inside each submission.
type ImagePanel struct {
	*Controller[ImageInput, string]

	mu       sync.Mutex
	file     *attachment.File
	maxBytes int64
}

// NewImage builds the image panel. maxBytes bounds attachments; zero disables
// the limit.
func NewImage(gw ImageGateway, maxBytes int64) *ImagePanel {
	p := &ImagePanel{maxBytes: maxBytes}
	p.Controller = New(NameImage, func(in ImageInput) bool {
		return ValidPrompt(in.Prompt) && in.File != nil
	}, func(ctx context.Context, in ImageInput) (string, error) {
		encoded, err := attachment.Encode(ctx, in.File, attachment.WithMaxBytes(p.maxBytes))
		if err != nil {
			if logger := observability.Active(); logger != nil {
				logger.Error("attachment encoding failed", zap.String("panel", NameImage), zap.Error(err))
			}
			return "", err
		}
		return gw.AnalyzeImage(ctx, in.Prompt, encoded.Data, encoded.MediaType)
	})
	return p
}

// SelectAttachment replaces the attachment and clears any result or error.
// A nil file deselects.
func (p *ImagePanel) SelectAttachment(f *attachment.File) {
	p.mu.Lock()
	p.file = f
	p.mu.Unlock()
	p.Clear()
}

// Attachment returns the selected attachment, if any.
func (p *ImagePanel) Attachment() *attachment.File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file
}

// SubmitPrompt submits prompt with the selected attachment. It is rejected
// when no attachment is selected.
func (p *ImagePanel) SubmitPrompt(ctx context.Context, prompt string) (<-chan struct{}, bool) {
	return p.Submit(ctx, ImageInput{Prompt: prompt, File: p.Attachment()})
}

// CanSubmit reports whether SubmitPrompt would be accepted right now.
func (p *ImagePanel) CanSubmit(prompt string) bool {
	return p.Ready(ImageInput{Prompt: prompt, File: p.Attachment()})
}

// Set is the three panels of one front end.
type Set struct {
	Market   *MarketPanel
	Image    *ImagePanel
	DeepDive *DeepDivePanel
}

// NewSet builds one of each panel over gw.
func NewSet(gw Gateway, maxAttachmentBytes int64) *Set {
	return &Set{
		Market:   NewMarket(gw),
		Image:    NewImage(gw, maxAttachmentBytes),
		DeepDive: NewDeepDive(gw),
	}
}
