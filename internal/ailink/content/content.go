package content

import "strings"

// ContentType represents supported content types using IANA media types.
type ContentType string

const ContentTypeText ContentType = "text/plain"

// ContentBlock represents a single piece of content.
//
// Text blocks carry Text. Inline blocks carry raw Data with Type set to the
// declared media type of the payload (e.g. "image/png").
type ContentBlock struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
	Data []byte      `json:"data,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Text returns a text block.
func Text(value string) ContentBlock {
	return ContentBlock{Type: ContentTypeText, Text: value}
}

// Inline returns a binary block for the given media type.
func Inline(data []byte, mediaType string) ContentBlock {
	return ContentBlock{Type: ContentType(strings.TrimSpace(mediaType)), Data: data}
}

// IsText reports whether the block carries text rather than binary data.
func (b ContentBlock) IsText() bool {
	return b.Type == ContentTypeText
}

// IsImage reports whether the block is an inline image.
func (b ContentBlock) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(string(b.Type)), "image/")
}

// GroundingChunk identifies one source used to ground an answer. Exactly one
// of Web or Maps is normally set.
type GroundingChunk struct {
	Web  *GroundingSource `json:"web,omitempty"`
	Maps *GroundingSource `json:"maps,omitempty"`
}

// GroundingSource is the uri/title pair carried by either variant.
type GroundingSource struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// Source returns the web variant, falling back to maps.
func (c GroundingChunk) Source() *GroundingSource {
	if c.Web != nil {
		return c.Web
	}
	return c.Maps
}
