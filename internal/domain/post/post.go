package post

import (
	"fmt"

	"github.com/kailas-cloud/feedlock/internal/domain"
)

// MaxIDLength caps the post fingerprint length.
const MaxIDLength = 512

// MaxHashtags caps the number of hashtags accepted per post.
const MaxHashtags = 100

// Type is the media kind reported by the client.
type Type string

// Post type constants.
const (
	TypeImage    Type = "image"
	TypeVideo    Type = "video"
	TypeCarousel Type = "carousel"
	TypeReel     Type = "reel"
	TypeUnknown  Type = "unknown"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	switch t {
	case TypeImage, TypeVideo, TypeCarousel, TypeReel, TypeUnknown:
		return true
	}
	return false
}

// Meta holds optional client metadata that does not affect scoring.
type Meta struct {
	Username string
	URL      string
	Type     Type
}

// Content is the post payload entering the pipeline (immutable value object).
type Content struct {
	id       string
	caption  string
	hashtags []string
	meta     Meta
}

// New validates and creates post Content.
// ID is required, caption and hashtags may be empty.
func New(id, caption string, hashtags []string, meta Meta) (Content, error) {
	if id == "" {
		return Content{}, domain.NewValidationError("post.id", "is required")
	}
	if len(id) > MaxIDLength {
		return Content{}, domain.NewValidationError("post.id", fmt.Sprintf("too long (max %d)", MaxIDLength))
	}
	if len(hashtags) > MaxHashtags {
		return Content{}, domain.NewValidationError("post.hashtags", fmt.Sprintf("too many (max %d)", MaxHashtags))
	}
	if meta.Type == "" {
		meta.Type = TypeUnknown
	}
	if !meta.Type.IsValid() {
		return Content{}, domain.NewValidationError("post.type", fmt.Sprintf("unsupported value %q", meta.Type))
	}

	return Content{
		id:       id,
		caption:  caption,
		hashtags: append([]string(nil), hashtags...),
		meta:     meta,
	}, nil
}

// ID returns the stable content fingerprint.
func (c *Content) ID() string { return c.id }

// Caption returns the post caption.
func (c *Content) Caption() string { return c.caption }

// Hashtags returns a copy of the hashtags in client order.
func (c *Content) Hashtags() []string { return append([]string(nil), c.hashtags...) }

// Meta returns the client metadata.
func (c *Content) Meta() Meta { return c.meta }
