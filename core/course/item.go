package course

import (
	"fmt"
	"html/template"
	"time"
)

// ItemBase holds the fields shared by every content item.
type ItemBase struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (b ItemBase) Base() ItemBase { return b }

// Upload describes a stored file.
type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Item is a content item: one of TextItem, FileItem, ImageItem or VideoItem.
type Item interface {
	Kind() Kind
	Base() ItemBase
	// Render produces the item's HTML from its own state.
	Render() (template.HTML, error)

	sealed()
}

type (
	TextItem struct {
		ItemBase
		Content string `json:"content"`
	}

	FileItem struct {
		ItemBase
		File Upload `json:"file"`
	}

	ImageItem struct {
		ItemBase
		Image Upload `json:"image"`
	}

	VideoItem struct {
		ItemBase
		URL string `json:"url"`
	}
)

var (
	_ Item = TextItem{}
	_ Item = FileItem{}
	_ Item = ImageItem{}
	_ Item = VideoItem{}
)

func (TextItem) Kind() Kind  { return KindText }
func (FileItem) Kind() Kind  { return KindFile }
func (ImageItem) Kind() Kind { return KindImage }
func (VideoItem) Kind() Kind { return KindVideo }

func (TextItem) sealed()  {}
func (FileItem) sealed()  {}
func (ImageItem) sealed() {}
func (VideoItem) sealed() {}

func (it TextItem) Render() (template.HTML, error)  { return renderItem(KindText, it) }
func (it FileItem) Render() (template.HTML, error)  { return renderItem(KindFile, it) }
func (it ImageItem) Render() (template.HTML, error) { return renderItem(KindImage, it) }

func (it VideoItem) Render() (template.HTML, error) {
	return renderItem(KindVideo, struct {
		VideoItem
		EmbedURL string
	}{it, videoEmbedURL(it.URL)})
}

// WithBase returns a copy of `it` holding `base`.
func WithBase(it Item, base ItemBase) Item {
	switch v := it.(type) {
	case TextItem:
		v.ItemBase = base
		return v
	case FileItem:
		v.ItemBase = base
		return v
	case ImageItem:
		v.ItemBase = base
		return v
	case VideoItem:
		v.ItemBase = base
		return v
	default:
		panic(fmt.Sprintf("course: unhandled item type %T", it))
	}
}

// ItemUpload returns the upload held by `it`, if any.
func ItemUpload(it Item) (Upload, bool) {
	switch v := it.(type) {
	case FileItem:
		return v.File, true
	case ImageItem:
		return v.Image, true
	case TextItem, VideoItem:
		return Upload{}, false
	default:
		panic(fmt.Sprintf("course: unhandled item type %T", it))
	}
}
