// Package feed renders the popular-videos RSS feed. Each item points at its
// video file through a Media RSS media:content element.
package feed

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Dan9191/aromastream/internal/models"
	"github.com/beevik/etree"
)

const mediaNamespace = "http://search.yahoo.com/mrss/"

// Channel describes the feed itself.
type Channel struct {
	Title       string
	Link        string
	Description string
}

// Builder renders videos as an RSS 2.0 document.
type Builder struct {
	channel Channel
	fileURL func(key string) string
	itemURL func(id int64) string
}

// NewBuilder creates a feed builder. fileURL resolves a stored file to its
// public URL and itemURL resolves a video id to its detail URL.
func NewBuilder(channel Channel, fileURL func(string) string, itemURL func(int64) string) *Builder {
	return &Builder{channel: channel, fileURL: fileURL, itemURL: itemURL}
}

// Document builds the feed for videos, most popular first.
func (b *Builder) Document(videos []models.Video) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	rss := doc.CreateElement("rss")
	rss.CreateAttr("version", "2.0")
	rss.CreateAttr("xmlns:media", mediaNamespace)

	channel := rss.CreateElement("channel")
	channel.CreateElement("title").SetText(b.channel.Title)
	channel.CreateElement("link").SetText(b.channel.Link)
	channel.CreateElement("description").SetText(b.channel.Description)

	var latest time.Time
	for _, v := range videos {
		if v.UpdatedAt.After(latest) {
			latest = v.UpdatedAt
		}
		b.item(channel, v)
	}
	if !latest.IsZero() {
		channel.CreateElement("lastBuildDate").SetText(latest.UTC().Format(http.TimeFormat))
	}

	doc.Indent(2)
	return doc
}

func (b *Builder) item(channel *etree.Element, v models.Video) {
	item := channel.CreateElement("item")
	item.CreateElement("title").SetText(v.Title)
	item.CreateElement("description").SetText(v.Description)

	link := b.itemURL(v.ID)
	item.CreateElement("link").SetText(link)
	guid := item.CreateElement("guid")
	guid.CreateAttr("isPermaLink", "false")
	guid.SetText(fmt.Sprintf("video-%d", v.ID))
	item.CreateElement("pubDate").SetText(v.CreatedAt.UTC().Format(http.TimeFormat))

	if v.File == "" {
		return
	}
	fileURL := b.fileURL(v.File)
	content := item.CreateElement("media:content")
	content.CreateAttr("url", fileURL)
	content.CreateAttr("type", "video/mp4")
	content.CreateAttr("medium", "video")
	stats := item.CreateElement("media:community").CreateElement("media:statistics")
	stats.CreateAttr("views", fmt.Sprintf("%d", v.Views))
}

// Bytes renders the feed for videos as XML.
func (b *Builder) Bytes(videos []models.Video) ([]byte, error) {
	data, err := b.Document(videos).WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render feed: %w", err)
	}
	return data, nil
}
