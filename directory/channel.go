package directory

import "net/url"

// DeviceMeta carries tuner identity for channels contributed by
// tuner-style sources. It is nil for playlist-based channels.
type DeviceMeta struct {
	DeviceID string
	BaseURL  string
	Model    string
}

// SourceRecord is a raw channel record as reported by one upstream source,
// before overrides and identity resolution are applied.
type SourceRecord struct {
	Name        string
	TvgID       string
	GuideNumber string
	Logo        string
	Source      string
	URL         string
	DeviceMeta  *DeviceMeta
}

// Channel is the canonical post-resolution record. (Source, Name) uniquely
// identifies a channel for relay routing; OriginalURL is never exposed to
// clients.
type Channel struct {
	Name        string
	TvgID       string
	GuideNumber string
	Logo        string
	Group       string
	Source      string
	OriginalURL string
	DeviceMeta  *DeviceMeta
}

// Route returns the proxy-owned relay path for the channel, with both
// components URL-escaped.
func (c Channel) Route() string {
	return "/stream/" + url.PathEscape(c.Source) + "/" + url.PathEscape(c.Name)
}

// ChannelID returns the identifier used for guide numbering and usage
// session keys: guide number first, then tvg-id, then name. Lineup
// generation and relay usage tracking must share this single fallback
// chain, otherwise session deduplication silently breaks.
func ChannelID(c Channel) string {
	if c.GuideNumber != "" {
		return c.GuideNumber
	}
	if c.TvgID != "" {
		return c.TvgID
	}
	return c.Name
}
