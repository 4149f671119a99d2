package epg

import (
	"encoding/xml"
	"fmt"
	"time"
)

// TV is the root element of an XMLTV guide document
type TV struct {
	XMLName       xml.Name    `xml:"tv"`
	GeneratorName string      `xml:"generator-info-name,attr,omitempty"`
	Channels      []Channel   `xml:"channel"`
	Programmes    []Programme `xml:"programme"`
}

// Channel is an XMLTV channel node. ID must match a channel's tvg-id for
// the node to survive the merge.
type Channel struct {
	ID           string        `xml:"id,attr"`
	DisplayNames []DisplayName `xml:"display-name"`
	Icons        []Icon        `xml:"icon"`
}

// DisplayName is a channel display name, optionally language-tagged
type DisplayName struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// Icon is an image reference inside a channel or programme node
type Icon struct {
	Src string `xml:"src,attr"`
}

// Programme is an XMLTV programme node. Start and Stop use the textual
// "YYYYMMDDHHmmss" format, optionally followed by a space and a ±HHMM
// offset.
type Programme struct {
	Channel string  `xml:"channel,attr"`
	Start   string  `xml:"start,attr"`
	Stop    string  `xml:"stop,attr"`
	Titles  []Title `xml:"title"`
	Descs   []Title `xml:"desc"`
	Icons   []Icon  `xml:"icon"`
}

// Title is a language-tagged text node shared by titles and descriptions
type Title struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// ParseTime parses an XMLTV timestamp, with or without a timezone offset.
// Offset-less timestamps are interpreted as UTC.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse("20060102150405 -0700", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("20060102150405", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid XMLTV timestamp %q", s)
}

// FormatTime renders a time in the XMLTV timestamp format with offset
func FormatTime(t time.Time) string {
	return t.Format("20060102150405 -0700")
}
