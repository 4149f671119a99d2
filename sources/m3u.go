package sources

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/alorle/tuner-proxy/directory"
	"github.com/alorle/tuner-proxy/fetcher"
)

var (
	tvgIDRegex   = regexp.MustCompile(`tvg-id="([^"]*)"`)
	tvgNameRegex = regexp.MustCompile(`tvg-name="([^"]*)"`)
	tvgLogoRegex = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	tvgChnoRegex = regexp.MustCompile(`tvg-chno="([^"]*)"`)
)

// M3USource adapts an extended-M3U playlist feed into raw channel records
type M3USource struct {
	name     string
	location string
	fetcher  fetcher.Interface
}

// NewM3USource creates a playlist source adapter. Location may be an
// HTTP(S) URL or a local file path.
func NewM3USource(name, location string, f fetcher.Interface) *M3USource {
	return &M3USource{
		name:     name,
		location: location,
		fetcher:  f,
	}
}

// Name implements directory.Provider
func (s *M3USource) Name() string {
	return s.name
}

// Records fetches and parses the playlist into source records
func (s *M3USource) Records(ctx context.Context) ([]directory.SourceRecord, error) {
	content, err := s.fetcher.Fetch(ctx, s.location)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist: %w", err)
	}
	return ParseM3U(content, s.name), nil
}

// ParseM3U converts extended-M3U content into raw channel records for the
// named source. Entries without a display name are kept here and rejected
// later by the directory build, so the skip warning is logged in one place.
func ParseM3U(content []byte, source string) []directory.SourceRecord {
	lines := strings.Split(string(content), "\n")
	var records []directory.SourceRecord

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "#EXTINF:") {
			continue
		}

		// The first non-comment line after EXTINF is the media URL
		var streamURL string
		for j := i + 1; j < len(lines); j++ {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" || strings.HasPrefix(candidate, "#") {
				continue
			}
			streamURL = candidate
			i = j
			break
		}
		if streamURL == "" {
			continue
		}

		records = append(records, directory.SourceRecord{
			Name:        extractDisplayName(line),
			TvgID:       extractAttr(tvgIDRegex, line),
			GuideNumber: extractAttr(tvgChnoRegex, line),
			Logo:        extractAttr(tvgLogoRegex, line),
			Source:      source,
			URL:         streamURL,
		})
	}

	return records
}

// extractDisplayName returns the text after the last comma of an EXTINF
// line, falling back to the tvg-name attribute when the title is empty.
func extractDisplayName(extinf string) string {
	commaIdx := strings.LastIndex(extinf, ",")
	if commaIdx != -1 {
		if name := strings.TrimSpace(extinf[commaIdx+1:]); name != "" {
			return name
		}
	}
	return extractAttr(tvgNameRegex, extinf)
}

func extractAttr(re *regexp.Regexp, line string) string {
	matches := re.FindStringSubmatch(line)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}
