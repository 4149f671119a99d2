package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alorle/tuner-proxy/directory"
	"github.com/alorle/tuner-proxy/fetcher"
)

// discoverDocument is the subset of an HDHomeRun discover.json we consume
type discoverDocument struct {
	FriendlyName string `json:"FriendlyName"`
	ModelNumber  string `json:"ModelNumber"`
	DeviceID     string `json:"DeviceID"`
	BaseURL      string `json:"BaseURL"`
	LineupURL    string `json:"LineupURL"`
}

// lineupEntry is one channel in an HDHomeRun lineup.json
type lineupEntry struct {
	GuideNumber string `json:"GuideNumber"`
	GuideName   string `json:"GuideName"`
	URL         string `json:"URL"`
}

// TunerSource adapts an HDHomeRun-style tuner device into raw channel
// records by reading its discover and lineup documents.
type TunerSource struct {
	name    string
	baseURL string
	fetcher fetcher.Interface
}

// NewTunerSource creates a tuner source adapter rooted at the device's
// base URL (e.g. http://192.168.1.10).
func NewTunerSource(name, baseURL string, f fetcher.Interface) *TunerSource {
	return &TunerSource{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: f,
	}
}

// Name implements directory.Provider
func (s *TunerSource) Name() string {
	return s.name
}

// Records fetches the device's discover.json and lineup.json and converts
// the lineup into source records carrying the tuner's identity.
func (s *TunerSource) Records(ctx context.Context) ([]directory.SourceRecord, error) {
	discoverRaw, err := s.fetcher.Fetch(ctx, s.baseURL+"/discover.json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discover document: %w", err)
	}

	var discover discoverDocument
	if err := json.Unmarshal(discoverRaw, &discover); err != nil {
		return nil, fmt.Errorf("failed to parse discover document: %w", err)
	}

	lineupURL := discover.LineupURL
	if lineupURL == "" {
		lineupURL = s.baseURL + "/lineup.json"
	}

	lineupRaw, err := s.fetcher.Fetch(ctx, lineupURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lineup document: %w", err)
	}

	var lineup []lineupEntry
	if err := json.Unmarshal(lineupRaw, &lineup); err != nil {
		return nil, fmt.Errorf("failed to parse lineup document: %w", err)
	}

	meta := &directory.DeviceMeta{
		DeviceID: discover.DeviceID,
		BaseURL:  discover.BaseURL,
		Model:    discover.ModelNumber,
	}

	records := make([]directory.SourceRecord, 0, len(lineup))
	for _, entry := range lineup {
		records = append(records, directory.SourceRecord{
			Name:        entry.GuideName,
			GuideNumber: entry.GuideNumber,
			Source:      s.name,
			URL:         entry.URL,
			DeviceMeta:  meta,
		})
	}

	return records, nil
}
