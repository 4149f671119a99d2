package handlers

import (
	"net/http"

	"github.com/alorle/tuner-proxy/config"
	"github.com/alorle/tuner-proxy/logging"
)

// DiscoverResponse is the HDHomeRun discovery document. Field names and
// casing are part of the protocol.
type DiscoverResponse struct {
	FriendlyName    string `json:"FriendlyName"`
	Manufacturer    string `json:"Manufacturer"`
	ModelNumber     string `json:"ModelNumber"`
	FirmwareName    string `json:"FirmwareName"`
	TunerCount      int    `json:"TunerCount"`
	FirmwareVersion string `json:"FirmwareVersion"`
	DeviceID        string `json:"DeviceID"`
	DeviceAuth      string `json:"DeviceAuth"`
	BaseURL         string `json:"BaseURL"`
	LineupURL       string `json:"LineupURL"`
}

// LineupStatusResponse signals scan state: never scanning, scan possible
type LineupStatusResponse struct {
	ScanInProgress int      `json:"ScanInProgress"`
	ScanPossible   int      `json:"ScanPossible"`
	Source         string   `json:"Source"`
	SourceList     []string `json:"SourceList"`
}

// CreateDiscoverHandler serves the discovery document clients use to find
// the lineup URL.
func CreateDiscoverHandler(cfg *config.Config, deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := BaseURL(r)
		logging.WriteJSONSuccess(w, deps.Logger, DiscoverResponse{
			FriendlyName:    cfg.Tuner.FriendlyName,
			Manufacturer:    cfg.Tuner.Manufacturer,
			ModelNumber:     cfg.Tuner.ModelNumber,
			FirmwareName:    cfg.Tuner.FirmwareName,
			TunerCount:      cfg.Tuner.TunerCount,
			FirmwareVersion: "20250101",
			DeviceID:        deps.DeviceID,
			DeviceAuth:      "tuner-proxy",
			BaseURL:         baseURL,
			LineupURL:       baseURL + "/lineup.json",
		})
	}
}

// CreateLineupStatusHandler serves the static lineup-status document
func CreateLineupStatusHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logging.WriteJSONSuccess(w, deps.Logger, LineupStatusResponse{
			ScanInProgress: 0,
			ScanPossible:   1,
			Source:         "Cable",
			SourceList:     []string{"Cable"},
		})
	}
}
