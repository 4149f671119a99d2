package directory

import (
	"log"

	"github.com/alorle/tuner-proxy/overrides"
)

// Build resolves raw source records plus the override table into the
// canonical channel list. It is pure and deterministic given its inputs:
// a malformed record (missing name) is skipped with a warning, the build
// itself never fails.
func Build(records []SourceRecord, ovr overrides.Interface) []Channel {
	channels := make([]Channel, 0, len(records))

	for _, rec := range records {
		if rec.Name == "" {
			log.Printf("Skipping channel record without a name from source %q", rec.Source)
			continue
		}

		ch := Channel{
			Name:        rec.Name,
			TvgID:       rec.TvgID,
			GuideNumber: rec.GuideNumber,
			Logo:        rec.Logo,
			Group:       rec.Source,
			Source:      rec.Source,
			OriginalURL: rec.URL,
			DeviceMeta:  rec.DeviceMeta,
		}

		if ovr != nil {
			applyOverride(&ch, ovr.Lookup(rec.Name, rec.TvgID))
		}

		// Every channel must carry some guide-linking key
		if ch.TvgID == "" {
			ch.TvgID = ch.GuideNumber
		}

		channels = append(channels, ch)
	}

	return channels
}

// applyOverride copies present override fields over the raw values.
// Missing override fields leave raw values untouched.
func applyOverride(ch *Channel, ovr *overrides.Override) {
	if ovr == nil {
		return
	}
	if ovr.Name != nil {
		ch.Name = *ovr.Name
	}
	if ovr.TvgID != nil {
		ch.TvgID = *ovr.TvgID
	}
	if ovr.Logo != nil {
		ch.Logo = *ovr.Logo
	}
	if ovr.GuideNumber != nil {
		ch.GuideNumber = *ovr.GuideNumber
	}
	if ovr.Group != nil {
		ch.Group = *ovr.Group
	}
}
