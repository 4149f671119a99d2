package epg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alorle/tuner-proxy/directory"
	"github.com/alorle/tuner-proxy/fetcher"
	"github.com/alorle/tuner-proxy/logging"
)

const guideXML = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="1"><display-name>One</display-name></channel>
  <channel id="2"><display-name>Two</display-name></channel>
  <channel id="3"><display-name>Three</display-name></channel>
  <programme channel="1" start="20260101120000 +0000" stop="20260101130000 +0000"><title>News</title></programme>
  <programme channel="3" start="20260101120000 +0000" stop="20260101130000 +0000"><title>Hidden</title></programme>
</tv>`

func testLogger() *logging.Logger {
	return logging.NewWithWriter(logging.ERROR, "", io.Discard)
}

func testChannels() []directory.Channel {
	return []directory.Channel{
		{Source: "S", Name: "One", TvgID: "1"},
		{Source: "S", Name: "Two", TvgID: "2"},
		{Source: "other", Name: "Three", TvgID: "3"},
	}
}

func newTestMerger(content string, fetchErr error) *Merger {
	f := &fetcher.Mock{
		FetchFunc: func(ctx context.Context, location string) ([]byte, error) {
			if fetchErr != nil {
				return nil, fetchErr
			}
			return []byte(content), nil
		},
	}
	return NewMerger([]Source{{Name: "S", Location: "http://guide/xmltv"}}, f, time.Minute, testLogger())
}

func TestMerge(t *testing.T) {
	t.Run("keeps only channels resolved for the source", func(t *testing.T) {
		m := newTestMerger(guideXML, nil)
		m.Merge(context.Background(), testChannels())

		out := string(m.Serialized())
		if !strings.Contains(out, `channel id="1"`) || !strings.Contains(out, `channel id="2"`) {
			t.Errorf("merged document missing expected channels:\n%s", out)
		}
		// Channel 3 belongs to a different source and must not survive
		if strings.Contains(out, `channel id="3"`) {
			t.Errorf("merged document contains out-of-scope channel:\n%s", out)
		}
	})

	t.Run("filters programmes by channel reference", func(t *testing.T) {
		m := newTestMerger(guideXML, nil)
		m.Merge(context.Background(), testChannels())

		out := string(m.Serialized())
		if !strings.Contains(out, "News") {
			t.Error("expected programme for kept channel to survive")
		}
		if strings.Contains(out, "Hidden") {
			t.Error("expected programme for filtered channel to be dropped")
		}
	})

	t.Run("matches channels by display name when id is unknown", func(t *testing.T) {
		m := newTestMerger(guideXML, nil)
		m.Merge(context.Background(), []directory.Channel{
			{Source: "S", Name: "Two", TvgID: "nomatch"},
		})

		out := string(m.Serialized())
		if !strings.Contains(out, `channel id="2"`) {
			t.Errorf("expected display-name match to keep channel 2:\n%s", out)
		}
	})

	t.Run("merge is idempotent on identical inputs", func(t *testing.T) {
		m := newTestMerger(guideXML, nil)
		m.Merge(context.Background(), testChannels())
		first := m.Serialized()

		m.Merge(context.Background(), testChannels())
		second := m.Serialized()

		if !bytes.Equal(first, second) {
			t.Error("expected structurally identical output for identical inputs")
		}
	})

	t.Run("fetch failure keeps previous content for the source", func(t *testing.T) {
		f := &fetcher.Mock{}
		fail := false
		f.FetchFunc = func(ctx context.Context, location string) ([]byte, error) {
			if fail {
				return nil, errors.New("connection refused")
			}
			return []byte(guideXML), nil
		}
		m := NewMerger([]Source{{Name: "S", Location: "http://guide/xmltv"}}, f, time.Minute, testLogger())

		m.Merge(context.Background(), testChannels())
		before := m.Serialized()

		fail = true
		m.Merge(context.Background(), testChannels())

		if !bytes.Equal(before, m.Serialized()) {
			t.Error("expected previous content to survive a failed fetch")
		}
	})

	t.Run("malformed document is skipped without clearing previous content", func(t *testing.T) {
		content := guideXML
		f := &fetcher.Mock{
			FetchFunc: func(ctx context.Context, location string) ([]byte, error) {
				return []byte(content), nil
			},
		}
		m := NewMerger([]Source{{Name: "S", Location: "http://guide/xmltv"}}, f, time.Minute, testLogger())

		m.Merge(context.Background(), testChannels())
		before := m.Serialized()

		content = "<html>not a guide</html>"
		m.Merge(context.Background(), testChannels())

		if !bytes.Equal(before, m.Serialized()) {
			t.Error("expected previous content to survive a malformed document")
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("rewrites icon urls through the image relay", func(t *testing.T) {
		withIcon := strings.Replace(guideXML,
			`<channel id="1"><display-name>One</display-name></channel>`,
			`<channel id="1"><display-name>One</display-name><icon src="http://up/logo.png"></icon></channel>`, 1)
		m := newTestMerger(withIcon, nil)
		m.Merge(context.Background(), testChannels())

		out := string(m.Render("http", "proxy:5004", "", nil))
		if !strings.Contains(out, "http://proxy:5004/image?url=http%3A%2F%2Fup%2Flogo.png") {
			t.Errorf("expected rewritten icon URL, got:\n%s", out)
		}
		if strings.Contains(out, `src="http://up/logo.png"`) {
			t.Error("expected original icon URL to be gone")
		}
	})

	t.Run("repeated renders never double-wrap icon urls", func(t *testing.T) {
		withIcon := strings.Replace(guideXML,
			`<channel id="1"><display-name>One</display-name></channel>`,
			`<channel id="1"><display-name>One</display-name><icon src="http://up/logo.png"></icon></channel>`, 1)
		m := newTestMerger(withIcon, nil)
		m.Merge(context.Background(), testChannels())

		m.Render("http", "proxy", "", nil)
		// A different key forces a fresh render over the retained parts
		out := string(m.Render("http", "other", "", nil))

		if strings.Contains(out, "%2Fimage%3Furl") {
			t.Errorf("icon URL wrapped twice:\n%s", out)
		}
		if !strings.Contains(out, "http://other/image?url=http%3A%2F%2Fup%2Flogo.png") {
			t.Errorf("expected single rewrite against original URL:\n%s", out)
		}
	})

	t.Run("channels filter narrows the document", func(t *testing.T) {
		m := newTestMerger(guideXML, nil)
		m.Merge(context.Background(), testChannels())

		out := string(m.Render("http", "proxy", "", []string{"1"}))
		if !strings.Contains(out, `channel id="1"`) {
			t.Error("expected channel 1 to survive explicit filter")
		}
		if strings.Contains(out, `channel id="2"`) {
			t.Error("expected channel 2 to be filtered out")
		}
	})

	t.Run("identical requests are served from cache", func(t *testing.T) {
		m := newTestMerger(guideXML, nil)
		m.Merge(context.Background(), testChannels())

		first := m.Render("http", "proxy", "", nil)
		second := m.Render("http", "proxy", "", nil)
		if !bytes.Equal(first, second) {
			t.Error("expected identical cached render")
		}
	})

	t.Run("merge invalidates cached renders", func(t *testing.T) {
		m := newTestMerger(guideXML, nil)
		m.Merge(context.Background(), testChannels())
		m.Render("http", "proxy", "", nil)

		m.Merge(context.Background(), []directory.Channel{
			{Source: "S", Name: "One", TvgID: "1"},
		})

		out := string(m.Render("http", "proxy", "", nil))
		if strings.Contains(out, `channel id="2"`) {
			t.Error("expected render cache to be invalidated by merge")
		}
	})
}

func TestParseTime(t *testing.T) {
	t.Run("with offset", func(t *testing.T) {
		got, err := ParseTime("20260101120000 +0100")
		if err != nil {
			t.Fatalf("ParseTime failed: %v", err)
		}
		if got.UTC().Hour() != 11 {
			t.Errorf("hour = %d, want 11", got.UTC().Hour())
		}
	})

	t.Run("without offset", func(t *testing.T) {
		got, err := ParseTime("20260101120000")
		if err != nil {
			t.Fatalf("ParseTime failed: %v", err)
		}
		if got.Hour() != 12 {
			t.Errorf("hour = %d, want 12", got.Hour())
		}
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		if _, err := ParseTime("not a timestamp"); err == nil {
			t.Error("expected error")
		}
	})
}
