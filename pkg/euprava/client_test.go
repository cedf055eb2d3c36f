package euprava

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrozem/landsync/internal/config"
	"github.com/agrozem/landsync/internal/model"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Oglasna deska</title>
    <item>
      <title>Prodaja kmetijskega zemljišča - k.o. Šembije</title>
      <link>https://e-uprava.gov.si/si/javne-objave?id=100</link>
      <guid>100</guid>
      <pubDate>Mon, 24 Aug 2026 10:00:00 +0200</pubDate>
    </item>
    <item>
      <title>Javno naročilo za čiščenje</title>
      <link>https://e-uprava.gov.si/si/javne-objave?id=200</link>
    </item>
    <item>
      <title>Ponudba za prodajo KMETIJSKEGA zemljišča</title>
      <link>https://e-uprava.gov.si/si/javne-objave?id=101</link>
    </item>
  </channel>
</rss>`

const detailHTML = `<html><body>
<div>
  <p>Institucija</p>
  <a href="/institucija/123">Upravna enota Ilirska Bistrica</a>
</div>
<p>Št. dokumenta</p>
<p>478-123/2026-2</p>
<p>Datum in število dni objave</p>
<p>24. 8. 2026 (objava do 8. 9. 2026)</p>
<p>Prodaja kmetijskega zemljišča k.o. Šembije parc. št. 123/4</p>
<a href="/.download/oglasna/datoteka?id=100">Priloga</a>
</body></html>`

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.FeedConfig{
		RSSURL:     srv.URL + "/rss",
		BaseURL:    srv.URL,
		UserAgent:  "landsync-test",
		MaxRetries: 1,
	})
}

func TestFetchListingsFiltersAgricultural(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "landsync-test", r.Header.Get("User-Agent"))
		w.Write([]byte(feedXML))
	}))

	offers, err := c.FetchListings(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 2, "non-agricultural notices are filtered out")

	assert.Equal(t, "100", offers[0].ID)
	assert.Equal(t, "Prodaja kmetijskega zemljišča - k.o. Šembije", offers[0].Title)
	assert.Equal(t, "101", offers[1].ID, "keyword match is case insensitive")
}

func TestFetchListingsRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(feedXML))
	}))
	t.Cleanup(srv.Close)

	c := New(config.FeedConfig{RSSURL: srv.URL, MaxRetries: 3})
	c.retry.InitialBackoff = 1 // keep the test fast

	offers, err := c.FetchListings(context.Background())
	require.NoError(t, err)
	assert.Len(t, offers, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchDetail(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailHTML))
	}))

	offer := model.Offer{ID: "100"}
	offer.DetailURL = c.baseURL + "/si/javne-objave?id=100"
	require.NoError(t, c.FetchDetail(context.Background(), &offer))

	assert.Equal(t, "Upravna enota Ilirska Bistrica", offer.Institution)
	assert.Equal(t, "Ilirska Bistrica", offer.ContextUnit)
	assert.Equal(t, "478-123/2026-2", offer.NoticeNumber)
	assert.Equal(t, "24. 8. 2026", offer.Published)
	assert.Equal(t, "8. 9. 2026", offer.ValidUntil)
	assert.Equal(t, c.baseURL+"/.download/oglasna/datoteka?id=100", offer.DocumentURL)
	assert.Contains(t, offer.RawText, "k.o. Šembije parc. št. 123/4")
	assert.NotContains(t, offer.RawText, "<p>")
}

func TestFetchDocument(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.download/oglasna/datoteka" {
			w.Write([]byte("%PDF-1.4 test"))
			return
		}
		http.NotFound(w, r)
	}))

	offers := []model.Offer{
		{ID: "100", DocumentURL: c.baseURL + "/.download/oglasna/datoteka?id=100"},
		{ID: "101"},
	}
	src := NewDocumentSource(c, offers)

	data, ref, err := src.FetchDocument(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 test"), data)
	assert.Equal(t, offers[0].DocumentURL, ref)

	// No attachment is a terminal miss.
	_, _, err = src.FetchDocument(context.Background(), "101")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))

	// Unknown offers too.
	_, _, err = src.FetchDocument(context.Background(), "999")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestFetchDocumentGone(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	src := NewDocumentSource(c, []model.Offer{
		{ID: "100", DocumentURL: c.baseURL + "/.download/oglasna/datoteka?id=100"},
	})

	_, _, err := src.FetchDocument(context.Background(), "100")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound), "expired documents surface as not found")
}

func TestExtractOfferID(t *testing.T) {
	assert.Equal(t, "100", extractOfferID("https://e-uprava.gov.si/si/javne-objave?id=100"))
	assert.Equal(t, "", extractOfferID("https://e-uprava.gov.si/si/javne-objave"))
}
