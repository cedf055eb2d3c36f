package euprava

import (
	"context"
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/model"
	"github.com/agrozem/landsync/internal/resilience"
)

// agriKeyword filters the board down to agricultural land offers. The feed
// carries every public notice; only titles mentioning agricultural land
// are ours.
const agriKeyword = "kmetijsko"

var offerIDRe = regexp.MustCompile(`id=(\d+)`)

type rssFeed struct {
	XMLName xml.Name  `xml:"rss"`
	Items   []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

// FetchListings pulls the RSS feed and returns the agricultural land
// offers on the board. The feed is a bulk load, so transient failures are
// retried with backoff.
func (c *Client) FetchListings(ctx context.Context) ([]model.Offer, error) {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.rssURL)
	})
	if err != nil {
		return nil, eris.Wrap(err, "euprava: fetch feed")
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, eris.Wrap(err, "euprava: parse feed")
	}

	var offers []model.Offer
	for _, item := range feed.Items {
		if !strings.Contains(strings.ToLower(item.Title), agriKeyword) {
			continue
		}
		id := extractOfferID(item.Link)
		if id == "" {
			zap.L().Warn("euprava: listing without offer id", zap.String("link", item.Link))
			continue
		}
		offers = append(offers, model.Offer{
			ID:        id,
			Title:     strings.TrimSpace(item.Title),
			Published: item.PubDate,
			DetailURL: item.Link,
		})
	}

	zap.L().Info("euprava: feed fetched",
		zap.Int("items", len(feed.Items)),
		zap.Int("agricultural", len(offers)),
	)
	return offers, nil
}

func extractOfferID(link string) string {
	m := offerIDRe.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}
