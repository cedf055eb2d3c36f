package euprava

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/agrozem/landsync/internal/model"
)

// DocumentSource adapts the client to the enrichment pipeline: it resolves
// offer IDs to their attachment URLs and fetches the PDF bytes. Fetches
// are not retried here; a failed item stays unprocessed and is picked up
// by the next run.
type DocumentSource struct {
	client *Client
	urls   map[string]string
}

// NewDocumentSource indexes the offers' document URLs for per-item fetch.
func NewDocumentSource(c *Client, offers []model.Offer) *DocumentSource {
	urls := make(map[string]string, len(offers))
	for _, o := range offers {
		if o.DocumentURL != "" {
			urls[o.ID] = o.DocumentURL
		}
	}
	return &DocumentSource{client: c, urls: urls}
}

// FetchDocument returns the raw PDF for one offer. An offer with no
// attachment, or one the board no longer serves, yields ErrNotFound.
func (s *DocumentSource) FetchDocument(ctx context.Context, offerID string) ([]byte, string, error) {
	url, ok := s.urls[offerID]
	if !ok {
		return nil, "", eris.Wrapf(ErrNotFound, "euprava: offer %s has no document", offerID)
	}

	data, err := s.client.get(ctx, url)
	if err != nil {
		return nil, "", eris.Wrapf(err, "euprava: document for offer %s", offerID)
	}
	return data, url, nil
}
