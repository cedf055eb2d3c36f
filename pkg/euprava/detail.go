package euprava

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/agrozem/landsync/internal/model"
)

// The detail pages are server-rendered with a stable layout: metadata
// labels sit in <p> elements immediately before their values, and the
// attachment link path is fixed.
var (
	institutionRe  = regexp.MustCompile(`(?s)<p[^>]*>\s*Institucija\s*</p>.*?<a[^>]*>([^<]+)</a>`)
	noticeNumberRe = regexp.MustCompile(`(?s)<p[^>]*>\s*Št\. dokumenta\s*</p>\s*<p[^>]*>([^<]+)</p>`)
	datesRe        = regexp.MustCompile(`(?s)Datum in število dni objave\s*</p>\s*<p[^>]*>([^<]+)</p>`)
	publishedRe    = regexp.MustCompile(`(\d+\.\s*\d+\.\s*\d{4})`)
	validUntilRe   = regexp.MustCompile(`objava do\s+(\d+\.\s*\d+\.\s*\d{4})`)
	documentURLRe  = regexp.MustCompile(`href="([^"]*/\.download/oglasna/datoteka[^"]*)"`)

	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// FetchDetail loads an offer's detail page and fills in its metadata and
// raw page text. The offer is updated in place; only listing fields set by
// the feed are left untouched.
func (c *Client) FetchDetail(ctx context.Context, offer *model.Offer) error {
	if offer.DetailURL == "" {
		return eris.Errorf("euprava: offer %s has no detail url", offer.ID)
	}

	body, err := c.get(ctx, offer.DetailURL)
	if err != nil {
		return eris.Wrapf(err, "euprava: detail %s", offer.ID)
	}
	page := string(body)

	if m := institutionRe.FindStringSubmatch(page); m != nil {
		offer.Institution = strings.TrimSpace(html.UnescapeString(m[1]))
	}
	if m := noticeNumberRe.FindStringSubmatch(page); m != nil {
		offer.NoticeNumber = strings.TrimSpace(html.UnescapeString(m[1]))
	}
	if m := datesRe.FindStringSubmatch(page); m != nil {
		dates := m[1]
		if pm := publishedRe.FindStringSubmatch(dates); pm != nil {
			offer.Published = strings.TrimSpace(pm[1])
		}
		if vm := validUntilRe.FindStringSubmatch(dates); vm != nil {
			offer.ValidUntil = strings.TrimSpace(vm[1])
		}
	}
	if m := documentURLRe.FindStringSubmatch(page); m != nil {
		u := html.UnescapeString(m[1])
		if !strings.HasPrefix(u, "http") {
			u = c.baseURL + u
		}
		offer.DocumentURL = u
	}

	offer.RawText = pageText(page)
	offer.ContextUnit = contextUnitFrom(offer.Institution)
	return nil
}

// pageText strips markup so the extraction strategies see the same plain
// text a reader would.
func pageText(page string) string {
	text := tagRe.ReplaceAllString(page, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// contextUnitFrom derives the administrative-unit label from the issuing
// institution name. Offers are published by administrative units named
// "Upravna enota X"; X is the coarse locality fallback.
func contextUnitFrom(institution string) string {
	const prefix = "Upravna enota "
	if strings.HasPrefix(institution, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(institution, prefix))
	}
	return ""
}
