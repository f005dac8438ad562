package engines

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/fatih/color"
)

const (
	iqdbEndpoint = "https://iqdb.org/"
	iqdbBasicURL = "https://iqdb.org/?url="
)

var (
	iqdbSimilarity = regexp.MustCompile(`(\d+(?:\.\d+)?)%\s*similarity`)
	iqdbDimensions = regexp.MustCompile(`(\d+)\s*[×x]\s*(\d+)`)
)

// IqdbEngine scrapes the iqdb.org multi-service results page. iqdb has no
// JSON API, so matches are read from the HTML tables.
type IqdbEngine struct {
	*Basic
	UserAgent string
	endpoint  string
	client    *http.Client
	markdown  *md.Converter
}

// NewIqdbEngine creates an iqdb engine.
func NewIqdbEngine(timeout time.Duration) *IqdbEngine {
	return &IqdbEngine{
		Basic:    NewBasic("iqdb", Iqdb, color.FgMagenta, iqdbBasicURL),
		endpoint: iqdbEndpoint,
		client:   newHTTPClient(timeout),
		markdown: md.NewConverter("iqdb.org", true, nil),
	}
}

// Search fetches the results page and reports the most similar match.
func (q *IqdbEngine) Search(ctx context.Context, ref string) *SearchResult {
	if strings.TrimSpace(ref) == "" {
		return q.Baseline(ref)
	}

	r, err := q.search(ctx, ref)
	if err != nil {
		slog.Debug("iqdb search failed", "error", err)
		return q.fallback(ref, err)
	}
	return r
}

func (q *IqdbEngine) search(ctx context.Context, ref string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("url", ref)

	body, _, err := httpGet(ctx, q.client, q.Name(), q.endpoint+"?"+params.Encode(), "text/html", q.UserAgent)
	if err != nil {
		return nil, err
	}

	items, err := q.parse(body)
	if err != nil {
		return nil, &EngineError{Engine: q.Name(), Err: err, Code: ErrCodeInvalidResponse}
	}
	if len(items) == 0 {
		return nil, &EngineError{Engine: q.Name(), Err: errNoUsableResult, Code: ErrCodeEmpty}
	}
	sortBySimilarity(items)

	r := NewResult(q.Tag(), "")
	r.SetBest(items[0])
	r.AddExtendedResults(items...)
	return r, nil
}

// parse reads every match table on the page. The uploaded image's own
// table and tables without a link are skipped.
func (q *IqdbEngine) parse(body []byte) ([]ResultItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var items []ResultItem
	doc.Find("#pages > div table").Each(func(_ int, table *goquery.Selection) {
		header := strings.TrimSpace(table.Find("th").First().Text())
		if strings.EqualFold(header, "Your image") {
			return
		}
		if item, ok := q.parseMatch(table); ok {
			items = append(items, item)
		}
	})
	return items, nil
}

func (q *IqdbEngine) parseMatch(table *goquery.Selection) (ResultItem, bool) {
	link, ok := table.Find("td.image a").First().Attr("href")
	if !ok || strings.TrimSpace(link) == "" {
		return ResultItem{}, false
	}
	if strings.HasPrefix(link, "//") {
		link = "https:" + link
	}

	item := ResultItem{URL: link}
	if alt, ok := table.Find("td.image img").First().Attr("alt"); ok {
		item.Caption = strings.TrimSpace(alt)
	}

	table.Find("td").Each(func(_ int, cell *goquery.Selection) {
		if cell.HasClass("image") {
			return
		}
		text := strings.TrimSpace(cell.Text())
		if m := iqdbSimilarity.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				item.Similarity = floatPtr(v)
			}
			return
		}
		if m := iqdbDimensions.FindStringSubmatch(text); m != nil {
			w, errW := strconv.Atoi(m[1])
			h, errH := strconv.Atoi(m[2])
			if errW == nil && errH == nil {
				item.Width, item.Height = intPtr(w), intPtr(h)
			}
			return
		}
		if item.Source == "" {
			item.Source = q.sourceLabel(cell)
		}
	})

	return item, true
}

// sourceLabel renders the services cell as markdown, dropping the service
// icons, so linked mirrors stay readable in the terminal.
func (q *IqdbEngine) sourceLabel(cell *goquery.Selection) string {
	clone := cell.Clone()
	clone.Find("img").Remove()
	html, err := clone.Html()
	if err != nil {
		return strings.TrimSpace(cell.Text())
	}
	label, err := q.markdown.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(cell.Text())
	}
	return strings.Join(strings.Fields(label), " ")
}
