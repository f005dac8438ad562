package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/fatih/color"
)

const (
	sauceNaoEndpoint   = "https://saucenao.com/search.php"
	sauceNaoBasicURL   = "https://saucenao.com/search.php?url="
	sauceNaoAllIndexes = "999"
	sauceNaoJSONOutput = "2"

	// DefaultSauceNaoResults is the default result-count cap.
	DefaultSauceNaoResults = 16
)

var (
	sauceNaoKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

	errNoUsableResult = errors.New("no usable result")
)

// SauceNaoEngine queries the SauceNao API.
//
// The API also answers without a key; a key only raises the rate limits.
type SauceNaoEngine struct {
	*Basic
	APIKey     string
	NumResults int
	UserAgent  string
	endpoint   string
	client     *http.Client
}

// NewSauceNaoEngine creates a SauceNao engine. A non-blank key that is not
// a SauceNao key (40 hex characters) is a configuration error.
func NewSauceNaoEngine(apiKey string, numResults int, timeout time.Duration) (*SauceNaoEngine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey != "" && !sauceNaoKeyPattern.MatchString(apiKey) {
		return nil, fmt.Errorf("saucenao: %w: expected 40 hexadecimal characters", ErrInvalidAPIKey)
	}
	if numResults <= 0 {
		numResults = DefaultSauceNaoResults
	}
	return &SauceNaoEngine{
		Basic:      NewBasic("SauceNao", SauceNao, color.FgHiRed, sauceNaoBasicURL),
		APIKey:     apiKey,
		NumResults: numResults,
		endpoint:   sauceNaoEndpoint,
		client:     newHTTPClient(timeout),
	}, nil
}

// sauceNaoResponse is the envelope after header and data have been merged
// into one object per result.
type sauceNaoResponse struct {
	Results []sauceNaoResult `json:"results"`
}

type sauceNaoResult struct {
	Similarity flexFloat `json:"similarity"`
	Thumbnail  string    `json:"thumbnail"`
	IndexID    int       `json:"index_id"`
	IndexName  string    `json:"index_name"`
	ExtURLs    []string  `json:"ext_urls"`
	Title      string    `json:"title"`
	Source     string    `json:"source"`
	EngName    string    `json:"eng_name"`
	MemberName string    `json:"member_name"`
	Creator    any       `json:"creator"`

	// WebsiteTitle is derived from IndexID after decoding.
	WebsiteTitle string `json:"-"`
}

// sauceNaoRaw is the response as the backend sends it: every result is
// split into a "header" (similarity, index) and a "data" (urls, titles)
// object.
type sauceNaoRaw struct {
	Header struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"header"`
	Results []struct {
		Header map[string]json.RawMessage `json:"header"`
		Data   map[string]json.RawMessage `json:"data"`
	} `json:"results"`
}

// Search queries SauceNao and picks the most similar result with a URL.
func (s *SauceNaoEngine) Search(ctx context.Context, ref string) *SearchResult {
	if strings.TrimSpace(ref) == "" {
		return s.Baseline(ref)
	}

	r, err := s.search(ctx, ref)
	if err != nil {
		slog.Debug("saucenao search failed", "error", err)
		r = s.fallback(ref, err)
	}
	if s.APIKey != "" {
		r.AddDiagnostic("using API key")
	}
	return r
}

func (s *SauceNaoEngine) search(ctx context.Context, ref string) (*SearchResult, error) {
	results, err := s.query(ctx, ref)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	items := convertSauceNao(results)
	if len(items) == 0 {
		return nil, &EngineError{Engine: s.Name(), Err: errNoUsableResult, Code: ErrCodeEmpty}
	}
	sortBySimilarity(items)

	r := NewResult(s.Tag(), "")
	r.SetBest(items[0])
	r.AddExtendedResults(items...)
	return r, nil
}

func (s *SauceNaoEngine) query(ctx context.Context, ref string) ([]sauceNaoResult, error) {
	params := url.Values{}
	params.Set("db", sauceNaoAllIndexes)
	params.Set("output_type", sauceNaoJSONOutput)
	params.Set("numres", strconv.Itoa(s.NumResults))
	if s.APIKey != "" {
		params.Set("api_key", s.APIKey)
	}
	params.Set("url", ref)

	body, _, err := httpGet(ctx, s.client, s.Name(), s.endpoint+"?"+params.Encode(), "application/json", s.UserAgent)
	if err != nil {
		return nil, err
	}

	results, err := parseSauceNao(body)
	if err != nil {
		return nil, &EngineError{Engine: s.Name(), Err: err, Code: ErrCodeInvalidResponse}
	}
	return results, nil
}

// parseSauceNao flattens every result's header and data objects into a
// single record before decoding the envelope.
func parseSauceNao(body []byte) ([]sauceNaoResult, error) {
	var raw sauceNaoRaw
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %v", err)
	}
	if raw.Header.Status != 0 {
		msg := strings.TrimSpace(stripTags(raw.Header.Message))
		if msg == "" {
			msg = "no message"
		}
		return nil, fmt.Errorf("status %d: %s", raw.Header.Status, msg)
	}

	merged := make([]map[string]json.RawMessage, len(raw.Results))
	for i, res := range raw.Results {
		flat := make(map[string]json.RawMessage, len(res.Header)+len(res.Data))
		for k, v := range res.Header {
			flat[k] = v
		}
		for k, v := range res.Data {
			flat[k] = v
		}
		merged[i] = flat
	}

	envelope, err := json.Marshal(map[string]any{"results": merged})
	if err != nil {
		return nil, fmt.Errorf("failed to merge results: %v", err)
	}

	var resp sauceNaoResponse
	dec := json.NewDecoder(bytes.NewReader(envelope))
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %v", err)
	}

	for i := range resp.Results {
		resp.Results[i].WebsiteTitle = sauceNaoIndexLabel(resp.Results[i].IndexID)
	}
	return resp.Results, nil
}

func convertSauceNao(results []sauceNaoResult) []ResultItem {
	var items []ResultItem
	for _, sn := range results {
		link := firstNonEmpty(sn.ExtURLs...)
		if link == "" {
			continue
		}
		caption := firstNonEmpty(sn.Title, sn.EngName, sn.Source, sn.WebsiteTitle)
		items = append(items, ResultItem{
			URL:        link,
			Similarity: floatPtr(float64(sn.Similarity)),
			Caption:    caption,
			Source:     sn.WebsiteTitle,
		})
	}
	return items
}

// flexFloat accepts both JSON numbers and numeric strings; SauceNao sends
// similarity as "93.21".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid similarity %s: %v", b, err)
	}
	*f = flexFloat(v)
	return nil
}

var sauceNaoIndexes = map[int]string{
	0:  "HMagazines",
	2:  "HGameCG",
	3:  "DoujinshiDB",
	5:  "PixivImages",
	6:  "PixivHistorical",
	8:  "NicoNicoSeiga",
	9:  "Danbooru",
	10: "DrawrImages",
	11: "NijieImages",
	12: "Yandere",
	15: "Shutterstock",
	16: "FAKKU",
	18: "HMisc",
	19: "TwoDMarket",
	20: "MediBang",
	21: "Anime",
	22: "HAnime",
	23: "Movies",
	24: "Shows",
	25: "Gelbooru",
	26: "Konachan",
	27: "SankakuChannel",
	28: "AnimePicturesNet",
	29: "E621Net",
	30: "IdolComplex",
	31: "BcyNetIllust",
	32: "BcyNetCosplay",
	33: "PortalGraphicsNet",
	34: "DeviantArt",
	35: "PawooNet",
	36: "Madokami",
	37: "MangaDex",
	38: "EHentai",
	39: "ArtStation",
	40: "FurAffinity",
	41: "Twitter",
	42: "FurryNetwork",
	43: "Kemono",
	44: "Skeb",
}

func sauceNaoIndexLabel(id int) string {
	name, ok := sauceNaoIndexes[id]
	if !ok {
		return fmt.Sprintf("Index %d", id)
	}
	return splitPascalCase(name)
}

// splitPascalCase inserts spaces at word boundaries: "HGameCG" becomes
// "H Game CG" and "E621Net" becomes "E621 Net".
func splitPascalCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
