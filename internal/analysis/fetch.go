package analysis

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"earnings-tracker/internal/apiclient"
	"earnings-tracker/internal/errors"
)

// DefaultMinContentChars is the shortest extracted text worth analyzing.
const DefaultMinContentChars = 500

// ReportFetcher downloads a report and returns its readable text.
type ReportFetcher interface {
	Fetch(ctx context.Context, reportURL string) (string, error)
}

// HTMLFetcher fetches HTML press releases. PDFs are rejected.
type HTMLFetcher struct {
	opts     []apiclient.Option
	minChars int
	maxChars int
}

// NewHTMLFetcher creates a fetcher. maxChars truncates the extracted text;
// zero keeps everything.
func NewHTMLFetcher(minChars, maxChars int, opts ...apiclient.Option) *HTMLFetcher {
	return &HTMLFetcher{opts: opts, minChars: minChars, maxChars: maxChars}
}

// Fetch implements ReportFetcher.
func (f *HTMLFetcher) Fetch(ctx context.Context, reportURL string) (string, error) {
	u, err := url.Parse(reportURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", errors.Wrapf(errors.ErrInvalidInput, "report url %q", reportURL)
	}
	if isPDFPath(u.Path) {
		return "", errors.Wrapf(errors.ErrUnsupportedFormat, "pdf report %s", reportURL)
	}

	opts := append([]apiclient.Option{apiclient.WithAccept(apiclient.AcceptHTML)}, f.opts...)
	body, err := apiclient.New(reportURL, opts...).GetRaw(ctx, "", nil)
	if err != nil {
		return "", err
	}
	if http.DetectContentType(body) == "application/pdf" {
		return "", errors.Wrapf(errors.ErrUnsupportedFormat, "pdf report %s", reportURL)
	}

	text, err := ExtractText(body)
	if err != nil {
		return "", err
	}
	n := utf8.RuneCountInString(text)
	if n < f.minChars {
		return "", errors.Wrapf(errors.ErrContentTooShort, "%d characters from %s", n, reportURL)
	}
	return truncateRunes(text, f.maxChars), nil
}

// truncateRunes keeps the first limit characters of s. Zero keeps everything.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}

func isPDFPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".pdf")
}

// ExtractText returns the visible text of an HTML document with scripts and
// styles removed and whitespace collapsed.
func ExtractText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", errors.Wrap(err, "parsing report html")
	}
	doc.Find("script, style, noscript, template").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var parts []string
	collectText(root, &parts)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " "), nil
}

// collectText gathers text nodes separately so adjacent block elements do not
// run their words together.
func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			*parts = append(*parts, s.Text())
			return
		}
		collectText(s, parts)
	})
}
