package api

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// elements whose content must never reach the screen
const strippedElements = "script, style, iframe, object, embed, noscript, template"

// SanitizeOverview reduces remote overview markup to plain text. Line breaks
// and block boundaries become newlines; all tags and attributes are dropped.
func SanitizeOverview(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", err
	}

	doc.Find(strippedElements).Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return normalizeText(stripControl(doc.Text(), true)), nil
}

// SanitizeText makes a remote single-line value safe to print on a
// terminal: control characters (escape sequences included) are dropped and
// whitespace is collapsed.
func SanitizeText(s string) string {
	return strings.Join(strings.Fields(stripControl(s, false)), " ")
}

// stripControl drops every control rune. Tabs become spaces; newlines are
// kept only when keepNewlines is set.
func stripControl(s string, keepNewlines bool) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' && keepNewlines:
			return r
		case r == '\t' || r == '\n':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// SanitizeURL keeps only absolute http(s) URLs
func SanitizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
