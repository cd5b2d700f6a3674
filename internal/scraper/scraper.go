package scraper

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"terabox-extractor/pkg/models"
)

// tokenPatterns lists, per token, the shapes it is embedded in.
// JSON-style assignments come first, loose key=value forms second.
var tokenPatterns = map[string][]*regexp.Regexp{
	"shareid": {
		regexp.MustCompile(`"shareid"\s*:\s*(\d+)`),
		regexp.MustCompile(`shareid["\s:=]+(\d+)`),
	},
	"uk": {
		regexp.MustCompile(`"uk"\s*:\s*(\d+)`),
		regexp.MustCompile(`uk["\s:=]+(\d+)`),
	},
	"sign": {
		regexp.MustCompile(`"sign"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`sign["\s:=]+'([^']+)'`),
	},
	"timestamp": {
		regexp.MustCompile(`"timestamp"\s*:\s*(\d+)`),
		regexp.MustCompile(`timestamp["\s:=]+(\d+)`),
	},
	"jsToken": {
		regexp.MustCompile(`"jsToken"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`jsToken["\s:=]+'([^']+)'`),
	},
	"bdstoken": {
		regexp.MustCompile(`"bdstoken"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`bdstoken["\s:=]+'([^']+)'`),
	},
}

var fileListPattern = regexp.MustCompile(`(?s)"list"\s*:\s*(\[.*?\])\s*[,}]`)

// Parse extracts the session tokens embedded in a share page.
// It never fails: tokens that cannot be found are left empty.
func Parse(html string) *models.SessionTokens {
	tokens := &models.SessionTokens{
		ShareID:   findToken(html, "shareid"),
		UK:        findToken(html, "uk"),
		Sign:      findToken(html, "sign"),
		Timestamp: findToken(html, "timestamp"),
		JSToken:   findToken(html, "jsToken"),
		BDSToken:  findToken(html, "bdstoken"),
	}

	tokens.FileList = findFileList(html)

	return tokens
}

// PageTitle returns the og:title of a page, falling back to <title>
func PageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}

	return strings.TrimSpace(doc.Find("title").First().Text())
}

func findToken(html, key string) string {
	for _, pattern := range tokenPatterns[key] {
		if matches := pattern.FindStringSubmatch(html); len(matches) > 1 {
			return matches[1]
		}
	}
	return ""
}

// findFileList looks for an inline file listing, script bodies first
func findFileList(html string) []models.FileRecord {
	for _, source := range scriptBodies(html) {
		if files := decodeFileList(source); files != nil {
			return files
		}
	}
	return decodeFileList(html)
}

func scriptBodies(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var bodies []string
	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		if text := s.Text(); strings.Contains(text, `"list"`) {
			bodies = append(bodies, text)
		}
	})
	return bodies
}

func decodeFileList(source string) []models.FileRecord {
	for _, matches := range fileListPattern.FindAllStringSubmatch(source, -1) {
		var raws []json.RawMessage
		if err := json.Unmarshal([]byte(matches[1]), &raws); err != nil {
			continue
		}
		files, _ := models.DecodeFileRecords(raws)
		return files
	}
	return nil
}
