package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"terabox-extractor/pkg/models"
)

// DefaultAPIBase is the canonical API host that answers for every mirror
const DefaultAPIBase = "https://www.terabox.com"

// Endpoint names understood by BuildEndpointURL
const (
	EndpointShortURLInfo   = "shorturlinfo"
	EndpointShareList      = "share_list"
	EndpointShareDownload  = "share_download"
	EndpointShareStreaming = "share_streaming"
	EndpointShareWXList    = "share_wxlist"
	EndpointFileMetas      = "filemetas"
	EndpointVideoPlay      = "video_play"
)

var domains = []string{
	// Primary
	"terabox.com",
	"www.terabox.com",
	"teraboxapp.com",
	"www.teraboxapp.com",

	// Redirect hosts
	"1024tera.com",
	"www.1024tera.com",
	"teraboxlink.com",
	"www.teraboxlink.com",
	"teraboxshare.com",
	"www.teraboxshare.com",
	"teraboxurl.com",
	"www.teraboxurl.com",

	// Mirrors
	"4funbox.com",
	"www.4funbox.com",
	"mirrobox.com",
	"www.mirrobox.com",
	"nephobox.com",
	"www.nephobox.com",
	"momerybox.com",
	"www.momerybox.com",
	"tibibox.com",
	"www.tibibox.com",
	"freeterabox.com",
	"www.freeterabox.com",
	"1024terabox.com",
	"www.1024terabox.com",
	"gibibox.com",
	"www.gibibox.com",
	"terabox.fun",
	"www.terabox.fun",
	"terabox.co",
	"www.terabox.co",
	"terabox.app",
	"www.terabox.app",
}

// Substrings that mark a host as a probable mirror even when it is not listed.
// This over-matches on purpose so that new mirrors keep working.
var brandKeywords = []string{"terabox", "tera", "box", "dubox"}

var endpoints = map[string]string{
	EndpointShortURLInfo:   "/api/shorturlinfo",
	EndpointShareList:      "/share/list",
	EndpointShareDownload:  "/share/download",
	EndpointShareStreaming: "/share/streaming",
	EndpointShareWXList:    "/share/wxlist",
	EndpointFileMetas:      "/api/filemetas",
	EndpointVideoPlay:      "/share/videoPlay",
}

// Endpoints that carry the share token in their query string
var surlInQuery = map[string]bool{
	EndpointShortURLInfo: true,
	EndpointShareWXList:  true,
}

// Share token shapes, tried in order. The optional leading 1 is not part of the token.
var sharePatterns = []*regexp.Regexp{
	regexp.MustCompile(`/s/1?([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`[?&]surl=1?([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/sharing/link\?surl=1?([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/wap/s/1?([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`/web/share/link\?surl=1?([a-zA-Z0-9_-]+)`),
}

// Registry knows the platform's hosts and endpoint table
type Registry struct {
	apiBase string
	domains map[string]bool
}

// NewRegistry creates a registry targeting apiBase. An empty apiBase uses DefaultAPIBase.
func NewRegistry(apiBase string) *Registry {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	known := make(map[string]bool, len(domains))
	for _, d := range domains {
		known[stripAlias(d)] = true
	}

	return &Registry{
		apiBase: strings.TrimRight(apiBase, "/"),
		domains: known,
	}
}

// IsKnownHost reports whether rawURL points at a TeraBox host or a probable mirror.
// Malformed URLs are simply not known.
func (r *Registry) IsKnownHost(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}

	host := stripAlias(strings.ToLower(parsed.Host))
	if host == "" {
		return false
	}

	if r.domains[host] {
		return true
	}

	for _, keyword := range brandKeywords {
		if strings.Contains(host, keyword) {
			return true
		}
	}

	return false
}

// ValidateURL returns an error wrapping models.ErrInvalidURL when rawURL is
// not on a known host
func (r *Registry) ValidateURL(rawURL string) error {
	if !r.IsKnownHost(rawURL) {
		return fmt.Errorf("error validating %q: %w", rawURL, models.ErrInvalidURL)
	}
	return nil
}

// ExtractShareReference finds the share token in rawURL
func (r *Registry) ExtractShareReference(rawURL string) (*models.ShareReference, error) {
	for _, pattern := range sharePatterns {
		matches := pattern.FindStringSubmatch(rawURL)
		if len(matches) < 2 {
			continue
		}

		surl := matches[1]
		return &models.ShareReference{
			Surl:           surl,
			NormalizedPath: "/s/1" + surl,
		}, nil
	}

	return nil, fmt.Errorf("error extracting share token from %q: %w", rawURL, models.ErrNoShareToken)
}

// BuildEndpointURL returns the absolute URL of a named endpoint.
// For shorturlinfo and share_wxlist a non-empty surl is put in the query string.
func (r *Registry) BuildEndpointURL(name, surl string) (string, error) {
	path, ok := endpoints[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrUnknownEndpoint, name)
	}

	endpointURL := r.apiBase + path
	if surl != "" && surlInQuery[name] {
		endpointURL += "?surl=1" + url.QueryEscape(surl)
	}

	return endpointURL, nil
}

// MustEndpointURL is BuildEndpointURL for names fixed at compile time.
// It panics on an unknown name.
func (r *Registry) MustEndpointURL(name, surl string) string {
	endpointURL, err := r.BuildEndpointURL(name, surl)
	if err != nil {
		panic(err)
	}
	return endpointURL
}

// ShareURL returns the human-facing share page for ref on the API host
func (r *Registry) ShareURL(ref *models.ShareReference) string {
	return r.apiBase + ref.NormalizedPath
}

// Domains returns a copy of the known host list
func Domains() []string {
	result := make([]string, len(domains))
	copy(result, domains)
	return result
}

// PrimaryDomains returns the known hosts without their www aliases
func PrimaryDomains() []string {
	var result []string
	for _, d := range domains {
		if !strings.HasPrefix(d, "www.") {
			result = append(result, d)
		}
	}
	return result
}

func stripAlias(host string) string {
	return strings.TrimPrefix(host, "www.")
}
