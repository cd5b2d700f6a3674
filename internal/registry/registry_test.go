package registry

import (
	"errors"
	"strings"
	"testing"

	"terabox-extractor/pkg/models"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry("")

	if registry == nil {
		t.Fatal("Expected registry to be created, got nil")
	}

	if got := registry.MustEndpointURL(EndpointFileMetas, ""); !strings.HasPrefix(got, DefaultAPIBase+"/") {
		t.Errorf("Expected endpoints on %s, got %s", DefaultAPIBase, got)
	}

	custom := NewRegistry("http://127.0.0.1:9999/")
	if got := custom.MustEndpointURL(EndpointFileMetas, ""); !strings.HasPrefix(got, "http://127.0.0.1:9999/") || strings.Contains(got, "9999//") {
		t.Errorf("Expected trailing slash to be trimmed, got %s", got)
	}
}

func TestValidateURL(t *testing.T) {
	registry := NewRegistry("")

	if err := registry.ValidateURL("https://1024tera.com/s/1abc"); err != nil {
		t.Errorf("Expected known host to validate, got %v", err)
	}

	for _, rawURL := range []string{"https://example.com/s/1abc", "::not a url", ""} {
		err := registry.ValidateURL(rawURL)
		if !errors.Is(err, models.ErrInvalidURL) {
			t.Errorf("%q: expected ErrInvalidURL, got %v", rawURL, err)
		}
		if got := models.UserMessage(err); got != models.MsgInvalidURL {
			t.Errorf("%q: expected message %q, got %q", rawURL, models.MsgInvalidURL, got)
		}
	}
}

func TestIsKnownHost(t *testing.T) {
	registry := NewRegistry("")

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://www.terabox.com/s/1abc", true},
		{"https://terabox.com/s/1abc", true},
		{"https://1024tera.com/s/1abc", true},
		{"https://www.teraboxlink.com/s/1abc", true},
		{"https://nephobox.com/sharing/link?surl=abc", true},
		{"https://TERABOX.APP/s/1abc", true},
		{"https://www.gibibox.com/wap/s/1abc", true},
		// keyword fallback for unlisted mirrors
		{"https://new.dubox-mirror.net/s/1abc", true},
		{"https://example-tera.org/s/1abc", true},
		{"https://dropbox.com/s/1abc", true},
		// unrelated hosts, even with a matching path
		{"https://example.com/s/1abc", false},
		{"https://youtube.com/watch?surl=abc", false},
		{"not a url at all", false},
		{"https://%zz/s/1abc", false},
		{"", false},
	}

	for _, test := range tests {
		if got := registry.IsKnownHost(test.url); got != test.expected {
			t.Errorf("IsKnownHost(%q): expected %v, got %v", test.url, test.expected, got)
		}
	}
}

func TestExtractShareReference(t *testing.T) {
	registry := NewRegistry("")

	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.terabox.com/s/1AbC-12_x", "AbC-12_x"},
		{"https://www.terabox.com/s/AbC12", "AbC12"},
		{"https://terabox.com/sharing/link?surl=1Xyz", "Xyz"},
		{"https://terabox.com/sharing/link?surl=Xyz", "Xyz"},
		{"https://terabox.com/share?foo=bar&surl=1Q_w", "Q_w"},
		{"https://m.terabox.com/wap/s/1Mobile", "Mobile"},
		{"https://www.terabox.com/web/share/link?surl=1WebTok", "WebTok"},
		{"https://1024tera.com/s/1abc?pwd=xyz", "abc"},
	}

	for _, test := range tests {
		ref, err := registry.ExtractShareReference(test.url)
		if err != nil {
			t.Errorf("Expected no error for %s, got %v", test.url, err)
			continue
		}
		if ref.Surl != test.expected {
			t.Errorf("Expected surl %s for %s, got %s", test.expected, test.url, ref.Surl)
		}
		if ref.NormalizedPath != "/s/1"+test.expected {
			t.Errorf("Expected normalized path /s/1%s, got %s", test.expected, ref.NormalizedPath)
		}
	}
}

func TestExtractShareReferenceMissing(t *testing.T) {
	registry := NewRegistry("")

	for _, u := range []string{
		"https://www.terabox.com/",
		"https://www.terabox.com/main?category=all",
		"https://www.terabox.com/s/",
	} {
		ref, err := registry.ExtractShareReference(u)
		if err == nil {
			t.Errorf("Expected error for %s, got %+v", u, ref)
			continue
		}
		if !errors.Is(err, models.ErrNoShareToken) {
			t.Errorf("Expected ErrNoShareToken for %s, got %v", u, err)
		}
	}
}

func TestBuildEndpointURL(t *testing.T) {
	registry := NewRegistry("")

	tests := []struct {
		name     string
		surl     string
		expected string
	}{
		{EndpointShortURLInfo, "abc", "https://www.terabox.com/api/shorturlinfo?surl=1abc"},
		{EndpointShareWXList, "abc", "https://www.terabox.com/share/wxlist?surl=1abc"},
		{EndpointShortURLInfo, "", "https://www.terabox.com/api/shorturlinfo"},
		{EndpointShareList, "abc", "https://www.terabox.com/share/list"},
		{EndpointShareDownload, "", "https://www.terabox.com/share/download"},
		{EndpointShareStreaming, "", "https://www.terabox.com/share/streaming"},
		{EndpointFileMetas, "abc", "https://www.terabox.com/api/filemetas"},
		{EndpointVideoPlay, "", "https://www.terabox.com/share/videoPlay"},
	}

	for _, test := range tests {
		got, err := registry.BuildEndpointURL(test.name, test.surl)
		if err != nil {
			t.Errorf("Expected no error for %s, got %v", test.name, err)
			continue
		}
		if got != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, got)
		}
	}
}

func TestBuildEndpointURLUnknown(t *testing.T) {
	registry := NewRegistry("")

	_, err := registry.BuildEndpointURL("does_not_exist", "abc")
	if !errors.Is(err, models.ErrUnknownEndpoint) {
		t.Errorf("Expected ErrUnknownEndpoint, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected MustEndpointURL to panic on unknown endpoint")
		}
	}()
	registry.MustEndpointURL("does_not_exist", "")
}

func TestShareURL(t *testing.T) {
	registry := NewRegistry("http://127.0.0.1:8080")
	ref := &models.ShareReference{Surl: "abc", NormalizedPath: "/s/1abc"}

	if got := registry.ShareURL(ref); got != "http://127.0.0.1:8080/s/1abc" {
		t.Errorf("Unexpected share URL %s", got)
	}
}

func TestDomainsReturnsCopy(t *testing.T) {
	list := Domains()
	list[0] = "mutated.example"

	if Domains()[0] == "mutated.example" {
		t.Error("Expected Domains to return a copy")
	}

	for _, d := range PrimaryDomains() {
		if strings.HasPrefix(d, "www.") {
			t.Errorf("Expected no www aliases, got %s", d)
		}
	}
}
