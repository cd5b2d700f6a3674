package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Platform represents the supported platforms
type Platform string

const (
	PlatformTerabox Platform = "terabox"
)

// VideoCategory is the backend category code for video files
const VideoCategory = 1

// ShareReference is the normalized identity of a share link
type ShareReference struct {
	Surl           string `json:"surl"`
	NormalizedPath string `json:"normalized_path"`
}

// SessionTokens holds the backend-issued values scraped from one share page.
// Values are only valid for the resolution attempt that fetched them.
type SessionTokens struct {
	ShareID   string
	UK        string
	Sign      string
	Timestamp string
	JSToken   string
	BDSToken  string
	FileList  []FileRecord
}

// HasShareID reports whether the page exposed a share identifier
func (t *SessionTokens) HasShareID() bool {
	return t != nil && t.ShareID != ""
}

// Thumbs holds the thumbnail variants of a file record
type Thumbs struct {
	URL1 string `json:"url1"`
	URL2 string `json:"url2"`
	URL3 string `json:"url3"`
}

// UnmarshalJSON accepts an object. Any other shape, such as the empty array
// some listings send for files without previews, leaves the thumbs empty.
func (t *Thumbs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*t = Thumbs{}
		return nil
	}
	type plain Thumbs
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = Thumbs(v)
	return nil
}

// FileRecord is one entry of a backend file listing
type FileRecord struct {
	Filename  string
	Size      int64
	FsID      string
	Category  int
	MimeType  string
	Thumbnail string
	DLink     string
}

// UnmarshalJSON decodes a listing entry. The backend is inconsistent about
// field names and encodes numbers as either JSON numbers or strings.
func (f *FileRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ServerFilename string     `json:"server_filename"`
		Filename       string     `json:"filename"`
		Size           FlexInt64  `json:"size"`
		FsID           FlexString `json:"fs_id"`
		Category       FlexInt64  `json:"category"`
		MimeType       string     `json:"mime_type"`
		Thumbs         *Thumbs    `json:"thumbs"`
		DLink          string     `json:"dlink"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.Filename = raw.ServerFilename
	if f.Filename == "" {
		f.Filename = raw.Filename
	}
	f.Size = int64(raw.Size)
	f.FsID = string(raw.FsID)
	f.Category = int(raw.Category)
	f.MimeType = raw.MimeType
	if raw.Thumbs != nil {
		f.Thumbnail = raw.Thumbs.URL3
	}
	f.DLink = raw.DLink
	return nil
}

// DecodeFileRecords decodes each listing entry on its own, so one malformed
// entry does not hide the rest. Entries that fail to decode are counted in skipped.
func DecodeFileRecords(raws []json.RawMessage) (files []FileRecord, skipped int) {
	files = make([]FileRecord, 0, len(raws))
	for _, raw := range raws {
		var file FileRecord
		if err := json.Unmarshal(raw, &file); err != nil {
			skipped++
			continue
		}
		files = append(files, file)
	}
	return files, skipped
}

// VideoResult is the outcome of one resolution call
type VideoResult struct {
	Success     bool   `json:"success"`
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	SizeStr     string `json:"size_str"`
	Thumbnail   string `json:"thumbnail"`
	StreamURL   string `json:"stream_url"`
	DownloadURL string `json:"download_url"`
	FsID        string `json:"fs_id"`
	ShareID     string `json:"share_id"`
	UK          string `json:"uk"`
	Surl        string `json:"surl"`
	Error       string `json:"error,omitempty"`
}

// Playable reports whether the result carries a usable stream
func (r *VideoResult) Playable() bool {
	return r != nil && r.Success && r.StreamURL != ""
}

// FailedResult builds a failure result carrying only the share token
func FailedResult(surl, message string) *VideoResult {
	return &VideoResult{
		Surl:  surl,
		Error: message,
	}
}

// FlexString decodes a JSON string or number into its textual form
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// FlexInt64 decodes a JSON number or numeric string. Non-numeric strings decode to zero.
type FlexInt64 int64

// UnmarshalJSON implements json.Unmarshaler
func (n *FlexInt64) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	text := strings.TrimSpace(string(s))
	if text == "" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		*n = FlexInt64(v)
		return nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		*n = FlexInt64(f)
		return nil
	}
	*n = 0
	return nil
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Host         string `mapstructure:"host" yaml:"host"`
		Port         int    `mapstructure:"port" yaml:"port"`
		ReadTimeout  int    `mapstructure:"read_timeout" yaml:"read_timeout"`
		WriteTimeout int    `mapstructure:"write_timeout" yaml:"write_timeout"`
	} `mapstructure:"server" yaml:"server"`

	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
		Output string `mapstructure:"output" yaml:"output"`
	} `mapstructure:"log" yaml:"log"`

	HTTP struct {
		Timeout         int    `mapstructure:"timeout" yaml:"timeout"`
		MaxIdleConns    int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
		MaxConns        int    `mapstructure:"max_conns" yaml:"max_conns"`
		MaxConnsPerHost int    `mapstructure:"max_conns_per_host" yaml:"max_conns_per_host"`
		InsecureTLS     bool   `mapstructure:"insecure_tls" yaml:"insecure_tls"`
		ProxyURL        string `mapstructure:"proxy_url" yaml:"proxy_url"`
	} `mapstructure:"http" yaml:"http"`

	Resolver struct {
		Timeout int    `mapstructure:"timeout" yaml:"timeout"`
		APIBase string `mapstructure:"api_base" yaml:"api_base"`
	} `mapstructure:"resolver" yaml:"resolver"`

	Bot struct {
		Token       string `mapstructure:"token" yaml:"token"`
		WebhookURL  string `mapstructure:"webhook_url" yaml:"webhook_url"`
		APIBase     string `mapstructure:"api_base" yaml:"api_base"`
		PollTimeout int    `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	} `mapstructure:"bot" yaml:"bot"`

	RateLimit struct {
		Enabled           bool     `mapstructure:"enabled" yaml:"enabled"`
		RequestsPerSecond int      `mapstructure:"requests_per_second" yaml:"requests_per_second"`
		Burst             int      `mapstructure:"burst" yaml:"burst"`
		MaxConcurrent     int      `mapstructure:"max_concurrent" yaml:"max_concurrent"`
		WhitelistedIPs    []string `mapstructure:"whitelisted_ips" yaml:"whitelisted_ips"`
	} `mapstructure:"rate_limit" yaml:"rate_limit"`

	Batch struct {
		MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	} `mapstructure:"batch" yaml:"batch"`
}
