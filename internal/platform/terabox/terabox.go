package terabox

import (
	"encoding/json"
	"errors"
	"net/url"

	"github.com/rs/zerolog"

	"terabox-extractor/internal/registry"
	"terabox-extractor/internal/selector"
	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

const (
	appID   = "250528"
	channel = "chunlei"

	unknownTitle = "Unknown"
)

var (
	errEmptyList   = errors.New("empty file list")
	errNoVideo     = errors.New("no video file in listing")
	errNoDLink     = errors.New("no dlink in response")
	errNoShareID   = errors.New("could not extract shareid from page")
	errNoStreamURL = errors.New("no stream url from any endpoint")
)

// extractor holds what every strategy shares
type extractor struct {
	session  *utils.Session
	registry *registry.Registry
	logger   zerolog.Logger
}

func newExtractor(session *utils.Session, reg *registry.Registry, logger zerolog.Logger, name string) extractor {
	return extractor{
		session:  session,
		registry: reg,
		logger:   logger.With().Str("strategy", name).Logger(),
	}
}

// NewStrategies returns every strategy in the order they should be attempted
func NewStrategies(session *utils.Session, reg *registry.Registry, logger zerolog.Logger) []models.Strategy {
	return []models.Strategy{
		NewShortURLInfoStrategy(session, reg, logger),
		NewShareListStrategy(session, reg, logger),
		NewWapStrategy(session, reg, logger),
		NewFileMetasStrategy(session, reg, logger),
	}
}

// listResponse is the common shape of the listing endpoints
type listResponse struct {
	Errno     *models.FlexInt64 `json:"errno"`
	List      []json.RawMessage `json:"list"`
	ShareID   models.FlexString `json:"shareid"`
	UK        models.FlexString `json:"uk"`
	Sign      models.FlexString `json:"sign"`
	Timestamp models.FlexString `json:"timestamp"`
}

// decodeList decodes listing entries, skipping the ones that do not parse
func (e *extractor) decodeList(raws []json.RawMessage) []models.FileRecord {
	files, skipped := models.DecodeFileRecords(raws)
	if skipped > 0 {
		e.logger.Debug().Int("skipped", skipped).Int("kept", len(files)).Msg("Skipped malformed listing entries")
	}
	return files
}

// streamTokens are the values the streaming endpoints authenticate with
type streamTokens struct {
	ShareID   string
	UK        string
	Sign      string
	Timestamp string
}

// selectVideo picks the target file of a listing
func (e *extractor) selectVideo(files []models.FileRecord) (*models.FileRecord, error) {
	if len(files) == 0 {
		return nil, errEmptyList
	}
	file, ok := selector.Select(files)
	if !ok {
		return nil, errNoVideo
	}
	if !selector.IsVideo(*file) {
		e.logger.Debug().Str("filename", file.Filename).Msg("No video in listing, using first file")
	}
	return file, nil
}

// newResult builds a successful result for file playable at link
func newResult(ref *models.ShareReference, file *models.FileRecord, link, shareID, uk string) *models.VideoResult {
	title := file.Filename
	if title == "" {
		title = unknownTitle
	}

	return &models.VideoResult{
		Success:     true,
		Title:       title,
		Filename:    title,
		Size:        file.Size,
		SizeStr:     selector.FormatSize(file.Size),
		Thumbnail:   file.Thumbnail,
		StreamURL:   link,
		DownloadURL: link,
		FsID:        file.FsID,
		ShareID:     shareID,
		UK:          uk,
		Surl:        ref.Surl,
	}
}

func shortURL(ref *models.ShareReference) string {
	return "1" + ref.Surl
}

// webParams are the query values the desktop web client sends with every API call
func webParams() url.Values {
	return url.Values{
		"app_id":     {appID},
		"web":        {"1"},
		"channel":    {channel},
		"clienttype": {"0"},
	}
}
