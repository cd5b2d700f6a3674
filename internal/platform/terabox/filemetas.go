package terabox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"terabox-extractor/internal/registry"
	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

// FileMetasStrategy is the last resort: the metadata API with a dlink request
type FileMetasStrategy struct {
	extractor
}

// NewFileMetasStrategy creates the metadata fallback strategy
func NewFileMetasStrategy(session *utils.Session, reg *registry.Registry, logger zerolog.Logger) *FileMetasStrategy {
	return &FileMetasStrategy{extractor: newExtractor(session, reg, logger, "filemetas")}
}

// Name implements models.Strategy
func (s *FileMetasStrategy) Name() string {
	return "filemetas"
}

// Attempt implements models.Strategy
func (s *FileMetasStrategy) Attempt(ctx context.Context, ref *models.ShareReference, originalURL string) (*models.VideoResult, error) {
	apiURL := s.registry.MustEndpointURL(registry.EndpointFileMetas, "")
	params := url.Values{
		"app_id": {appID},
		"dlink":  {"1"},
		"target": {fmt.Sprintf(`["%s"]`, ref.Surl)},
	}

	var data struct {
		Info json.RawMessage `json:"info"`
	}
	if err := s.session.GetJSON(ctx, apiURL, params, s.session.APIHeaders(""), &data); err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	// info is only trusted when it is a non-empty array
	var raws []json.RawMessage
	if err := json.Unmarshal(data.Info, &raws); err != nil {
		return nil, models.NewStrategyError(s.Name(), errEmptyList)
	}
	info := s.decodeList(raws)
	if len(info) == 0 {
		return nil, models.NewStrategyError(s.Name(), errEmptyList)
	}

	file := &info[0]
	if file.DLink == "" {
		return nil, models.NewStrategyError(s.Name(), errNoDLink)
	}

	return newResult(ref, file, file.DLink, "", ""), nil
}
