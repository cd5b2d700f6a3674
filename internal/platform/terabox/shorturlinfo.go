package terabox

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"terabox-extractor/internal/registry"
	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

// ShortURLInfoStrategy asks the share info API directly. It is the most reliable method.
type ShortURLInfoStrategy struct {
	extractor
}

// NewShortURLInfoStrategy creates the direct-info strategy
func NewShortURLInfoStrategy(session *utils.Session, reg *registry.Registry, logger zerolog.Logger) *ShortURLInfoStrategy {
	return &ShortURLInfoStrategy{extractor: newExtractor(session, reg, logger, "shorturlinfo")}
}

// Name implements models.Strategy
func (s *ShortURLInfoStrategy) Name() string {
	return "shorturlinfo"
}

// Attempt implements models.Strategy
func (s *ShortURLInfoStrategy) Attempt(ctx context.Context, ref *models.ShareReference, originalURL string) (*models.VideoResult, error) {
	apiURL := s.registry.MustEndpointURL(registry.EndpointShortURLInfo, ref.Surl)
	params := url.Values{
		"app_id":   {appID},
		"shorturl": {shortURL(ref)},
		"root":     {"1"},
	}

	var data listResponse
	if err := s.session.GetJSON(ctx, apiURL, params, s.session.APIHeaders(originalURL), &data); err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	if data.Errno == nil || *data.Errno != 0 {
		return nil, models.NewStrategyError(s.Name(), fmt.Errorf("API error: %v", errnoValue(data.Errno)))
	}

	file, err := s.selectVideo(s.decodeList(data.List))
	if err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	shareID, uk := string(data.ShareID), string(data.UK)

	if file.DLink != "" {
		return newResult(ref, file, file.DLink, shareID, uk), nil
	}

	link, err := s.streamURL(ctx, ref, file.FsID, streamTokens{
		ShareID:   shareID,
		UK:        uk,
		Sign:      string(data.Sign),
		Timestamp: string(data.Timestamp),
	})
	if err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	return newResult(ref, file, link, shareID, uk), nil
}

func errnoValue(errno *models.FlexInt64) interface{} {
	if errno == nil {
		return "missing"
	}
	return int64(*errno)
}
