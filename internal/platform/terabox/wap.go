package terabox

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"terabox-extractor/internal/registry"
	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

// WapStrategy uses the listing endpoint of the mobile web client
type WapStrategy struct {
	extractor
}

// NewWapStrategy creates the mobile listing strategy
func NewWapStrategy(session *utils.Session, reg *registry.Registry, logger zerolog.Logger) *WapStrategy {
	return &WapStrategy{extractor: newExtractor(session, reg, logger, "wap")}
}

// Name implements models.Strategy
func (s *WapStrategy) Name() string {
	return "wap"
}

// Attempt implements models.Strategy. Only a listing entry that carries a dlink succeeds.
func (s *WapStrategy) Attempt(ctx context.Context, ref *models.ShareReference, originalURL string) (*models.VideoResult, error) {
	apiURL := s.registry.MustEndpointURL(registry.EndpointShareWXList, ref.Surl)
	params := url.Values{
		"shorturl": {shortURL(ref)},
		"root":     {"1"},
		"page":     {"1"},
		"num":      {"20"},
	}

	var data listResponse
	if err := s.session.GetJSON(ctx, apiURL, params, s.session.MobileHeaders(), &data); err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	file, err := s.selectVideo(s.decodeList(data.List))
	if err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	if file.DLink == "" {
		return nil, models.NewStrategyError(s.Name(), errNoDLink)
	}

	return newResult(ref, file, file.DLink, string(data.ShareID), string(data.UK)), nil
}
