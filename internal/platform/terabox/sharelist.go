package terabox

import (
	"context"

	"github.com/rs/zerolog"

	"terabox-extractor/internal/registry"
	"terabox-extractor/internal/scraper"
	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

// ShareListStrategy loads the share page for its session tokens, then calls the listing API
type ShareListStrategy struct {
	extractor
}

// NewShareListStrategy creates the page+listing strategy
func NewShareListStrategy(session *utils.Session, reg *registry.Registry, logger zerolog.Logger) *ShareListStrategy {
	return &ShareListStrategy{extractor: newExtractor(session, reg, logger, "sharelist")}
}

// Name implements models.Strategy
func (s *ShareListStrategy) Name() string {
	return "sharelist"
}

// Attempt implements models.Strategy
func (s *ShareListStrategy) Attempt(ctx context.Context, ref *models.ShareReference, originalURL string) (*models.VideoResult, error) {
	pageURL := s.registry.ShareURL(ref)

	html, cookies, err := s.session.GetText(ctx, pageURL, s.session.PageHeaders())
	if err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	tokens := scraper.Parse(html)
	if !tokens.HasShareID() {
		s.logger.Debug().Str("title", scraper.PageTitle(html)).Msg("Share page has no share id")
		return nil, models.NewStrategyError(s.Name(), errNoShareID)
	}

	s.logger.Debug().
		Str("share_id", tokens.ShareID).
		Bool("has_sign", tokens.Sign != "").
		Int("inline_files", len(tokens.FileList)).
		Msg("Parsed share page")

	params := webParams()
	params.Set("shorturl", shortURL(ref))
	params.Set("shareid", tokens.ShareID)
	params.Set("uk", tokens.UK)
	params.Set("root", "1")
	params.Set("page", "1")
	params.Set("num", "100")

	headers := s.session.APIHeaders(pageURL)
	if cookie := utils.CookieHeader(cookies); cookie != "" {
		headers["Cookie"] = cookie
	}

	var data listResponse
	listURL := s.registry.MustEndpointURL(registry.EndpointShareList, "")
	if err := s.session.GetJSON(ctx, listURL, params, headers, &data); err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	file, err := s.selectVideo(s.decodeList(data.List))
	if err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	link, err := s.streamURL(ctx, ref, file.FsID, streamTokens{
		ShareID:   tokens.ShareID,
		UK:        tokens.UK,
		Sign:      tokens.Sign,
		Timestamp: tokens.Timestamp,
	})
	if err != nil {
		return nil, models.NewStrategyError(s.Name(), err)
	}

	return newResult(ref, file, link, tokens.ShareID, tokens.UK), nil
}
