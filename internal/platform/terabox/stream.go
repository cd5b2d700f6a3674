package terabox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/grafov/m3u8"

	"terabox-extractor/internal/registry"
	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

// Keys that may hold a playable link in a streaming response, in priority order
var linkKeys = []string{"dlink", "lurl", "url", "mlink"}

type streamEndpoint struct {
	name  string
	extra func(fsID string) url.Values
}

var streamEndpoints = []streamEndpoint{
	{
		name: registry.EndpointShareStreaming,
		extra: func(fsID string) url.Values {
			return url.Values{"type": {"M3U8_AUTO_720"}, "fid": {fsID}}
		},
	},
	{
		name: registry.EndpointShareDownload,
		extra: func(fsID string) url.Values {
			return url.Values{"fid_list": {"[" + fsID + "]"}}
		},
	},
}

// streamURL asks the streaming endpoints, in order, for a playable link to fsID.
// Failures of a single endpoint are logged and skipped.
func (e *extractor) streamURL(ctx context.Context, ref *models.ShareReference, fsID string, tokens streamTokens) (string, error) {
	referer := e.registry.ShareURL(ref)

	for _, endpoint := range streamEndpoints {
		params := url.Values{
			"app_id":     {appID},
			"channel":    {channel},
			"clienttype": {"0"},
			"web":        {"1"},
			"shareid":    {tokens.ShareID},
			"uk":         {tokens.UK},
			"sign":       {tokens.Sign},
			"timestamp":  {tokens.Timestamp},
		}
		for key, values := range endpoint.extra(fsID) {
			params[key] = values
		}

		endpointURL := e.registry.MustEndpointURL(endpoint.name, "")
		body, _, err := e.session.GetBody(ctx, endpointURL, params, e.session.APIHeaders(referer))
		if err != nil {
			e.logger.Debug().Err(err).Str("endpoint", endpoint.name).Msg("Stream endpoint failed")
			continue
		}

		if isPlaylist(body) {
			return utils.BuildURL(endpointURL, params), nil
		}

		link, err := linkFromResponse(body)
		if err != nil {
			e.logger.Debug().Err(err).Str("endpoint", endpoint.name).Msg("Stream endpoint returned no link")
			continue
		}

		return link, nil
	}

	return "", errNoStreamURL
}

// isPlaylist reports whether body is an HLS playlist rather than a JSON document
func isPlaylist(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, []byte("#EXTM3U")) {
		return false
	}

	_, _, err := m3u8.DecodeFrom(bytes.NewReader(trimmed), false)
	return err == nil
}

// linkFromResponse picks the first non-empty link field, then falls back to list[0].dlink or list.dlink
func linkFromResponse(body []byte) (string, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("error parsing stream response: %w", err)
	}

	for _, key := range linkKeys {
		if link := rawString(data[key]); link != "" {
			return link, nil
		}
	}

	if raw, ok := data["list"]; ok {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			if len(items) > 0 {
				if link := rawString(items[0]["dlink"]); link != "" {
					return link, nil
				}
			}
		} else {
			var item map[string]json.RawMessage
			if err := json.Unmarshal(raw, &item); err == nil {
				if link := rawString(item["dlink"]); link != "" {
					return link, nil
				}
			}
		}
	}

	return "", errNoDLink
}

// rawString decodes a JSON string value. Anything else is empty.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
