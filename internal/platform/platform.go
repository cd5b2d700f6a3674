package platform

import (
	"fmt"

	"github.com/rs/zerolog"

	"terabox-extractor/internal/platform/terabox"
	"terabox-extractor/internal/registry"
	"terabox-extractor/internal/utils"
	"terabox-extractor/pkg/models"
)

// NewStrategies returns the resolution strategies of p in the order they must be tried
func NewStrategies(p models.Platform, session *utils.Session, reg *registry.Registry, logger zerolog.Logger) ([]models.Strategy, error) {
	switch p {
	case models.PlatformTerabox, "":
		return terabox.NewStrategies(session, reg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", p)
	}
}
