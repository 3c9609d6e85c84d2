package cli

import (
	"fmt"

	"github.com/fpang/area-calc/internal/config"
	"github.com/fpang/area-calc/internal/measure"
	"github.com/rs/zerolog/log"
)

// InitMeasureClient creates the measurement client from the resolved
// configuration. It fails on a malformed server URL.
func InitMeasureClient(cfg *config.Config) (*measure.Client, error) {
	client, err := measure.NewClient(measure.ClientOpts{
		ServerURL:      cfg.ServerURL,
		Timeout:        cfg.RequestTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create measurement client")
		return nil, fmt.Errorf("create measurement client: %w", err)
	}

	log.Info().Str("endpoint", client.Endpoint()).Msg("measurement client initialized")
	return client, nil
}
