package cli

import (
	"errors"
	"fmt"

	"github.com/fpang/area-calc/internal/filehandler"
	"github.com/fpang/area-calc/internal/measure"
	"github.com/fpang/area-calc/internal/units"
	"github.com/rs/zerolog/log"
)

// ValidateImagePath checks that the path names a supported image and
// returns its selection.
func ValidateImagePath(path string) (filehandler.Selection, error) {
	sel, err := filehandler.FromPath(path)
	if err != nil {
		if errors.Is(err, filehandler.ErrUnsupportedType) {
			log.Error().Err(err).Str("path", path).Msg("Not a supported image")
			return filehandler.Selection{}, err
		}
		log.Error().Err(err).Str("path", path).Msg("Failed to access image")
		return filehandler.Selection{}, err
	}
	return sel, nil
}

// ValidateUnit parses a unit name.
func ValidateUnit(name string) (units.Unit, error) {
	u, err := units.Parse(name)
	if err != nil {
		log.Error().Err(err).Msg("Invalid unit")
		return u, err
	}
	return u, nil
}

// HandleMeasurementError logs a failed measurement with a hint matching its
// kind and returns the error to report as the command's result.
func HandleMeasurementError(err error) error {
	if err == nil {
		err = errors.New("measurement did not complete")
	}
	var mErr *measure.Error
	if errors.As(err, &mErr) {
		switch mErr.Kind {
		case measure.KindPrecondition:
			log.Error().Msg(mErr.Message)
		case measure.KindTransport:
			log.Error().Err(err).Msg("No response from server. Check the server URL and that the server is running")
		case measure.KindServer:
			log.Error().Int("statusCode", mErr.StatusCode).Msg(mErr.Message)
		case measure.KindContract:
			log.Error().Err(err).Msg("Server replied without a usable result")
		case measure.KindSetup:
			log.Error().Err(err).Msg("Could not build the request. Check the image file")
		default:
			log.Error().Err(err).Msg("Measurement failed")
		}
		return fmt.Errorf("measurement failed: %s", mErr.Message)
	}
	log.Error().Err(err).Msg("unexpected error during measurement")
	return fmt.Errorf("measurement failed: %w", err)
}
