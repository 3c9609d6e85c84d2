// Package desktop wraps the native OS dialogs used by the client: the image
// picker and the blocking connection loss alert.
package desktop

import (
	"context"
	"errors"
	"fmt"

	"github.com/fpang/area-calc/internal/filehandler"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrCanceled is returned by Pick when the user dismissed the dialog.
var ErrCanceled = filehandler.ErrCanceled

// Picker selects an image with the native file dialog.
type Picker struct {
	selectFile func(opts ...zenity.Option) (string, error)
}

// NewPicker returns a Picker backed by zenity.
func NewPicker() *Picker {
	return &Picker{selectFile: zenity.SelectFile}
}

// Pick opens the dialog and returns the chosen image. Cancelling the dialog
// yields ErrCanceled; a file that is not a supported image is an error.
func (p *Picker) Pick(ctx context.Context) (filehandler.Selection, error) {
	path, err := p.selectFile(
		zenity.Context(ctx),
		zenity.Title("Select a photo to measure"),
		zenity.FileFilters{
			{
				Name:     "Images",
				Patterns: filehandler.PickerPatterns(),
			},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return filehandler.Selection{}, ErrCanceled
		}
		log.Error().Err(err).Msg("File picker failed")
		return filehandler.Selection{}, fmt.Errorf("file picker failed: %w", err)
	}

	sel, err := filehandler.FromPath(path)
	if err != nil {
		return filehandler.Selection{}, err
	}
	log.Info().Str("path", sel.Path).Msg("Image picked via native dialog")
	return sel, nil
}
