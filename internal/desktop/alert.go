package desktop

import (
	"context"
	"errors"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// Connection loss notice text.
const (
	DisconnectedTitle  = "No Connection"
	DisconnectedText   = "Please check your internet settings and try again."
	DisconnectedButton = "Close App"
)

// Alert shows the connection loss notice as a native modal dialog.
type Alert struct {
	show func(text string, opts ...zenity.Option) error
}

// NewAlert returns an Alert backed by zenity.
func NewAlert() *Alert {
	return &Alert{show: zenity.Error}
}

// NotifyDisconnected blocks until the notice is acknowledged or closed.
// Closing the window counts as acknowledging it.
func (a *Alert) NotifyDisconnected(ctx context.Context) error {
	log.Debug().Msg("Showing connection loss notice")
	err := a.show(DisconnectedText,
		zenity.Context(ctx),
		zenity.Title(DisconnectedTitle),
		zenity.OKLabel(DisconnectedButton),
	)
	if err != nil && !errors.Is(err, zenity.ErrCanceled) {
		return err
	}
	return nil
}
