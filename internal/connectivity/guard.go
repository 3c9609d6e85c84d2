// Package connectivity watches network reachability and stops the
// application when it is lost.
package connectivity

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ExitDisconnected is the process exit code after the user acknowledged
// the connection loss notice.
const ExitDisconnected = 1

// Source publishes reachability changes. Subscribe returns a channel of
// connected/disconnected values and a function that ends the subscription.
// A closed channel means the source stopped reporting.
type Source interface {
	Subscribe() (<-chan bool, func())
}

// Notifier shows the blocking connection loss notice. It returns once the
// user dismissed it.
type Notifier interface {
	NotifyDisconnected(ctx context.Context) error
}

// GuardOpts configures NewGuard.
type GuardOpts struct {
	Source   Source
	Notifier Notifier
	// OnLost runs on every connected -> disconnected edge, before the notice.
	OnLost func()
	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)
}

// Guard raises one notice per loss of connectivity. The connection is
// assumed up until the source says otherwise.
type Guard struct {
	source    Source
	notifier  Notifier
	onLost    func()
	exit      func(int)
	connected atomic.Bool
	notices   atomic.Int32
}

// NewGuard creates a Guard. Source and Notifier are required.
func NewGuard(opts GuardOpts) *Guard {
	g := &Guard{
		source:   opts.Source,
		notifier: opts.Notifier,
		onLost:   opts.OnLost,
		exit:     opts.Exit,
	}
	if g.exit == nil {
		g.exit = os.Exit
	}
	g.connected.Store(true)
	return g
}

// Connected returns the last known reachability.
func (g *Guard) Connected() bool {
	return g.connected.Load()
}

// Notices returns how many loss notices have been raised.
func (g *Guard) Notices() int {
	return int(g.notices.Load())
}

// Run consumes reachability events until ctx is done. If the source stops
// reporting, the last known status is kept and Run waits for ctx.
func (g *Guard) Run(ctx context.Context) error {
	events, unsubscribe := g.source.Subscribe()
	defer unsubscribe()

	log.Debug().Msg("Connectivity guard started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case connected, ok := <-events:
			if !ok {
				log.Warn().
					Bool("connected", g.Connected()).
					Msg("Connectivity source stopped reporting; keeping last known status")
				<-ctx.Done()
				return nil
			}
			g.observe(ctx, connected)
		}
	}
}

func (g *Guard) observe(ctx context.Context, connected bool) {
	was := g.connected.Swap(connected)
	if was == connected {
		return
	}
	if connected {
		log.Info().Msg("Connectivity restored")
		return
	}

	n := g.notices.Add(1)
	log.Warn().Int32("notice", n).Msg("Connectivity lost")

	if g.onLost != nil {
		g.onLost()
	}
	// The notice blocks until dismissed; keep consuming events meanwhile.
	go g.raise(ctx)
}

func (g *Guard) raise(ctx context.Context) {
	err := g.notifier.NotifyDisconnected(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to show connection loss notice")
	}
	log.Info().Msg("Closing after connection loss")
	g.exit(ExitDisconnected)
}
