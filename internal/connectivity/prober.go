package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultInterval = 5 * time.Second
	defaultTimeout  = 3 * time.Second
)

// ProberOpts configures NewProber.
type ProberOpts struct {
	URL      string
	Interval time.Duration
	// Timeout bounds a single probe.
	Timeout time.Duration
}

// Prober is a Source that polls a URL. A probe succeeds when the server
// answers with a status below 500.
type Prober struct {
	client   *resty.Client
	url      string
	interval time.Duration

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

type subscriber struct {
	ch   chan bool
	done chan struct{}
}

// NewProber creates a Prober for opts.URL.
func NewProber(opts ProberOpts) *Prober {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Prober{
		client:   resty.New().SetDebug(false).SetTimeout(timeout),
		url:      opts.URL,
		interval: interval,
		subs:     make(map[int]*subscriber),
	}
}

// Probe checks reachability once.
func (p *Prober) Probe(ctx context.Context) (bool, error) {
	res, err := p.client.R().SetContext(ctx).Get(p.url)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", p.url, err)
	}
	if res.StatusCode() >= 500 {
		return false, fmt.Errorf("probe %s: status %d", p.url, res.StatusCode())
	}
	return true, nil
}

// Subscribe implements Source.
func (p *Prober) Subscribe() (<-chan bool, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan bool, 1)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	id := p.nextID
	p.nextID++
	sub := &subscriber{ch: ch, done: make(chan struct{})}
	p.subs[id] = sub

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(sub.done)
		})
	}
}

// Run probes immediately and then every interval until ctx is done.
// Subscriptions are closed on return.
func (p *Prober) Run(ctx context.Context) error {
	defer p.closeAll()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Debug().Str("url", p.url).Dur("interval", p.interval).Msg("Connectivity prober started")

	for {
		connected, err := p.Probe(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Debug().Err(err).Msg("Connectivity probe failed")
		}
		p.publish(ctx, connected)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Prober) publish(ctx context.Context, connected bool) {
	p.mu.Lock()
	subs := make([]*subscriber, 0, len(p.subs))
	for _, sub := range p.subs {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- connected:
		case <-sub.done:
		case <-ctx.Done():
		}
	}
}

func (p *Prober) closeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, sub := range p.subs {
		close(sub.ch)
		delete(p.subs, id)
	}
	p.closed = true
}
