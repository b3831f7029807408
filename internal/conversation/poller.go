package conversation

import (
	"context"
	"log/slog"
	"time"

	"horizon/internal/api"
	"horizon/internal/models"
)

// Poller keeps a Conversation in sync with the backend: an immediate
// fetch on start, then a fixed-interval ticker. A failed fetch is
// logged and ignored; the held window stays and the next tick retries.
type Poller struct {
	client   *api.Client
	conv     *Conversation
	interval time.Duration

	refresh  chan struct{}
	switched chan struct{}
}

func NewPoller(client *api.Client, conv *Conversation, interval time.Duration) *Poller {
	return &Poller{
		client:   client,
		conv:     conv,
		interval: interval,
		refresh:  make(chan struct{}, 1),
		switched: make(chan struct{}, 1),
	}
}

// Refresh requests an immediate out-of-band fetch. Safe to call from
// any goroutine; coalesces when a refresh is already pending.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// SwitchPeer resets the conversation to a new peer and restarts the
// poll cycle so the first fetch for the peer happens right away.
func (p *Poller) SwitchPeer(peer models.User) {
	p.conv.SetPeer(peer)
	select {
	case p.switched <- struct{}{}:
	default:
	}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.switched:
			ticker.Reset(p.interval)
			p.fetch(ctx)
		case <-p.refresh:
			p.fetch(ctx)
		case <-ticker.C:
			p.fetch(ctx)
		}
	}
}

func (p *Poller) fetch(ctx context.Context) {
	peer := p.conv.Peer()
	if peer.ID == "" {
		return
	}
	gen, seq := p.conv.nextSeq()
	messages, err := p.client.Messages(ctx, peer.ID)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("message poll failed", "peer", peer.ID, "error", err)
		}
		return
	}
	p.conv.apply(gen, seq, messages)
}
