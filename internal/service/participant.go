package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crowd-relay/internal/crowd"
	"github.com/crowd-relay/internal/metrics"
	"github.com/crowd-relay/internal/pubsub"
	"github.com/crowd-relay/internal/transport"
	"github.com/crowd-relay/pkg/logger"
)

// participant relays between one participant browser and a crowd. Its
// interest watermarks keep it from receiving stale reflections of its own
// commands.
type participant struct {
	conn     transport.Conn
	pump     *transport.Pump
	member   *crowd.Membership
	interest crowd.InterestAfter
	now      func() time.Time

	metrics *metrics.Metrics
	log     *logger.Logger
}

func (p *participant) run(ctx context.Context) error {
	for {
		select {
		case in, ok := <-p.pump.C():
			if !ok {
				return transport.ErrClosed
			}
			if err := p.command(ctx, in); err != nil {
				return err
			}
		case update, ok := <-p.member.Updates.C():
			if err := p.member.Updates.Verify(ok); err != nil {
				if errors.Is(err, pubsub.ErrLagged) {
					p.metrics.BroadcastLagged.Inc()
				}
				return fmt.Errorf("updates: %w", err)
			}
			if err := p.deliver(update); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *participant) command(ctx context.Context, in transport.Inbound) error {
	if in.Err != nil {
		return in.Err
	}
	text, err := in.Frame.Text()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	cmd, err := crowd.ParseCommand(text)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	now := p.now()
	if kind, ok := cmd.Affects(); ok {
		p.interest.Advance(kind, now)
	}
	if err := p.member.Commands.Send(ctx, crowd.Stamp(now, cmd)); err != nil {
		return fmt.Errorf("command queue: %w", err)
	}
	return nil
}

func (p *participant) deliver(update crowd.TimedUpdate) error {
	if !p.interest.Wants(update.Value.Kind, update.At) {
		p.metrics.UpdatesFiltered.Inc()
		p.log.Debug("stale update withheld",
			logger.F("kind", update.Value.Kind.String()),
			logger.F("interest_after", p.interest.Since(update.Value.Kind).Format(time.RFC3339Nano)),
		)
		return nil
	}

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	if err := p.conn.SendText(data); err != nil {
		return err
	}
	p.metrics.UpdatesDelivered.Inc()
	return nil
}
