package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crowd-relay/internal/crowd"
	"github.com/crowd-relay/internal/metrics"
	"github.com/crowd-relay/internal/pubsub"
	"github.com/crowd-relay/internal/transport"
	"github.com/crowd-relay/pkg/logger"
)

var pingReply, _ = json.Marshal(crowd.PingCommand())

// player relays between one player browser and its crowd.
type player struct {
	conn transport.Conn
	pump *transport.Pump
	ends *crowd.Endpoints
	idle time.Duration

	metrics *metrics.Metrics
	log     *logger.Logger
}

func (p *player) run(ctx context.Context) error {
	idle := time.NewTimer(p.idle)
	defer idle.Stop()

	for {
		select {
		case in, ok := <-p.pump.C():
			if !ok {
				return transport.ErrClosed
			}
			if err := p.receive(in); err != nil {
				return err
			}
		case cmd, ok := <-p.ends.Commands.C():
			if !ok {
				return fmt.Errorf("command queue: %w", pubsub.ErrClosed)
			}
			if err := p.forward(cmd); err != nil {
				return err
			}
		case <-idle.C:
			return ErrIdleTimeout
		case <-ctx.Done():
			return ctx.Err()
		}

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(p.idle)
	}
}

func (p *player) receive(in transport.Inbound) error {
	if in.Err != nil {
		return in.Err
	}
	text, err := in.Frame.Text()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	update, err := crowd.ParseUpdate(text)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	if update.Value.Kind == crowd.UpdatePing {
		return p.conn.SendText(pingReply)
	}

	n := p.ends.Updates.Publish(update)
	p.metrics.UpdatesPublished.Inc()
	p.log.Debug("update published",
		logger.F("kind", update.Value.Kind.String()),
		logger.F("subscribers", fmt.Sprint(n)),
	)
	return nil
}

func (p *player) forward(cmd crowd.TimedCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if err := p.conn.SendText(data); err != nil {
		return err
	}
	p.metrics.CommandsRelayed.Inc()
	return nil
}
